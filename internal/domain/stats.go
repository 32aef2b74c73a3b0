package domain

// DashboardStats — сводка для панели сотрудников.
type DashboardStats struct {
	Total          int64           `json:"total"`
	ByState        map[State]int64 `json:"by_state"`
	SubmittedToday int64           `json:"submitted_today"`
	DeliveredToday int64           `json:"delivered_today"`
	AwaitingReview int64           `json:"awaiting_review"` // Submitted + UnderObservation
}

// Fill досчитывает производные поля по ByState.
func (s *DashboardStats) Fill() {
	if s.ByState == nil {
		s.ByState = make(map[State]int64, len(AllStates))
	}
	s.Total = 0
	for _, st := range AllStates {
		s.Total += s.ByState[st]
	}
	s.AwaitingReview = s.ByState[StateSubmitted] + s.ByState[StateUnderObservation]
}
