// Package render выпускает итоговый документ (сертификат, разрешение) для выдачи гражданину.
// Рендер детерминирован для одинаковых заявки и записи каталога и не имеет побочных эффектов.
package render

import (
	"context"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

// Document — результат рендера, отдается вызывающему один раз при выдаче.
type Document struct {
	Content     []byte
	ContentType string
	FileName    string
}

type Renderer interface {
	Render(ctx context.Context, inst *domain.ProcedureInstance, def *domain.ProcedureDefinition) (*Document, error)
}

// approvalTime — момент одобрения из истории заявки (для бесплатных процедур это последний шаг до выдачи).
func approvalTime(inst *domain.ProcedureInstance) (entry domain.AuditEntry, ok bool) {
	for i := len(inst.History) - 1; i >= 0; i-- {
		if inst.History[i].Action == domain.ActionApprove {
			return inst.History[i], true
		}
	}
	return domain.AuditEntry{}, false
}
