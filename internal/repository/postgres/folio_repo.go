package postgres

import (
	"context"
)

// FolioSequencer — счетчик фолио на строке folio_counters (folio_backend=postgres).
// Upsert с инкрементом атомарен: конкурентные подачи получают разные номера.
type FolioSequencer struct {
	repo *Repo
}

func NewFolioSequencer(repo *Repo) *FolioSequencer {
	return &FolioSequencer{repo: repo}
}

func (s *FolioSequencer) Next(ctx context.Context, bucket string) (int64, error) {
	var seq int64
	err := s.repo.pool.QueryRow(ctx, `
		INSERT INTO folio_counters (bucket, seq) VALUES ($1, 1)
		ON CONFLICT (bucket) DO UPDATE SET seq = folio_counters.seq + 1
		RETURNING seq`, bucket).Scan(&seq)
	if err != nil {
		return 0, mapErr(err, "folio counter "+bucket)
	}
	return seq, nil
}
