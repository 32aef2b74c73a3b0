package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/gad-tramites/internal/domain"
)

const definitionColumns = `id, name, category, cost_cents, expected_duration, requirements,
	requires_attachment, min_attachments, active, created_at, updated_at`

func scanDefinition(row pgx.Row) (*domain.ProcedureDefinition, error) {
	var d domain.ProcedureDefinition
	var category string
	err := row.Scan(&d.ID, &d.Name, &category, &d.CostCents, &d.ExpectedDuration, &d.Requirements,
		&d.RequiresAttachment, &d.MinAttachments, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Category = domain.Category(category)
	return &d, nil
}

func (r *Repo) GetDefinition(ctx context.Context, id string) (*domain.ProcedureDefinition, error) {
	def, err := scanDefinition(r.pool.QueryRow(ctx,
		`SELECT `+definitionColumns+` FROM procedure_definitions WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "procedure "+id)
	}
	return def, nil
}

func (r *Repo) ListDefinitions(ctx context.Context, activeOnly bool) ([]*domain.ProcedureDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM procedure_definitions`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, mapErr(err, "list procedures")
	}
	defer rows.Close()

	defs := make([]*domain.ProcedureDefinition, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, mapErr(err, "scan procedure")
		}
		defs = append(defs, d)
	}
	return defs, mapErr(rows.Err(), "list procedures")
}

// UpsertDefinition сохраняет запись каталога, created_at существующей записи не меняется.
func (r *Repo) UpsertDefinition(ctx context.Context, def *domain.ProcedureDefinition) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO procedure_definitions (`+definitionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			cost_cents = EXCLUDED.cost_cents,
			expected_duration = EXCLUDED.expected_duration,
			requirements = EXCLUDED.requirements,
			requires_attachment = EXCLUDED.requires_attachment,
			min_attachments = EXCLUDED.min_attachments,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at`,
		def.ID, def.Name, string(def.Category), def.CostCents, def.ExpectedDuration, def.Requirements,
		def.RequiresAttachment, def.MinAttachments, def.Active, def.CreatedAt, def.UpdatedAt,
	).Scan(&def.CreatedAt)
	return mapErr(err, "upsert procedure "+def.ID)
}
