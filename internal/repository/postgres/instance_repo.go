package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/gad-tramites/internal/domain"
)

const instanceColumns = `id, definition_id, folio, state, citizen, motive, attachments, history, payment, version, created_at, updated_at`

// instanceRow — JSONB представление вложенных частей агрегата.
type instanceRow struct {
	citizen, attachments, history, payment []byte
}

func encodeInstance(p *domain.ProcedureInstance) (instanceRow, error) {
	var row instanceRow
	var err error
	if row.citizen, err = json.Marshal(p.Citizen); err != nil {
		return row, err
	}
	attachments := p.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	if row.attachments, err = json.Marshal(attachments); err != nil {
		return row, err
	}
	history := p.History
	if history == nil {
		history = []domain.AuditEntry{}
	}
	if row.history, err = json.Marshal(history); err != nil {
		return row, err
	}
	if p.Payment != nil {
		if row.payment, err = json.Marshal(p.Payment); err != nil {
			return row, err
		}
	}
	return row, nil
}

func scanInstance(row pgx.Row) (*domain.ProcedureInstance, error) {
	var p domain.ProcedureInstance
	var state string
	var raw instanceRow
	if err := row.Scan(&p.ID, &p.DefinitionID, &p.Folio, &state, &raw.citizen, &p.Motive,
		&raw.attachments, &raw.history, &raw.payment, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.State = domain.State(state)

	if err := json.Unmarshal(raw.citizen, &p.Citizen); err != nil {
		return nil, fmt.Errorf("decode citizen: %w", err)
	}
	if err := json.Unmarshal(raw.attachments, &p.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if err := json.Unmarshal(raw.history, &p.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if len(raw.payment) > 0 {
		p.Payment = &domain.Payment{}
		if err := json.Unmarshal(raw.payment, p.Payment); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
	}
	return &p, nil
}

func (r *Repo) Create(ctx context.Context, inst *domain.ProcedureInstance) error {
	row, err := encodeInstance(inst)
	if err != nil {
		return fmt.Errorf("postgres: encode instance: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO procedure_instances (`+instanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inst.ID, inst.DefinitionID, inst.Folio, string(inst.State), row.citizen, inst.Motive,
		row.attachments, row.history, row.payment, inst.Version, inst.CreatedAt, inst.UpdatedAt,
	)
	return mapErr(err, "create instance "+inst.ID)
}

func (r *Repo) Get(ctx context.Context, id string) (*domain.ProcedureInstance, error) {
	inst, err := scanInstance(r.pool.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM procedure_instances WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "instance "+id)
	}
	return inst, nil
}

func (r *Repo) GetByFolio(ctx context.Context, folio string) (*domain.ProcedureInstance, error) {
	inst, err := scanInstance(r.pool.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM procedure_instances WHERE folio = $1`, folio))
	if err != nil {
		return nil, mapErr(err, "folio "+folio)
	}
	return inst, nil
}

// Update — compare-and-set: строка меняется, только если version совпадает с ожидаемой.
func (r *Repo) Update(ctx context.Context, inst *domain.ProcedureInstance, expectedVersion int64) error {
	row, err := encodeInstance(inst)
	if err != nil {
		return fmt.Errorf("postgres: encode instance: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE procedure_instances
		SET folio = $3, state = $4, citizen = $5, motive = $6, attachments = $7,
		    history = $8, payment = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2`,
		inst.ID, expectedVersion, inst.Folio, string(inst.State), row.citizen, inst.Motive,
		row.attachments, row.history, row.payment, inst.UpdatedAt,
	)
	if err != nil {
		return mapErr(err, "update instance "+inst.ID)
	}

	if tag.RowsAffected() == 0 {
		// Различаем "нет такой заявки" и "проиграли гонку"
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM procedure_instances WHERE id = $1)`, inst.ID).Scan(&exists); err != nil {
			return mapErr(err, "update instance "+inst.ID)
		}
		if !exists {
			return fmt.Errorf("instance %s: %w", inst.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("instance %s, expected version %d: %w", inst.ID, expectedVersion, domain.ErrConcurrencyConflict)
	}

	inst.Version = expectedVersion + 1
	return nil
}

// listWhere строит условие выборки очереди. Возвращает текст WHERE (возможно пустой) и аргументы.
func listWhere(f domain.InstanceFilter) (string, []any) {
	var conds []string
	var args []any
	if f.State != "" {
		args = append(args, string(f.State))
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}
	if f.DefinitionID != "" {
		args = append(args, f.DefinitionID)
		conds = append(conds, fmt.Sprintf("definition_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List — очередь сотрудников: новые сверху, постранично.
func (r *Repo) List(ctx context.Context, f domain.InstanceFilter) ([]*domain.ProcedureInstance, int, error) {
	f = f.Normalize()
	where, args := listWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM procedure_instances`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err, "count instances")
	}

	query := fmt.Sprintf(`SELECT %s FROM procedure_instances%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		instanceColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, mapErr(err, "list instances")
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	items := make([]*domain.ProcedureInstance, 0)
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, 0, mapErr(err, "scan instance")
		}
		items = append(items, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err, "list instances")
	}
	return items, total, nil
}

// HasOpenInstances — есть ли незавершенные заявки по процедуре.
func (r *Repo) HasOpenInstances(ctx context.Context, definitionID string) (bool, error) {
	var open bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM procedure_instances
			WHERE definition_id = $1 AND state NOT IN ($2, $3)
		)`, definitionID, string(domain.StateRejected), string(domain.StateDelivered)).Scan(&open)
	if err != nil {
		return false, mapErr(err, "open instances")
	}
	return open, nil
}

// Stats — сводка дашборда. since — начало суток в часовом поясе офиса.
func (r *Repo) Stats(ctx context.Context, since time.Time) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{ByState: make(map[domain.State]int64, len(domain.AllStates))}

	// 1. Распределение по статусам
	rows, err := r.pool.Query(ctx, `SELECT state, COUNT(*) FROM procedure_instances GROUP BY state`)
	if err != nil {
		return nil, mapErr(err, "stats by state")
	}
	for rows.Next() {
		var state string
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			rows.Close()
			return nil, mapErr(err, "stats by state")
		}
		stats.ByState[domain.State(state)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "stats by state")
	}

	// 2. Активность за сегодня по истории заявок
	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE h->>'action' = $2),
			COUNT(*) FILTER (WHERE h->>'action' = $3)
		FROM procedure_instances p, jsonb_array_elements(p.history) h
		WHERE (h->>'timestamp')::timestamptz >= $1`,
		since, string(domain.ActionSubmit), string(domain.ActionDeliver),
	).Scan(&stats.SubmittedToday, &stats.DeliveredToday)
	if err != nil {
		return nil, mapErr(err, "stats today")
	}

	stats.Fill()
	return stats, nil
}
