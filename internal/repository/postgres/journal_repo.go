package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/gad-tramites/internal/audit"
)

var eventColumns = []string{
	"id", "instance_id", "definition_id", "folio", "action", "from_state", "to_state", "actor", "comment", "ts",
}

// WriteBatch сохраняет пачку событий журнала через COPY.
func (r *Repo) WriteBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			e.ID, e.InstanceID, e.DefinitionID, e.Folio, e.Action, e.FromState, e.ToState, e.Actor, e.Comment, e.Timestamp,
		})
	}

	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"workflow_events"}, eventColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("postgres: write journal batch of %d: %w", len(events), err)
	}
	return nil
}

// FetchLogs — события журнала, новые сверху.
func (r *Repo) FetchLogs(ctx context.Context, f audit.Filter) ([]audit.Event, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	var conds []string
	var args []any
	if f.InstanceID != "" {
		args = append(args, f.InstanceID)
		conds = append(conds, fmt.Sprintf("instance_id = $%d", len(args)))
	}
	if f.Actor != "" {
		args = append(args, f.Actor)
		conds = append(conds, fmt.Sprintf("actor = $%d", len(args)))
	}

	query := `SELECT ` + strings.Join(eventColumns, ", ") + ` FROM workflow_events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(` ORDER BY ts DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "fetch journal")
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Event, error) {
		var e audit.Event
		err := row.Scan(&e.ID, &e.InstanceID, &e.DefinitionID, &e.Folio, &e.Action, &e.FromState, &e.ToState, &e.Actor, &e.Comment, &e.Timestamp)
		return e, err
	})
	if err != nil {
		return nil, mapErr(err, "fetch journal")
	}
	return events, nil
}
