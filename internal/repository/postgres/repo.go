// Package postgres — хранилища портала на PostgreSQL (pgx v5).
// Один Repo реализует порты ядра (заявки, каталог, счетчик фолио),
// консоли (сотрудники, дашборд) и приемник пакетов журнала.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/gad-tramites/internal/domain"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Ping проверяет доступность базы (readiness)
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const uniqueViolation = "23505"

// mapErr переводит ошибки драйвера в доменные.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: duplicate %s: %w", what, pgErr.ConstraintName, domain.ErrStateConflict)
	}
	return fmt.Errorf("postgres: %s: %w", what, err)
}
