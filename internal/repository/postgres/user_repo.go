package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, full_name, email, password_hash, scopes, active, created_at, updated_at
		FROM staff_users WHERE username = $1`

	u := &domain.User{}
	var scopes []byte
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash, &scopes, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err, "user "+username)
	}
	if err := json.Unmarshal(scopes, &u.Scopes); err != nil {
		return nil, fmt.Errorf("postgres: decode scopes of %s: %w", username, err)
	}
	return u, nil
}

// SaveUser создает или обновляет сотрудника по username.
func (r *Repo) SaveUser(ctx context.Context, u *domain.User) error {
	scopes, err := json.Marshal(u.Scopes)
	if err != nil {
		return fmt.Errorf("postgres: encode scopes: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO staff_users (id, username, full_name, email, password_hash, scopes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			scopes = EXCLUDED.scopes,
			active = EXCLUDED.active,
			updated_at = NOW()`,
		u.ID, u.Username, u.FullName, u.Email, u.PasswordHash, scopes, u.Active,
	)
	return mapErr(err, "save user "+u.Username)
}
