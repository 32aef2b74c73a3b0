package memory

import (
	"context"
	"fmt"

	"github.com/xela07ax/gad-tramites/internal/domain"
)

type UserStore struct {
	items *Collection[*domain.User]
}

func NewUserStore(users ...domain.User) *UserStore {
	s := &UserStore{items: NewCollection(func(u *domain.User) *domain.User {
		c := *u
		c.Scopes = make(map[string]bool, len(u.Scopes))
		for k, v := range u.Scopes {
			c.Scopes[k] = v
		}
		return &c
	})}
	for i := range users {
		s.items.Put(users[i].Username, &users[i])
	}
	return s
}

func (s *UserStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := s.items.Get(username)
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
	}
	return u, nil
}

func (s *UserStore) SaveUser(_ context.Context, u *domain.User) error {
	s.items.Put(u.Username, u)
	return nil
}
