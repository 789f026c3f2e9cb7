package memory

import (
	"context"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/repository"
)

type admins struct{ s *Store }

func (r *admins) Create(_ context.Context, admin *domain.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.admins {
		if sameEmail(existing.Email, admin.Email) {
			return repository.ErrEmailTaken
		}
	}
	admin.ID = newID()
	admin.CreatedAt = r.s.now()
	cp := *admin
	r.s.admins[admin.ID] = &cp
	return nil
}

func (r *admins) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	admin, ok := r.s.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *admin
	return &cp, nil
}

func (r *admins) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, admin := range r.s.admins {
		if sameEmail(admin.Email, email) {
			cp := *admin
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}
