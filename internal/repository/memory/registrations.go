package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/repository"
)

type registrations struct{ s *Store }

func (r *registrations) Create(_ context.Context, req *domain.RegistrationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.registrations {
		if sameEmail(existing.Email, req.Email) {
			return repository.ErrEmailTaken
		}
	}
	req.ID = newID()
	req.Status = domain.RegistrationStatus
	cp := *req
	r.s.registrations[req.ID] = &cp
	return nil
}

func (r *registrations) GetByID(_ context.Context, id string) (*domain.RegistrationRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *registrations) GetByEmail(_ context.Context, email string) (*domain.RegistrationRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, req := range r.s.registrations {
		if sameEmail(req.Email, email) {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *registrations) ListPending(_ context.Context, limit, offset int) ([]domain.RegistrationRequest, error) {
	r.s.mu.Lock()
	result := []domain.RegistrationRequest{}
	for _, req := range r.s.registrations {
		if r.promotedLocked(req.ID) {
			continue
		}
		result = append(result, *req)
	}
	r.s.mu.Unlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return page(result, limit, offset), nil
}

func (r *registrations) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.registrations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.registrations, id)
	return nil
}

func (r *registrations) Promote(_ context.Context, requestID string, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.registrations[requestID]; !ok {
		return repository.ErrNotFound
	}
	if err := r.s.insertUserLocked(user); err != nil {
		return err
	}
	delete(r.s.registrations, requestID)
	return nil
}

func (r *registrations) PurgePromoted(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	purged := 0
	for id := range r.s.registrations {
		if r.promotedLocked(id) {
			delete(r.s.registrations, id)
			purged++
		}
	}
	return purged, nil
}

func (r *registrations) promotedLocked(id string) bool {
	for _, user := range r.s.users {
		if user.SourceRequestID == id {
			return true
		}
	}
	return false
}
