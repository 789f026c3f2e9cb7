package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/repository"
)

type users struct{ s *Store }

func (r *users) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertUserLocked(user)
}

func (s *Store) insertUserLocked(user *domain.User) error {
	for _, existing := range s.users {
		if user.SourceRequestID != "" && existing.SourceRequestID == user.SourceRequestID {
			return repository.ErrAlreadyPromoted
		}
		if sameEmail(existing.Email, user.Email) {
			return repository.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	if _, ok := s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	user.UpdatedAt = s.now()
	s.users[user.ID] = user.Clone()
	return nil
}

func (r *users) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user.Clone(), nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if sameEmail(user.Email, email) {
			return user.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *users) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.s.mu.Lock()
	result := []domain.User{}
	for _, user := range r.s.users {
		if filter.Status != nil && user.Status != *filter.Status {
			continue
		}
		result = append(result, *user.Clone())
	}
	r.s.mu.Unlock()

	switch filter.OrderBy {
	case repository.OrderByAccessEnd:
		sort.SliceStable(result, func(i, j int) bool {
			a, b := result[i].AccessEndDate, result[j].AccessEndDate
			switch {
			case a == nil && b == nil:
				return result[i].CreatedAt.After(result[j].CreatedAt)
			case a == nil:
				return false
			case b == nil:
				return true
			}
			return a.After(*b)
		})
	default:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		})
	}
	return page(result, filter.Limit, filter.Offset), nil
}

func (r *users) ListLapsed(_ context.Context, now time.Time) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := []domain.User{}
	for _, user := range r.s.users {
		if user.Status == domain.EntitlementApproved && user.AccessEndDate != nil && user.AccessEndDate.Before(now) {
			result = append(result, *user.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AccessEndDate.Before(*result[j].AccessEndDate)
	})
	return result, nil
}

func (r *users) UpdateAccess(_ context.Context, id string, start, end time.Time, status domain.EntitlementStatus) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user.AccessStartDate = &start
	user.AccessEndDate = &end
	user.Status = status
	user.UpdatedAt = r.s.now()
	return user.Clone(), nil
}

func (r *users) ExpireIfLapsed(_ context.Context, id string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok || user.Status != domain.EntitlementApproved || user.AccessEndDate == nil || !user.AccessEndDate.Before(now) {
		return false, nil
	}
	user.Status = domain.EntitlementExpired
	user.UpdatedAt = r.s.now()
	return true, nil
}

func (r *users) TransitionStatus(_ context.Context, id string, from, to domain.EntitlementStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok || user.Status != from {
		return false, nil
	}
	user.Status = to
	user.UpdatedAt = r.s.now()
	return true, nil
}

func (r *users) SetStatus(_ context.Context, id string, status domain.EntitlementStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = r.s.now()
	return nil
}

func (r *users) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}
