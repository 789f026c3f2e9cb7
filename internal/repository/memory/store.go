// Package memory is an in-process entitlement store. It backs development
// mode when no Postgres DSN is configured and is the store used by service
// tests. It enforces the same uniqueness rules as the SQL schema.
package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/repository"
)

// Store holds every collection behind a single lock, giving the same
// per-document atomicity the SQL store provides.
type Store struct {
	mu            sync.Mutex
	users         map[string]*domain.User
	registrations map[string]*domain.RegistrationRequest
	admins        map[string]*domain.Admin
	movies        map[string]*domain.Movie
	now           func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:         make(map[string]*domain.User),
		registrations: make(map[string]*domain.RegistrationRequest),
		admins:        make(map[string]*domain.Admin),
		movies:        make(map[string]*domain.Movie),
		now:           time.Now,
	}
}

// Users exposes the users collection.
func (s *Store) Users() repository.UserRepository { return &users{s} }

// Registrations exposes the registration requests collection.
func (s *Store) Registrations() repository.RegistrationRepository { return &registrations{s} }

// Admins exposes the admins collection.
func (s *Store) Admins() repository.AdminRepository { return &admins{s} }

// Movies exposes the catalog collection.
func (s *Store) Movies() repository.MovieRepository { return &movies{s} }

func newID() string { return uuid.NewString() }

func sameEmail(a, b string) bool { return strings.EqualFold(a, b) }

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
