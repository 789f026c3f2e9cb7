package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/streamhub/internal/auth"
	"github.com/spec-kit/streamhub/internal/domain"
	"github.com/spec-kit/streamhub/internal/events"
	"github.com/spec-kit/streamhub/internal/observability"
	"github.com/spec-kit/streamhub/internal/repository"
	"github.com/spec-kit/streamhub/internal/repository/memory"
)

var (
	adminCaller = domain.Caller{Subject: domain.SubjectTypeAdmin, ID: "admin-1", Email: "admin@example.com"}
	system      = domain.SystemCaller("test")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) EnsureBucket(context.Context) error { return nil }

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/movies/" + key + "?sig=1", nil
}

func (f *fakeObjects) Bucket() string { return "movies" }

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	clock         *fakeClock
	store         *memory.Store
	users         repository.UserRepository
	registrations repository.RegistrationRepository
	objects       *fakeObjects
	metrics       *observability.Metrics
	recorded      *recorder
	tokens        *auth.TokenManager

	registration *RegistrationService
	approval     *ApprovalService
	access       *AccessService
	maintenance  *MaintenanceService
	catalog      *CatalogService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	registrations func(*memory.Store) repository.RegistrationRepository
	limiter       auth.LoginLimiter
}

// withRegistrations wraps the store's registration collection.
func withRegistrations(wrap func(*memory.Store) repository.RegistrationRepository) fixtureOption {
	return func(c *fixtureConfig) { c.registrations = wrap }
}

func withLimiter(l auth.LoginLimiter) fixtureOption {
	return func(c *fixtureConfig) { c.limiter = l }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	cfg := fixtureConfig{registrations: func(s *memory.Store) repository.RegistrationRepository { return s.Registrations() }}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &fixture{
		clock:         &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		store:         store,
		users:         store.Users(),
		registrations: cfg.registrations(store),
		objects:       newFakeObjects(),
		metrics:       observability.NewMetrics(),
		recorded:      &recorder{},
		tokens:        auth.NewTokenManager("test-secret", 60),
	}

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(f.recorded.handle)

	f.registration = NewRegistrationService(RegistrationDependencies{
		UserRepo:         f.users,
		RegistrationRepo: f.registrations,
		Dispatcher:       dispatcher,
		BcryptCost:       bcrypt.MinCost,
		Clock:            f.clock.Now,
	})
	f.approval = NewApprovalService(ApprovalDependencies{
		UserRepo:         f.users,
		RegistrationRepo: f.registrations,
		Dispatcher:       dispatcher,
		Clock:            f.clock.Now,
	})
	f.access = NewAccessService(AccessDependencies{
		UserRepo:         f.users,
		RegistrationRepo: f.registrations,
		Tokens:           f.tokens,
		Limiter:          cfg.limiter,
		Dispatcher:       dispatcher,
		Metrics:          f.metrics,
		Clock:            f.clock.Now,
	})
	f.maintenance = NewMaintenanceService(MaintenanceDependencies{
		UserRepo:         f.users,
		RegistrationRepo: f.registrations,
		Dispatcher:       dispatcher,
		Metrics:          f.metrics,
		Clock:            f.clock.Now,
	})
	f.catalog = NewCatalogService(CatalogDependencies{
		MovieRepo:  store.Movies(),
		Storage:    f.objects,
		Access:     f.access,
		PresignTTL: time.Hour,
		Clock:      f.clock.Now,
	})
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// submit registers a visitor and returns the request ID.
func (f *fixture) submit(t *testing.T, email string) string {
	t.Helper()
	id, err := f.registration.Submit(context.Background(), RegistrationInput{
		Email:       email,
		DisplayName: "Display " + email,
		ProfileName: "profile",
		Password:    "secret-pw",
	})
	require.NoError(t, err)
	return id
}

// approved registers and approves a visitor with the given window.
func (f *fixture) approved(t *testing.T, email string, start, end time.Time) *domain.User {
	t.Helper()
	user, err := f.approval.Approve(context.Background(), adminCaller, f.submit(t, email), ApproveInput{
		AccessStartDate: start,
		AccessEndDate:   end,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) reload(t *testing.T, id string) *domain.User {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func upload(contentType, filename, body string) AssetUpload {
	return AssetUpload{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(body)),
		Body:        bytes.NewBufferString(body),
	}
}
