package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/streamhub/internal/domain"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventRegistrationApproved, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventRegistrationApproved, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventRegistrationRejected, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventRegistrationApproved, "r1", Actor{}, time.Now(), nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcherCatchAllSeesEveryType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []EventType
	d.SubscribeAll(func(_ context.Context, ev Event) error {
		seen = append(seen, ev.Type)
		return nil
	})
	d.Subscribe(EventUserDeleted, func(_ context.Context, ev Event) error {
		seen = append(seen, "typed:"+ev.Type)
		return nil
	})

	for _, eventType := range []EventType{EventRegistrationSubmitted, EventUserDeleted} {
		require.NoError(t, d.Publish(context.Background(), Event{Type: eventType}))
	}
	assert.Equal(t, []EventType{EventRegistrationSubmitted, EventUserDeleted, "typed:" + EventUserDeleted}, seen)
}

func TestDispatcherWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventUserDeleted}))
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	caller := domain.Caller{Subject: domain.SubjectTypeAdmin, ID: "a1", Email: "admin@example.com"}
	ev := New(EventAccessRevoked, "u1", ActorFrom(caller), at, nil)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "u1", ev.SubjectID)
	assert.Equal(t, time.UTC, ev.Timestamp.Location())
	assert.Equal(t, Actor{Type: domain.SubjectTypeAdmin, ID: "a1", Email: "admin@example.com"}, ev.Actor)
}
