package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []string
	d.Subscribe(EventLoginFailed, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.Identity)
		return nil
	})
	d.Subscribe(EventLoginFailed, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.Identity)
		return nil
	})
	d.Subscribe(EventLoginSucceeded, func(context.Context, Event) error {
		t.Fatal("unexpected delivery")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventLoginFailed, "a@x.com", LoginFailedPayload{Reason: "unknown_identity"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"first:a@x.com", "second:a@x.com"}, got)
}

func TestDispatcherJoinsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	calls := 0
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventUserRegistered, "a@x.com", nil))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventUserRegistered, "a@x.com", nil)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventUserRegistered, e.Type)
	assert.False(t, e.Timestamp.IsZero())
	assert.NotEqual(t, e.ID, NewEvent(EventUserRegistered, "a@x.com", nil).ID)
}
