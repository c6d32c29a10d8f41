package projects

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	feed := NewFeed(client)
	ctx := context.Background()

	received := make(chan Event, 1)
	cancel := feed.Subscribe(ctx, func(ev Event) { received <- ev })
	defer cancel()

	// Give the subscription a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	ev := Event{
		Kind:      EventUpdate,
		ProjectID: "p1",
		Project:   &Project{ID: "p1", Title: "Renamed"},
	}
	require.NoError(t, feed.Publish(ctx, ev))

	select {
	case got := <-received:
		assert.Equal(t, EventUpdate, got.Kind)
		assert.Equal(t, "p1", got.ProjectID)
		require.NotNil(t, got.Project)
		assert.Equal(t, "Renamed", got.Project.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("feed event was not delivered")
	}
}

func TestFeed_MalformedPayloadIsDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	feed := NewFeed(client)
	ctx := context.Background()

	received := make(chan Event, 2)
	cancel := feed.Subscribe(ctx, func(ev Event) { received <- ev })
	defer cancel()

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, client.Publish(ctx, "projects:events", "not json").Err())
	require.NoError(t, feed.Publish(ctx, Event{Kind: EventDelete, ProjectID: "p1"}))

	select {
	case got := <-received:
		// The malformed payload never reaches the handler.
		assert.Equal(t, EventDelete, got.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("feed event was not delivered")
	}
}
