package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// feedChannel is the Pub/Sub channel carrying per-row project change
// events. Every client of the backing store sees the same stream, so a
// change made elsewhere still reaches this store.
const feedChannel = "projects:events"

type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Event is one realtime change notification.
type Event struct {
	Kind      EventKind `json:"kind"`
	ProjectID string    `json:"project_id"`
	Project   *Project  `json:"project,omitempty"` // nil for delete
}

// Feed is the redis-backed realtime change feed for the projects table.
type Feed struct {
	client *redis.Client
}

func NewFeed(client *redis.Client) *Feed {
	return &Feed{client: client}
}

func (f *Feed) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal feed event: %w", err)
	}
	if err := f.client.Publish(ctx, feedChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish feed event: %w", err)
	}
	return nil
}

// Subscribe delivers feed events to fn until the returned cancel handle is
// invoked. Malformed payloads are logged and skipped.
func (f *Feed) Subscribe(ctx context.Context, fn func(Event)) (cancel func()) {
	sub := f.client.Subscribe(ctx, feedChannel)

	go func() {
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("projects: dropping malformed feed event: %v", err)
				continue
			}
			fn(ev)
		}
	}()

	return func() {
		if err := sub.Close(); err != nil {
			log.Printf("projects: feed unsubscribe failed: %v", err)
		}
	}
}
