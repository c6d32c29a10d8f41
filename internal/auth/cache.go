package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/showfolio/showfolio-backend/internal/identity"
)

const (
	identityKey     = "auth:identity"   // cached resolved identity (JSON)
	rosterKeyPrefix = "auth:roster:"    // roster entry: auth:roster:{id}
	rosterIndexKey  = "auth:roster:ids" // set of roster ids
	cacheTTL        = 30 * 24 * time.Hour
)

// RosterEntry is one row of the local roster of known identities. Seeded
// test entries additionally carry a password so sign-in can short-circuit
// the remote provider.
type RosterEntry struct {
	identity.Identity
	Password string `json:"password,omitempty"`
}

// Cache is the optimistic local tier of the identity state: the cached
// resolved identity plus the roster. The remote tier always wins once a
// resolution completes.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Load returns the cached identity, or ErrCacheMiss when none is stored.
func (c *Cache) Load(ctx context.Context) (*identity.Identity, error) {
	data, err := c.client.Get(ctx, identityKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached identity: %w", err)
	}

	var ident identity.Identity
	if err := json.Unmarshal([]byte(data), &ident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached identity: %w", err)
	}
	return &ident, nil
}

func (c *Cache) Store(ctx context.Context, ident identity.Identity) error {
	data, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	return c.client.Set(ctx, identityKey, data, cacheTTL).Err()
}

func (c *Cache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, identityKey).Err()
}

// UpsertRosterEntry appends to or updates in place the roster. An existing
// password survives updates that do not carry one, so re-resolving a seeded
// test identity never disables its local sign-in.
func (c *Cache) UpsertRosterEntry(ctx context.Context, entry RosterEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("roster entry id required")
	}

	if entry.Password == "" {
		if existing, err := c.client.Get(ctx, rosterKeyPrefix+entry.ID).Result(); err == nil {
			var prev RosterEntry
			if json.Unmarshal([]byte(existing), &prev) == nil {
				entry.Password = prev.Password
			}
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal roster entry: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, rosterKeyPrefix+entry.ID, data, 0)
	pipe.SAdd(ctx, rosterIndexKey, entry.ID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert roster entry: %w", err)
	}
	return nil
}

func (c *Cache) RemoveRosterEntry(ctx context.Context, id string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, rosterKeyPrefix+id)
	pipe.SRem(ctx, rosterIndexKey, id)
	_, err := pipe.Exec(ctx)
	return err
}

// Roster returns every known roster entry.
func (c *Cache) Roster(ctx context.Context) ([]RosterEntry, error) {
	ids, err := c.client.SMembers(ctx, rosterIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list roster ids: %w", err)
	}

	out := make([]RosterEntry, 0, len(ids))
	for _, id := range ids {
		data, err := c.client.Get(ctx, rosterKeyPrefix+id).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load roster entry %s: %w", id, err)
		}

		var entry RosterEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// RosterByEmail finds a roster entry by email, or nil when absent.
func (c *Cache) RosterByEmail(ctx context.Context, email string) (*RosterEntry, error) {
	entries, err := c.Roster(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Email == email {
			return &entries[i], nil
		}
	}
	return nil, nil
}
