package auth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showfolio/showfolio-backend/internal/identity"
)

func setupCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client)
}

func TestCache_Identity(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	t.Run("miss before first store", func(t *testing.T) {
		_, err := cache.Load(ctx)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("store then load round trip", func(t *testing.T) {
		ident := identity.Identity{
			ID:          "uid-1",
			Name:        "Jo",
			Email:       "jo@example.com",
			Role:        identity.RoleAdmin,
			Permissions: []identity.Category{identity.CategoryWebApp},
		}
		require.NoError(t, cache.Store(ctx, ident))

		got, err := cache.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, ident, *got)
	})

	t.Run("clear restores the miss", func(t *testing.T) {
		require.NoError(t, cache.Clear(ctx))
		_, err := cache.Load(ctx)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}

func TestCache_Roster(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert, list and remove", func(t *testing.T) {
		cache := setupCache(t)

		require.NoError(t, cache.UpsertRosterEntry(ctx, RosterEntry{
			Identity: identity.Identity{ID: "r1", Name: "One", Email: "one@example.com", Role: identity.RoleUser},
			Password: "pw1",
		}))
		require.NoError(t, cache.UpsertRosterEntry(ctx, RosterEntry{
			Identity: identity.Identity{ID: "r2", Name: "Two", Email: "two@example.com", Role: identity.RoleUser},
		}))

		entries, err := cache.Roster(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		require.NoError(t, cache.RemoveRosterEntry(ctx, "r1"))
		entries, err = cache.Roster(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "r2", entries[0].ID)
	})

	t.Run("update without password keeps the stored one", func(t *testing.T) {
		cache := setupCache(t)

		require.NoError(t, cache.UpsertRosterEntry(ctx, RosterEntry{
			Identity: identity.Identity{ID: "r1", Name: "One", Email: "one@example.com", Role: identity.RoleUser},
			Password: "pw1",
		}))
		require.NoError(t, cache.UpsertRosterEntry(ctx, RosterEntry{
			Identity: identity.Identity{ID: "r1", Name: "One Renamed", Email: "one@example.com", Role: identity.RoleAdmin},
		}))

		entry, err := cache.RosterByEmail(ctx, "one@example.com")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "One Renamed", entry.Name)
		assert.Equal(t, identity.RoleAdmin, entry.Role)
		assert.Equal(t, "pw1", entry.Password)
	})

	t.Run("rejects an entry without an id", func(t *testing.T) {
		cache := setupCache(t)
		err := cache.UpsertRosterEntry(ctx, RosterEntry{
			Identity: identity.Identity{Email: "anon@example.com"},
		})
		assert.Error(t, err)
	})

	t.Run("lookup by unknown email is nil without error", func(t *testing.T) {
		cache := setupCache(t)
		entry, err := cache.RosterByEmail(ctx, "missing@example.com")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})
}
