package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showfolio/showfolio-backend/internal/identity"
	"github.com/showfolio/showfolio-backend/internal/session"
)

type fakeProvider struct {
	mu      sync.Mutex
	current *session.Session

	signInErr  error
	signUpErr  error
	signOutErr error

	signIns  int
	signUps  int
	accounts map[string]string // email -> password

	// when set, Current blocks until the channel is closed
	currentGate chan struct{}

	subs []func(session.Event)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: make(map[string]string)}
}

func (p *fakeProvider) Current(ctx context.Context) (*session.Session, error) {
	if p.currentGate != nil {
		<-p.currentGate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	s := *p.current
	return &s, nil
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signIns++
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	stored, ok := p.accounts[email]
	if !ok || stored != password {
		return nil, session.ErrInvalidCredentials
	}
	p.current = &session.Session{SubjectID: "uid-" + email, Email: email}
	s := *p.current
	return &s, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string, meta session.Metadata) (*session.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signUps++
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	if _, ok := p.accounts[email]; ok {
		return nil, session.ErrAccountExists
	}
	p.accounts[email] = password
	p.current = &session.Session{SubjectID: "uid-" + email, Email: email, Metadata: meta}
	s := *p.current
	return &s, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	return p.signOutErr
}

func (p *fakeProvider) Verify(ctx context.Context, token string) (*session.Session, error) {
	return nil, session.ErrInvalidCredentials
}

func (p *fakeProvider) Subscribe(fn func(session.Event)) (cancel func()) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
	return func() {}
}

func setupManager(t *testing.T, provider session.Provider, store *fakeProfileStore) (*Manager, *Cache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := NewCache(client)
	resolver := NewResolver(store, testAdminEmail, testAdminName)
	m := NewManager(provider, resolver, store, cache, testAdminEmail, testAdminName)
	return m, cache
}

func TestManager_Start(t *testing.T) {
	t.Run("no session yields unauthenticated", func(t *testing.T) {
		m, _ := setupManager(t, newFakeProvider(), newFakeProfileStore())
		m.Start(context.Background())
		defer m.Stop()

		assert.Equal(t, StateUnauthenticated, m.State())
		assert.False(t, m.IsAuthenticated())
	})

	t.Run("cached identity is trusted, then remote wins", func(t *testing.T) {
		provider := newFakeProvider()
		store := newFakeProfileStore()
		store.profiles["uid-j"] = identity.Identity{ID: "uid-j", Name: "Jo", Email: "jo@example.com", Role: identity.RoleUser}
		provider.current = &session.Session{SubjectID: "uid-j", Email: "jo@example.com"}

		m, cache := setupManager(t, provider, store)

		// Stale cache claims admin; the remote resolution must overwrite it.
		require.NoError(t, cache.Store(context.Background(),
			identity.Identity{ID: "uid-j", Name: "Jo", Email: "jo@example.com", Role: identity.RoleAdmin}))

		m.Start(context.Background())
		defer m.Stop()

		ident, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, identity.RoleUser, ident.Role)

		cached, err := cache.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, identity.RoleUser, cached.Role)
	})
}

func TestManager_StaleResolution(t *testing.T) {
	t.Run("a superseded resolution result is discarded", func(t *testing.T) {
		provider := newFakeProvider()
		store := newFakeProfileStore()
		provider.current = &session.Session{SubjectID: "uid-x", Email: "x@example.com"}
		provider.currentGate = make(chan struct{})

		m, cache := setupManager(t, provider, store)

		done := make(chan struct{})
		go func() {
			m.Refresh(context.Background())
			close(done)
		}()

		// A strictly later trigger: sign-out bumps the generation while the
		// first resolution is still in flight.
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, m.SignOut(context.Background()))

		close(provider.currentGate)
		<-done

		assert.Equal(t, StateUnauthenticated, m.State())
		assert.False(t, m.IsAuthenticated())

		// The discarded resolution must not have written the cache either.
		_, cacheErr := cache.Load(context.Background())
		assert.ErrorIs(t, cacheErr, ErrCacheMiss)
	})
}

func TestManager_SignIn(t *testing.T) {
	t.Run("seeded roster entry bypasses the remote provider", func(t *testing.T) {
		provider := newFakeProvider()
		m, _ := setupManager(t, provider, newFakeProfileStore())
		m.Start(context.Background())
		defer m.Stop()

		ident, err := m.SignIn(context.Background(), "demo@showfolio.dev", "demo123")
		require.NoError(t, err)
		assert.Equal(t, "Demo User", ident.Name)
		assert.Equal(t, 0, provider.signIns)
		assert.True(t, m.IsAuthenticated())
	})

	t.Run("admin address signs up remotely when no account exists", func(t *testing.T) {
		provider := newFakeProvider()
		store := newFakeProfileStore()
		m, _ := setupManager(t, provider, store)

		ident, err := m.SignIn(context.Background(), testAdminEmail, "s3cret")
		require.NoError(t, err)

		assert.Equal(t, identity.RoleAdmin, ident.Role)
		assert.Equal(t, testAdminName, ident.Name)
		assert.Equal(t, 1, provider.signUps)

		// The resolver upserted the admin profile.
		stored, err := store.GetByID(context.Background(), ident.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.RoleAdmin, stored.Role)
	})

	t.Run("seeded admin password works when the backend is down", func(t *testing.T) {
		provider := newFakeProvider()
		provider.signInErr = errors.New("backend down")
		provider.signUpErr = errors.New("backend down")

		m, _ := setupManager(t, provider, newFakeProfileStore())
		m.Start(context.Background())
		defer m.Stop()

		ident, err := m.SignIn(context.Background(), testAdminEmail, "admin123")
		require.NoError(t, err)
		assert.Equal(t, identity.RoleAdmin, ident.Role)
	})

	t.Run("unknown non-admin credentials yield an authentication error", func(t *testing.T) {
		provider := newFakeProvider()
		m, _ := setupManager(t, provider, newFakeProfileStore())

		_, err := m.SignIn(context.Background(), "nobody@example.com", "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthentication)
		assert.False(t, m.IsAuthenticated())
	})

	t.Run("remote sign-in resolves the identity", func(t *testing.T) {
		provider := newFakeProvider()
		provider.accounts["lee@example.com"] = "pw"
		store := newFakeProfileStore()
		store.profiles["uid-lee@example.com"] = identity.Identity{
			ID: "uid-lee@example.com", Name: "Lee", Email: "lee@example.com", Role: identity.RoleUser,
		}

		m, _ := setupManager(t, provider, store)

		ident, err := m.SignIn(context.Background(), "lee@example.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "Lee", ident.Name)
		assert.True(t, m.IsAuthenticated())
	})
}

func TestManager_ResolveSession(t *testing.T) {
	t.Run("authenticates an externally verified session", func(t *testing.T) {
		m, cache := setupManager(t, newFakeProvider(), newFakeProfileStore())

		ident := m.ResolveSession(context.Background(),
			&session.Session{SubjectID: "uid-jo", Email: "jo@example.com"})

		assert.Equal(t, "uid-jo", ident.ID)
		assert.Equal(t, "jo", ident.Name)
		assert.True(t, m.IsAuthenticated())

		cached, err := cache.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "uid-jo", cached.ID)
	})

	t.Run("a matching subject does not re-resolve", func(t *testing.T) {
		store := newFakeProfileStore()
		m, _ := setupManager(t, newFakeProvider(), store)
		sess := &session.Session{SubjectID: "uid-jo", Email: "jo@example.com"}

		first := m.ResolveSession(context.Background(), sess)
		assert.Equal(t, "jo", first.Name)

		// A profile appearing afterwards is only picked up by the next full
		// resolution, not by repeated requests carrying the same token.
		store.profiles["uid-jo"] = identity.Identity{
			ID: "uid-jo", Name: "Stored", Email: "jo@example.com", Role: identity.RoleUser,
		}
		second := m.ResolveSession(context.Background(), sess)
		assert.Equal(t, "jo", second.Name)
	})

	t.Run("a different subject replaces the current identity", func(t *testing.T) {
		m, _ := setupManager(t, newFakeProvider(), newFakeProfileStore())

		m.ResolveSession(context.Background(),
			&session.Session{SubjectID: "uid-jo", Email: "jo@example.com"})
		m.ResolveSession(context.Background(),
			&session.Session{SubjectID: "uid-kim", Email: "kim@example.com"})

		current, ok := m.Current()
		require.True(t, ok)
		assert.Equal(t, "uid-kim", current.ID)
	})
}

func TestManager_SignOut(t *testing.T) {
	t.Run("local state clears even when termination fails", func(t *testing.T) {
		provider := newFakeProvider()
		provider.accounts["lee@example.com"] = "pw"
		provider.signOutErr = errors.New("termination failed")

		m, cache := setupManager(t, provider, newFakeProfileStore())
		_, err := m.SignIn(context.Background(), "lee@example.com", "pw")
		require.NoError(t, err)

		err = m.SignOut(context.Background())
		require.Error(t, err)

		assert.Equal(t, StateUnauthenticated, m.State())
		_, cacheErr := cache.Load(context.Background())
		assert.ErrorIs(t, cacheErr, ErrCacheMiss)
	})
}

func TestManager_AddIdentity(t *testing.T) {
	adminSignIn := func(t *testing.T, m *Manager) {
		t.Helper()
		_, err := m.SignIn(context.Background(), testAdminEmail, "s3cret")
		require.NoError(t, err)
		require.True(t, m.IsAdmin())
	}

	t.Run("requires admin", func(t *testing.T) {
		m, _ := setupManager(t, newFakeProvider(), newFakeProfileStore())

		_, err := m.AddIdentity(context.Background(), NewIdentity{Email: "new@example.com", Password: "pw"})
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("full success creates account and profile", func(t *testing.T) {
		provider := newFakeProvider()
		store := newFakeProfileStore()
		m, _ := setupManager(t, provider, store)
		adminSignIn(t, m)

		outcome, err := m.AddIdentity(context.Background(), NewIdentity{
			Email: "new@example.com", Password: "pw", Name: "New User",
		})
		require.NoError(t, err)
		assert.Equal(t, AddFull, outcome)

		stored, err := store.GetByID(context.Background(), "uid-new@example.com")
		require.NoError(t, err)
		assert.Equal(t, "New User", stored.Name)
	})

	t.Run("remote failure degrades to roster-only registration", func(t *testing.T) {
		provider := newFakeProvider()
		m, cache := setupManager(t, provider, newFakeProfileStore())
		adminSignIn(t, m)
		provider.signUpErr = errors.New("backend down")

		outcome, err := m.AddIdentity(context.Background(), NewIdentity{
			Email: "offline@example.com", Password: "pw", Name: "Offline",
		})
		require.NoError(t, err)
		assert.Equal(t, AddDegraded, outcome)

		entry, err := cache.RosterByEmail(context.Background(), "offline@example.com")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "pw", entry.Password)
	})
}

func TestManager_RemoveIdentity(t *testing.T) {
	t.Run("rejects removing the signed-in identity", func(t *testing.T) {
		provider := newFakeProvider()
		m, _ := setupManager(t, provider, newFakeProfileStore())
		ident, err := m.SignIn(context.Background(), testAdminEmail, "s3cret")
		require.NoError(t, err)

		err = m.RemoveIdentity(context.Background(), ident.ID)
		assert.ErrorIs(t, err, ErrSelfRemoval)
	})

	t.Run("removes another identity", func(t *testing.T) {
		provider := newFakeProvider()
		store := newFakeProfileStore()
		store.profiles["uid-old"] = identity.Identity{ID: "uid-old", Email: "old@example.com", Role: identity.RoleUser}

		m, _ := setupManager(t, provider, store)
		_, err := m.SignIn(context.Background(), testAdminEmail, "s3cret")
		require.NoError(t, err)

		require.NoError(t, m.RemoveIdentity(context.Background(), "uid-old"))
		_, err = store.GetByID(context.Background(), "uid-old")
		assert.ErrorIs(t, err, identity.ErrProfileNotFound)
	})
}
