package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/showfolio/showfolio-backend/internal/identity"
	"github.com/showfolio/showfolio-backend/internal/session"
)

type State int

const (
	StateUnresolved State = iota
	StateResolving
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unresolved"
	}
}

// AddOutcome distinguishes a fully created identity from a degraded,
// roster-only registration.
type AddOutcome int

const (
	AddFull AddOutcome = iota
	AddDegraded
)

// NewIdentity is an admin-authored account creation request.
type NewIdentity struct {
	Email       string
	Password    string
	Name        string
	Role        identity.Role
	Permissions []identity.Category
}

// Manager owns the current-user state. It re-resolves the identity on
// Start, on Refresh and on every session-provider event, caches the
// resolved identity, and answers authentication/role queries.
type Manager struct {
	provider session.Provider
	resolver *Resolver
	profiles ProfileStore
	cache    *Cache

	adminEmail string
	adminName  string

	mu      sync.Mutex
	state   State
	current *identity.Identity
	gen     uint64 // resolution generation; last-triggered wins

	unsubscribe func()
}

func NewManager(provider session.Provider, resolver *Resolver, profiles ProfileStore, cache *Cache, adminEmail, adminName string) *Manager {
	return &Manager{
		provider:   provider,
		resolver:   resolver,
		profiles:   profiles,
		cache:      cache,
		adminEmail: adminEmail,
		adminName:  adminName,
		state:      StateUnresolved,
	}
}

// Start loads the cached identity optimistically, seeds the roster,
// subscribes to session events and kicks off an initial resolution. The
// remote result overwrites the cached one once it lands.
func (m *Manager) Start(ctx context.Context) {
	m.seedRoster(ctx)

	if cached, err := m.cache.Load(ctx); err == nil {
		m.mu.Lock()
		m.state = StateAuthenticated
		m.current = cached
		m.mu.Unlock()
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Printf("auth: cached identity load failed: %v", err)
	}

	m.unsubscribe = m.provider.Subscribe(func(ev session.Event) {
		m.Refresh(context.Background())
	})

	m.Refresh(ctx)
}

func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Refresh triggers a resolution against the current session. Called on
// startup, on navigation, and on every session event.
func (m *Manager) Refresh(ctx context.Context) {
	gen := m.beginResolution()

	sess, err := m.provider.Current(ctx)
	if err != nil {
		log.Printf("auth: current session lookup failed: %v", err)
		m.apply(ctx, gen, nil)
		return
	}
	if sess == nil {
		m.apply(ctx, gen, nil)
		return
	}

	ident := m.resolver.Resolve(ctx, sess)
	m.apply(ctx, gen, &ident)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the resolved identity, if any.
func (m *Manager) Current() (identity.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return identity.Identity{}, false
	}
	return *m.current, true
}

func (m *Manager) IsAuthenticated() bool {
	_, ok := m.Current()
	return ok
}

func (m *Manager) IsAdmin() bool {
	ident, ok := m.Current()
	return ok && ident.IsAdmin()
}

// SignIn authenticates an email/password pair.
//
// A seeded roster entry with a matching password succeeds immediately
// without a remote call. The distinguished admin address additionally gets
// a remote sign-up when sign-in reports unknown credentials, and a roster
// password match as the last resort when every remote avenue fails.
func (m *Manager) SignIn(ctx context.Context, email, password string) (identity.Identity, error) {
	if ident, ok := m.signInFromRoster(ctx, email, password); ok {
		return ident, nil
	}

	if email == m.adminEmail {
		return m.signInAdmin(ctx, email, password)
	}

	sess, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return m.resolveNow(ctx, sess), nil
}

func (m *Manager) signInAdmin(ctx context.Context, email, password string) (identity.Identity, error) {
	sess, err := m.provider.SignIn(ctx, email, password)
	if err == nil {
		return m.resolveNow(ctx, sess), nil
	}

	if errors.Is(err, session.ErrInvalidCredentials) || errors.Is(err, session.ErrUnsupported) {
		// No remote account yet: establish the admin account on the fly.
		sess, signupErr := m.provider.SignUp(ctx, email, password, session.Metadata{
			Name: m.adminName,
			Role: string(identity.RoleAdmin),
		})
		if signupErr == nil {
			return m.resolveNow(ctx, sess), nil
		}
		log.Printf("auth: admin remote sign-up failed: %v", signupErr)
	} else {
		log.Printf("auth: admin remote sign-in failed: %v", err)
	}

	// Last resort: a roster password match.
	if ident, ok := m.signInFromRoster(ctx, email, password); ok {
		return ident, nil
	}
	return identity.Identity{}, fmt.Errorf("%w for %s", ErrAuthentication, email)
}

func (m *Manager) signInFromRoster(ctx context.Context, email, password string) (identity.Identity, bool) {
	entry, err := m.cache.RosterByEmail(ctx, email)
	if err != nil {
		log.Printf("auth: roster lookup failed: %v", err)
		return identity.Identity{}, false
	}
	if entry == nil || entry.Password == "" || entry.Password != password {
		return identity.Identity{}, false
	}

	ident := entry.Identity
	gen := m.beginResolution()
	m.apply(ctx, gen, &ident)
	return ident, true
}

// ResolveSession installs the identity for a session verified outside the
// manager, typically a bearer token on an incoming request. A session whose
// subject already matches the resolved identity is a no-op.
func (m *Manager) ResolveSession(ctx context.Context, sess *session.Session) identity.Identity {
	if current, ok := m.Current(); ok && current.ID == sess.SubjectID {
		return current
	}
	return m.resolveNow(ctx, sess)
}

// SignOut clears local state and the cache first, then asks the provider
// to terminate the session. A termination failure is reported but the
// already-cleared local state is not reverted.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.gen++
	m.state = StateUnauthenticated
	m.current = nil
	m.mu.Unlock()

	if err := m.cache.Clear(ctx); err != nil {
		log.Printf("auth: cache clear on sign-out failed: %v", err)
	}

	if err := m.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("session termination failed: %w", err)
	}
	return nil
}

// AddIdentity creates an account remotely; when the remote call fails the
// identity is registered in the local roster only, surfaced as AddDegraded.
func (m *Manager) AddIdentity(ctx context.Context, req NewIdentity) (AddOutcome, error) {
	if !m.IsAdmin() {
		return AddFull, ErrNotAdmin
	}

	role := req.Role
	if role != identity.RoleAdmin {
		role = identity.RoleUser
	}

	sess, err := m.provider.SignUp(ctx, req.Email, req.Password, session.Metadata{
		Name: req.Name,
		Role: string(role),
	})
	if err == nil {
		ident := identity.Identity{
			ID:          sess.SubjectID,
			Name:        req.Name,
			Email:       req.Email,
			Role:        role,
			Permissions: req.Permissions,
		}
		if err := m.profiles.Upsert(ctx, ident); err != nil {
			log.Printf("auth: profile upsert for new identity failed: %v", err)
		}
		if err := m.cache.UpsertRosterEntry(ctx, RosterEntry{Identity: ident}); err != nil {
			log.Printf("auth: roster upsert for new identity failed: %v", err)
		}
		return AddFull, nil
	}

	if errors.Is(err, session.ErrAccountExists) {
		return AddFull, fmt.Errorf("account for %s already exists", req.Email)
	}

	log.Printf("auth: remote account creation failed, registering %s locally: %v", req.Email, err)
	entry := RosterEntry{
		Identity: identity.Identity{
			ID:          "roster-" + identity.NameFromEmail(req.Email),
			Name:        req.Name,
			Email:       req.Email,
			Role:        role,
			Permissions: req.Permissions,
		},
		Password: req.Password,
	}
	if err := m.cache.UpsertRosterEntry(ctx, entry); err != nil {
		return AddDegraded, fmt.Errorf("local registration failed: %w", err)
	}
	return AddDegraded, nil
}

// RemoveIdentity deletes an identity. Removing the currently signed-in
// identity is rejected synchronously, never attempted remotely.
func (m *Manager) RemoveIdentity(ctx context.Context, id string) error {
	if !m.IsAdmin() {
		return ErrNotAdmin
	}
	if current, ok := m.Current(); ok && current.ID == id {
		return ErrSelfRemoval
	}

	if err := m.profiles.Delete(ctx, id); err != nil && !errors.Is(err, identity.ErrProfileNotFound) {
		return fmt.Errorf("remove identity: %w", err)
	}
	if err := m.cache.RemoveRosterEntry(ctx, id); err != nil {
		log.Printf("auth: roster removal for %s failed: %v", id, err)
	}
	return nil
}

// Identities lists known identities for the admin page: the profile table
// plus any roster-only (degraded) registrations.
func (m *Manager) Identities(ctx context.Context) ([]identity.Identity, error) {
	if !m.IsAdmin() {
		return nil, ErrNotAdmin
	}

	profiles, err := m.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}

	seen := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		seen[p.Email] = true
	}

	roster, err := m.cache.Roster(ctx)
	if err != nil {
		log.Printf("auth: roster listing failed: %v", err)
		return profiles, nil
	}
	for _, entry := range roster {
		if !seen[entry.Email] {
			profiles = append(profiles, entry.Identity)
		}
	}
	return profiles, nil
}

// beginResolution bumps the generation and marks the manager Resolving.
func (m *Manager) beginResolution() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.state = StateResolving
	return m.gen
}

// apply installs a resolution result unless a strictly later resolution
// has been triggered since. The cache writes stay under the lock so a
// superseded resolution can never land its identity in the cache after a
// later one.
func (m *Manager) apply(ctx context.Context, gen uint64, ident *identity.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}

	if ident == nil {
		m.state = StateUnauthenticated
		m.current = nil
		if err := m.cache.Clear(ctx); err != nil {
			log.Printf("auth: cache clear failed: %v", err)
		}
		return
	}

	m.state = StateAuthenticated
	m.current = ident

	if err := m.cache.Store(ctx, *ident); err != nil {
		log.Printf("auth: cache store failed: %v", err)
	}
	if err := m.cache.UpsertRosterEntry(ctx, RosterEntry{Identity: *ident}); err != nil {
		log.Printf("auth: roster upsert failed: %v", err)
	}
}

// resolveNow runs a resolution for a just-established session and installs
// its result under a fresh generation.
func (m *Manager) resolveNow(ctx context.Context, sess *session.Session) identity.Identity {
	gen := m.beginResolution()
	ident := m.resolver.Resolve(ctx, sess)
	m.apply(ctx, gen, &ident)
	return ident
}
