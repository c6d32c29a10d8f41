package projects

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/showfolio/showfolio-backend/internal/identity"
)

// Repository is the remote backing store the Store reads from and writes
// to.
type Repository interface {
	List(ctx context.Context) ([]Project, error)
	Insert(ctx context.Context, d Draft) (*Project, error)
	Update(ctx context.Context, p Project) (*Project, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// RoleChecker performs the direct remote role check run immediately before
// every destructive write, guarding against stale local role state. It is
// advisory, not a lock: a concurrent role downgrade can still race an
// in-flight write.
type RoleChecker interface {
	RoleOf(ctx context.Context, userID string) (identity.Role, error)
}

// AuthState answers the store's is-authenticated / is-admin questions.
type AuthState interface {
	Current() (identity.Identity, bool)
	IsAdmin() bool
}

// FeedSource is the subscribable realtime change feed of the backing
// store.
type FeedSource interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, fn func(Event)) (cancel func())
}

// Store owns the canonical in-memory project list. All remote results and
// realtime notifications are reconciled into it; readers get copies.
type Store struct {
	repo  Repository
	roles RoleChecker
	auth  AuthState
	feed  FeedSource

	mu    sync.Mutex
	items []Project

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int

	cancelFeed func()
}

func NewStore(repo Repository, roles RoleChecker, auth AuthState, feed FeedSource) *Store {
	return &Store{
		repo:  repo,
		roles: roles,
		auth:  auth,
		feed:  feed,
		subs:  make(map[int]chan Event),
	}
}

// Start performs the initial refresh and attaches the store to the change
// feed. Feed handlers mutate store state only, so the timing of any one
// HTTP client's teardown cannot drop an update.
func (s *Store) Start(ctx context.Context) {
	s.Refresh(ctx)
	if s.feed != nil {
		s.cancelFeed = s.feed.Subscribe(ctx, s.Reconcile)
	}
}

func (s *Store) Stop() {
	if s.cancelFeed != nil {
		s.cancelFeed()
		s.cancelFeed = nil
	}
}

// Projects returns a copy of the current list.
func (s *Store) Projects() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Project, len(s.items))
	copy(out, s.items)
	return out
}

// Refresh replaces the whole local list with a fresh fetch. A transport
// failure degrades to the seed dataset rather than an error state. When a
// refresh and a feed event land interleaved, the last write wins; no merge
// is attempted because feed events are idempotent against the eventually
// consistent fetch.
func (s *Store) Refresh(ctx context.Context) {
	items, err := s.repo.List(ctx)
	if err != nil {
		log.Printf("projects: refresh failed, falling back to seed data: %v", err)
		items = seedProjects()
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Create submits a draft and folds the store-assigned id and timestamps
// into a Project prepended to the local list.
func (s *Store) Create(ctx context.Context, d Draft) (*Project, error) {
	ident, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.UserID == "" {
		d.UserID = ident.ID
	}

	created, err := s.repo.Insert(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("could not save project: %w", err)
	}

	s.mu.Lock()
	s.items = append([]Project{*created}, s.items...)
	s.mu.Unlock()

	s.publish(ctx, Event{Kind: EventInsert, ProjectID: created.ID, Project: created})
	return created, nil
}

// Update replaces every mutable field of the matching project.
func (s *Store) Update(ctx context.Context, p Project) (*Project, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	p.Tags = dedupe(p.Tags)
	p.Features = dedupe(p.Features)

	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("could not update project: %w", err)
	}

	s.mu.Lock()
	if i := s.indexOf(updated.ID); i >= 0 {
		s.items[i] = *updated
	}
	s.mu.Unlock()

	s.publish(ctx, Event{Kind: EventUpdate, ProjectID: updated.ID, Project: updated})
	return updated, nil
}

// Remove deletes a project. A row already deleted by another client is a
// no-op success.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("could not delete project: %w", err)
	}

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	s.mu.Unlock()

	if existed {
		s.publish(ctx, Event{Kind: EventDelete, ProjectID: id})
	}
	return nil
}

// Reconcile merges one realtime notification into the local list. All
// three rules are idempotent: applying the same notification twice leaves
// state unchanged after the first application.
func (s *Store) Reconcile(ev Event) {
	s.mu.Lock()
	switch ev.Kind {
	case EventInsert:
		// Duplicate suppression: our own optimistic insert must not be
		// re-applied when the feed echoes it back.
		if ev.Project != nil && s.indexOf(ev.Project.ID) < 0 {
			s.items = append(s.items, *ev.Project)
		}
	case EventUpdate:
		if ev.Project != nil {
			if i := s.indexOf(ev.Project.ID); i >= 0 {
				s.items[i] = *ev.Project
			}
		}
	case EventDelete:
		if i := s.indexOf(ev.ProjectID); i >= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		}
	}
	s.mu.Unlock()

	s.fanOut(ev)
}

// Subscribe delivers every reconciled event to a channel until cancelled.
// Used by the SSE stream handlers.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
		s.subMu.Unlock()
	}
}

func (s *Store) requireAdmin(ctx context.Context) (identity.Identity, error) {
	ident, ok := s.auth.Current()
	if !ok {
		return identity.Identity{}, ErrNotAuthenticated
	}
	if !s.auth.IsAdmin() {
		return identity.Identity{}, ErrNotAdmin
	}

	// Remote role check right before the write; stale local admin state
	// must not authorize a mutation.
	role, err := s.roles.RoleOf(ctx, ident.ID)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("could not verify admin role: %w", err)
	}
	if role != identity.RoleAdmin {
		return identity.Identity{}, ErrNotAdmin
	}
	return ident, nil
}

// publish notifies other clients of a local mutation. The event echoes
// back through the subscription and fans out to stream consumers there;
// reconciliation makes the echo a no-op locally. Without a feed the fan-out
// happens directly.
func (s *Store) publish(ctx context.Context, ev Event) {
	if s.feed == nil {
		s.fanOut(ev)
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		log.Printf("projects: feed publish failed: %v", err)
		s.fanOut(ev)
	}
}

func (s *Store) fanOut(ev Event) {
	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default: // slow consumer, drop
		}
	}
	s.subMu.Unlock()
}

// indexOf must be called with s.mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
