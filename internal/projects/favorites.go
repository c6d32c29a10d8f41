package projects

import (
	"context"
	"fmt"
	"sync"
)

// FavoritesStorage is the remote side of the favorites sets.
type FavoritesStorage interface {
	Add(ctx context.Context, userID, projectID string) error
	Remove(ctx context.Context, userID, projectID string) error
	ListByUser(ctx context.Context, userID string) ([]string, error)
}

// Favorites holds the per-identity favorite project-id sets. Writes are
// optimistic: the local set changes first and is retained even when the
// remote persistence fails; the failure is only reported back.
type Favorites struct {
	repo FavoritesStorage
	auth AuthState

	mu   sync.Mutex
	sets map[string]map[string]bool // userID -> set of project ids
}

func NewFavorites(repo FavoritesStorage, auth AuthState) *Favorites {
	return &Favorites{
		repo: repo,
		auth: auth,
		sets: make(map[string]map[string]bool),
	}
}

// Load replaces the local set for the signed-in identity with the remote
// one.
func (f *Favorites) Load(ctx context.Context) ([]string, error) {
	ident, ok := f.auth.Current()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	ids, err := f.repo.ListByUser(ctx, ident.ID)
	if err != nil {
		return nil, fmt.Errorf("could not load favorites: %w", err)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	f.mu.Lock()
	f.sets[ident.ID] = set
	f.mu.Unlock()
	return ids, nil
}

// Add marks a project as a favorite of the signed-in identity. The local
// change sticks even when the remote write fails.
func (f *Favorites) Add(ctx context.Context, projectID string) error {
	ident, ok := f.auth.Current()
	if !ok {
		return ErrNotAuthenticated
	}

	f.mu.Lock()
	if f.sets[ident.ID] == nil {
		f.sets[ident.ID] = make(map[string]bool)
	}
	f.sets[ident.ID][projectID] = true
	f.mu.Unlock()

	if err := f.repo.Add(ctx, ident.ID, projectID); err != nil {
		return fmt.Errorf("favorite saved locally but not remotely: %w", err)
	}
	return nil
}

// Remove unmarks a favorite, with the same optimistic semantics as Add.
func (f *Favorites) Remove(ctx context.Context, projectID string) error {
	ident, ok := f.auth.Current()
	if !ok {
		return ErrNotAuthenticated
	}

	f.mu.Lock()
	delete(f.sets[ident.ID], projectID)
	f.mu.Unlock()

	if err := f.repo.Remove(ctx, ident.ID, projectID); err != nil {
		return fmt.Errorf("favorite removed locally but not remotely: %w", err)
	}
	return nil
}

// Contains reports membership in the signed-in identity's favorite set.
func (f *Favorites) Contains(projectID string) bool {
	ident, ok := f.auth.Current()
	if !ok {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[ident.ID][projectID]
}

// List returns the signed-in identity's locally known favorites.
func (f *Favorites) List() ([]string, error) {
	ident, ok := f.auth.Current()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sets[ident.ID]))
	for id := range f.sets[ident.ID] {
		out = append(out, id)
	}
	return out, nil
}
