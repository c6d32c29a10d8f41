package auth

import (
	"context"
	"log"

	"github.com/showfolio/showfolio-backend/internal/identity"
)

// DefaultRoster returns the seeded test roster. These entries allow
// sign-in without a remote round trip and act as the last-resort fallback
// when every remote avenue fails.
func DefaultRoster(adminEmail, adminName string) []RosterEntry {
	return []RosterEntry{
		{
			Identity: identity.Identity{
				ID:    "roster-admin",
				Name:  adminName,
				Email: adminEmail,
				Role:  identity.RoleAdmin,
			},
			Password: "admin123",
		},
		{
			Identity: identity.Identity{
				ID:    "roster-demo",
				Name:  "Demo User",
				Email: "demo@showfolio.dev",
				Role:  identity.RoleUser,
				Permissions: []identity.Category{
					identity.CategoryWebApp,
					identity.CategoryWebsite,
				},
			},
			Password: "demo123",
		},
	}
}

// seedRoster writes the default roster entries that are not yet present.
func (m *Manager) seedRoster(ctx context.Context) {
	existing, err := m.cache.Roster(ctx)
	if err != nil {
		log.Printf("auth: failed to read roster for seeding: %v", err)
		return
	}

	present := make(map[string]bool, len(existing))
	for _, e := range existing {
		present[e.ID] = true
	}

	for _, entry := range DefaultRoster(m.adminEmail, m.adminName) {
		if present[entry.ID] {
			continue
		}
		if err := m.cache.UpsertRosterEntry(ctx, entry); err != nil {
			log.Printf("auth: failed to seed roster entry %s: %v", entry.Email, err)
		}
	}
}
