package projects

import (
	"time"

	"github.com/google/uuid"
)

// seedProjects is the fixed fallback dataset used when a full refresh
// cannot reach the backing store. Each item gets a freshly generated id so
// later reconciliation never collides with real rows.
func seedProjects() []Project {
	now := time.Now().UTC()
	return []Project{
		{
			ID:          uuid.New().String(),
			Title:       "Taskboard",
			Description: "Kanban-style task tracker with drag-and-drop lanes and burndown charts.",
			CoverImage:  "seeds/taskboard/cover.png",
			Screenshots: []string{"seeds/taskboard/board.png", "seeds/taskboard/charts.png"},
			DemoURL:     "https://demo.showfolio.dev/taskboard",
			Category:    "Web App",
			Tags:        []string{"productivity", "kanban"},
			Features:    []string{"Drag-and-drop lanes", "Burndown charts", "Team sharing"},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          uuid.New().String(),
			Title:       "Trailhead",
			Description: "Offline-first hiking companion with GPX route recording.",
			CoverImage:  "seeds/trailhead/cover.png",
			Screenshots: []string{"seeds/trailhead/map.png"},
			DemoURL:     "https://demo.showfolio.dev/trailhead",
			Category:    "Mobile App",
			Tags:        []string{"maps", "outdoors"},
			Features:    []string{"Offline maps", "GPX recording"},
			CreatedAt:   now.Add(-time.Hour),
			UpdatedAt:   now.Add(-time.Hour),
		},
		{
			ID:          uuid.New().String(),
			Title:       "Atelier",
			Description: "Portfolio site for a photography studio with gallery lightboxes.",
			CoverImage:  "seeds/atelier/cover.png",
			Screenshots: []string{"seeds/atelier/gallery.png", "seeds/atelier/contact.png"},
			DemoURL:     "https://demo.showfolio.dev/atelier",
			Category:    "Website",
			Tags:        []string{"photography", "gallery"},
			Features:    []string{"Lightbox galleries", "Contact form"},
			CreatedAt:   now.Add(-2 * time.Hour),
			UpdatedAt:   now.Add(-2 * time.Hour),
		},
	}
}
