package projects

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrNotAuthenticated = errors.New("must be logged in")
	ErrNotAdmin         = errors.New("admin role required")
)

// Project is one showcased item. ID and CreatedAt are assigned by the
// backing store and immutable afterwards.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CoverImage  string    `json:"cover_image"`
	Screenshots []string  `json:"screenshots"`
	DemoURL     string    `json:"demo_url"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Features    []string  `json:"features"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      string    `json:"user_id"`
}

// Draft is an admin-authored submission before the store assigns id and
// creation timestamp.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CoverImage  string   `json:"cover_image"`
	Screenshots []string `json:"screenshots"`
	DemoURL     string   `json:"demo_url"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Features    []string `json:"features"`
	UserID      string   `json:"user_id"`
}

func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(d.Screenshots) == 0 {
		return fmt.Errorf("at least one screenshot is required")
	}
	return nil
}

// Normalize deduplicates tags and features, preserving first-seen order.
func (d *Draft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Tags = dedupe(d.Tags)
	d.Features = dedupe(d.Features)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
