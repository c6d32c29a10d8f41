package projects

import "strings"

// DefaultPageSize matches the gallery grid.
const DefaultPageSize = 9

// View derives a filtered, paginated read of a project list. It never
// mutates the underlying list; the result is recomputed on every call.
type View struct {
	Search   string
	Category string
	Tags     []string
	Page     int
	PageSize int
}

// PageResult is one page of the filtered list.
type PageResult struct {
	Items      []Project `json:"items"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Total      int       `json:"total"`
}

// Apply filters and paginates items. A page past the end clamps to the
// last valid page.
func (v View) Apply(items []Project) PageResult {
	filtered := make([]Project, 0, len(items))
	for _, p := range items {
		if v.matches(p) {
			filtered = append(filtered, p)
		}
	}

	pageSize := v.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	page := v.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return PageResult{
		Items:      filtered[start:end],
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}
}

func (v View) matches(p Project) bool {
	if v.Category != "" && p.Category != v.Category {
		return false
	}

	if len(v.Tags) > 0 && !containsAny(p.Tags, v.Tags) {
		return false
	}

	if v.Search != "" {
		needle := strings.ToLower(v.Search)
		if !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) &&
			!tagContains(p.Tags, needle) {
			return false
		}
	}

	return true
}

func tagContains(tags []string, needle string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func containsAny(haystack, wanted []string) bool {
	for _, w := range wanted {
		for _, h := range haystack {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
