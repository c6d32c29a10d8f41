package projects

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo persists projects in the projects table.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const projectColumns = `
id::text, title, coalesce(description, ''), coalesce(cover_image, ''),
coalesce(screenshots, '{}'), coalesce(demo_url, ''), coalesce(category, ''),
coalesce(tags, '{}'), coalesce(features, '{}'), created_at, updated_at,
coalesce(user_id::text, '')`

// List returns every project ordered by creation time, newest first.
func (r *Repo) List(ctx context.Context) ([]Project, error) {
	q := `select ` + projectColumns + `
from projects
order by created_at desc;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Project, error) {
	q := `select ` + projectColumns + `
from projects
where id = $1::uuid;
`
	row := r.db.QueryRow(ctx, q, id)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Insert creates a project and returns the created row, with the
// store-assigned id and timestamps.
func (r *Repo) Insert(ctx context.Context, d Draft) (*Project, error) {
	q := `
insert into projects (title, description, cover_image, screenshots, demo_url, category, tags, features, user_id)
values ($1, nullif($2, ''), nullif($3, ''), $4, nullif($5, ''), nullif($6, ''), $7, $8, nullif($9, '')::uuid)
returning ` + projectColumns + `;
`
	row := r.db.QueryRow(ctx, q,
		d.Title, d.Description, d.CoverImage, d.Screenshots,
		d.DemoURL, d.Category, d.Tags, d.Features, d.UserID)

	p, err := scanProject(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update replaces every mutable field and returns the updated row.
func (r *Repo) Update(ctx context.Context, p Project) (*Project, error) {
	q := `
update projects
set title = $2, description = nullif($3, ''), cover_image = nullif($4, ''),
    screenshots = $5, demo_url = nullif($6, ''), category = nullif($7, ''),
    tags = $8, features = $9, updated_at = now()
where id = $1::uuid
returning ` + projectColumns + `;
`
	row := r.db.QueryRow(ctx, q,
		p.ID, p.Title, p.Description, p.CoverImage, p.Screenshots,
		p.DemoURL, p.Category, p.Tags, p.Features)

	updated, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a project by id. Returns false when the row was already
// gone, which callers treat as a no-op success.
func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	ct, err := r.db.Exec(ctx, `delete from projects where id = $1::uuid;`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// scanProject is the single total mapping from a row to a Project. Every
// nullable column is coalesced in SQL, so the scan targets are plain.
func scanProject(row pgx.Row) (Project, error) {
	var p Project
	var createdAt, updatedAt time.Time
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.CoverImage, &p.Screenshots,
		&p.DemoURL, &p.Category, &p.Tags, &p.Features,
		&createdAt, &updatedAt, &p.UserID,
	)
	if err != nil {
		return Project{}, err
	}
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	if p.Screenshots == nil {
		p.Screenshots = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	return p, nil
}
