package projects

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FavoritesRepo persists the per-identity favorite sets in the favorites
// join table.
type FavoritesRepo struct {
	db *pgxpool.Pool
}

func NewFavoritesRepo(db *pgxpool.Pool) *FavoritesRepo {
	return &FavoritesRepo{db: db}
}

func (r *FavoritesRepo) Add(ctx context.Context, userID, projectID string) error {
	const q = `
insert into favorites (user_id, project_id)
values ($1, $2::uuid)
on conflict (user_id, project_id) do nothing;
`
	_, err := r.db.Exec(ctx, q, userID, projectID)
	return err
}

func (r *FavoritesRepo) Remove(ctx context.Context, userID, projectID string) error {
	const q = `delete from favorites where user_id = $1 and project_id = $2::uuid;`
	_, err := r.db.Exec(ctx, q, userID, projectID)
	return err
}

func (r *FavoritesRepo) ListByUser(ctx context.Context, userID string) ([]string, error) {
	const q = `select project_id::text from favorites where user_id = $1;`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
