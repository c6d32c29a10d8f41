package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type account struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
}

type accounts struct {
	db *pgxpool.Pool
}

func (a *accounts) getByEmail(ctx context.Context, email string) (*account, error) {
	const q = `
select id::text, email, password_hash, coalesce(name, ''), coalesce(role, 'user'), created_at
from auth_accounts
where email = $1;
`
	var acc account
	err := a.db.QueryRow(ctx, q, email).
		Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Name, &acc.Role, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (a *accounts) create(ctx context.Context, email, passwordHash, name, role string) (*account, error) {
	const q = `
insert into auth_accounts (email, password_hash, name, role)
values ($1, $2, nullif($3, ''), $4)
returning id::text, email, password_hash, coalesce(name, ''), coalesce(role, 'user'), created_at;
`
	var acc account
	err := a.db.QueryRow(ctx, q, email, passwordHash, name, role).
		Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Name, &acc.Role, &acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAccountExists
		}
		return nil, err
	}
	return &acc, nil
}
