package core

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountStore defines persistence operations for principals.
type AccountStore interface {
	// FindByUsername prefers the user record and falls back to the oldest
	// admin record with that username.
	FindByUsername(ctx context.Context, username string) (*Principal, error)
	// ExistsUser reports whether a user-kind record has this username.
	ExistsUser(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, p *Principal) (*Principal, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page, perPage int) ([]AccountSummary, int, error)
	// UpdateAuthorities applies mutate to the resolved principal's authorities
	// atomically and returns the stored result.
	UpdateAuthorities(ctx context.Context, username string, mutate func(RoleSet)) (RoleSet, error)
	HasAdmin(ctx context.Context) (bool, error)
	Ping(ctx context.Context) error
}

var errInvalidPagination = errors.New("invalid pagination")

// pageOffset converts a 1-based page into a row offset, rejecting pages
// whose offset does not fit in an int.
func pageOffset(page, perPage int) (int, error) {
	if page <= 0 || perPage <= 0 || page-1 > math.MaxInt/perPage {
		return 0, errInvalidPagination
	}
	return (page - 1) * perPage, nil
}

// PgAccountStore implements AccountStore using pgxpool.
type PgAccountStore struct {
	db *pgxpool.Pool
}

func NewPgAccountStore(db *pgxpool.Pool) *PgAccountStore {
	return &PgAccountStore{db: db}
}

const accountColumns = `id, username, password_hash, kind, authorities, created_at, updated_at`

// user record first, then the oldest admin
const resolveOrder = `ORDER BY (kind = 'user') DESC, id ASC LIMIT 1`

func scanPrincipal(row pgx.Row) (*Principal, error) {
	var (
		p     Principal
		kind  string
		roles []string
	)
	if err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &kind, &roles, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	p.Kind = AccountKind(kind)
	p.Authorities = RoleSetFromStrings(roles)
	return &p, nil
}

func (r *PgAccountStore) FindByUsername(ctx context.Context, username string) (*Principal, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE username=$1 ` + resolveOrder
	return scanPrincipal(r.db.QueryRow(ctx, q, username))
}

func (r *PgAccountStore) ExistsUser(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM accounts WHERE username=$1 AND kind='user')`
	var exists bool
	if err := r.db.QueryRow(ctx, q, username).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgAccountStore) Create(ctx context.Context, p *Principal) (*Principal, error) {
	const q = `INSERT INTO accounts (username, password_hash, kind, authorities)
VALUES ($1,$2,$3,$4) RETURNING ` + accountColumns
	created, err := scanPrincipal(r.db.QueryRow(ctx, q, p.Username, p.PasswordHash, string(p.Kind), p.Authorities.Strings()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgAccountStore) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// List returns paginated accounts without password hash.
func (r *PgAccountStore) List(ctx context.Context, page, perPage int) ([]AccountSummary, int, error) {
	offset, err := pageOffset(page, perPage)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, username, kind, authorities, created_at FROM accounts ORDER BY id LIMIT $1 OFFSET $2`, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]AccountSummary, 0, perPage)
	for rows.Next() {
		var (
			a     AccountSummary
			kind  string
			roles []string
		)
		if err := rows.Scan(&a.ID, &a.Username, &kind, &roles, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		a.Kind = AccountKind(kind)
		a.Authorities = RoleSetFromStrings(roles)
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// UpdateAuthorities locks the resolved row for the duration of the
// read-modify-write so concurrent grants are not lost.
func (r *PgAccountStore) UpdateAuthorities(ctx context.Context, username string, mutate func(RoleSet)) (RoleSet, error) {
	var result RoleSet
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		q := `SELECT ` + accountColumns + ` FROM accounts WHERE username=$1 ` + resolveOrder + ` FOR UPDATE`
		p, err := scanPrincipal(tx.QueryRow(ctx, q, username))
		if err != nil {
			return err
		}
		roles := p.Authorities.Clone()
		mutate(roles)
		if _, err := tx.Exec(ctx, `UPDATE accounts SET authorities=$1, updated_at=now() WHERE id=$2`, roles.Strings(), p.ID); err != nil {
			return fmt.Errorf("update authorities: %w", err)
		}
		result = roles
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgAccountStore) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM accounts WHERE 'ADMIN' = ANY(authorities) LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PgAccountStore) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
