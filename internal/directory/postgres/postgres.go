// Package postgres is a directory backed by synced user and group tables.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"principalcheck/internal/directory"
	"principalcheck/internal/principal/models"
)

//go:embed schema.sql
var schema string

// Directory answers lookups from the directory_users and directory_groups
// tables. The tables are authoritative, so a miss is always NotFound.
type Directory struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// EnsureSchema creates the directory tables if they do not exist.
func (d *Directory) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create directory schema: %w", err)
	}
	return nil
}

// UpsertUser inserts or replaces a user row.
func (d *Directory) UpsertUser(ctx context.Context, u models.User) error {
	query := `
		INSERT INTO directory_users (id, unique_name, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			unique_name = EXCLUDED.unique_name,
			display_name = EXCLUDED.display_name
	`
	if _, err := d.db.ExecContext(ctx, query, u.ID, u.UniqueName, u.DisplayName); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpsertGroup inserts or replaces a group row.
func (d *Directory) UpsertGroup(ctx context.Context, g models.Group) error {
	query := `
		INSERT INTO directory_groups (id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name
	`
	if _, err := d.db.ExecContext(ctx, query, g.ID, g.DisplayName); err != nil {
		return fmt.Errorf("upsert group: %w", err)
	}
	return nil
}

// LookupUser implements directory.Directory, matching id or unique name
// case-insensitively.
func (d *Directory) LookupUser(ctx context.Context, name string) (*models.User, error) {
	var u models.User
	err := d.db.QueryRowContext(ctx, `
		SELECT id, unique_name, display_name
		FROM directory_users
		WHERE LOWER(id) = LOWER($1) OR LOWER(unique_name) = LOWER($1)
		ORDER BY (LOWER(id) = LOWER($1)) DESC
		LIMIT 1
	`, name).Scan(&u.ID, &u.UniqueName, &u.DisplayName)
	if err != nil {
		return nil, translate("query directory users", err)
	}
	return &u, nil
}

// LookupGroup implements directory.Directory, matching id or display name
// case-insensitively.
func (d *Directory) LookupGroup(ctx context.Context, name string) (*models.Group, error) {
	var g models.Group
	err := d.db.QueryRowContext(ctx, `
		SELECT id, display_name
		FROM directory_groups
		WHERE LOWER(id) = LOWER($1) OR LOWER(display_name) = LOWER($1)
		ORDER BY (LOWER(id) = LOWER($1)) DESC
		LIMIT 1
	`, name).Scan(&g.ID, &g.DisplayName)
	if err != nil {
		return nil, translate("query directory groups", err)
	}
	return &g, nil
}

func translate(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return directory.ErrNotFound
	}
	return directory.NewAuthError(op, err)
}
