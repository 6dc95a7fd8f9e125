package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fwojciec/secretary"
)

// UpsertProfile stores a profile for id unless one exists, and returns the
// stored profile. The first profile in the database becomes the owner.
func (d *DB) UpsertProfile(ctx context.Context, id secretary.Identity) (secretary.Profile, error) {
	if id.ID == "" {
		return secretary.Profile{}, fmt.Errorf("sqlite: empty identity id: %w", secretary.ErrValidation)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return secretary.Profile{}, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if p, err := getProfile(ctx, tx, id.ID); err != nil {
		return secretary.Profile{}, err
	} else if p != nil {
		return *p, nil
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return secretary.Profile{}, fmt.Errorf("sqlite: count profiles: %w", err)
	}
	p := secretary.NewProfile(id, count == 0, d.now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (id, email, name, avatar_url, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Email, p.Name, p.AvatarURL, string(p.Role), toUnix(p.CreatedAt), toUnix(p.UpdatedAt))
	if err != nil {
		return secretary.Profile{}, fmt.Errorf("sqlite: insert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return secretary.Profile{}, fmt.Errorf("sqlite: commit: %w", err)
	}
	p.CreatedAt = fromUnix(toUnix(p.CreatedAt))
	p.UpdatedAt = fromUnix(toUnix(p.UpdatedAt))
	return p, nil
}

// GetProfile returns the profile for id, or nil when absent.
func (d *DB) GetProfile(ctx context.Context, id string) (*secretary.Profile, error) {
	return getProfile(ctx, d.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProfile(ctx context.Context, q queryer, id string) (*secretary.Profile, error) {
	var (
		p                    secretary.Profile
		role                 string
		createdAt, updatedAt int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, email, name, avatar_url, role, created_at, updated_at
		FROM profiles WHERE id = ?
	`, id).Scan(&p.ID, &p.Email, &p.Name, &p.AvatarURL, &role, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get profile: %w", err)
	}
	p.Role = secretary.ProfileRole(role)
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	return &p, nil
}
