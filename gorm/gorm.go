// Package gorm implements secretary.ProfileStore on a MySQL database through
// gorm.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/secretary"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ secretary.ProfileStore = (*ProfileStore)(nil)

type profile struct {
	ID        string `gorm:"primaryKey;type:varchar(128)"`
	Email     string `gorm:"type:varchar(255);not null"`
	Name      string `gorm:"type:varchar(255);not null"`
	AvatarURL string `gorm:"type:varchar(1024);not null;default:''"`
	Role      string `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (profile) TableName() string { return "profiles" }

func (p profile) domain() secretary.Profile {
	return secretary.Profile{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		Role:      secretary.ProfileRole(p.Role),
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

// ProfileStore persists profiles in the profiles table.
type ProfileStore struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a [ProfileStore].
type Option func(*ProfileStore)

// WithClock sets the time source for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *ProfileStore) { s.now = now }
}

// Open connects to the MySQL database at dsn and migrates the schema.
func Open(dsn string, opts ...Option) (*ProfileStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("gorm: empty dsn: %w", secretary.ErrValidation)
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("gorm: open: %w", err)
	}
	return New(db, opts...)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB, opts ...Option) (*ProfileStore, error) {
	if err := db.AutoMigrate(&profile{}); err != nil {
		return nil, fmt.Errorf("gorm: migrate: %w", err)
	}
	s := &ProfileStore{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *ProfileStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("gorm: connection pool: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("gorm: close: %w", err)
	}
	return nil
}

// UpsertProfile stores a profile for id unless one exists, and returns the
// stored profile. The first profile in the table becomes the owner.
func (s *ProfileStore) UpsertProfile(ctx context.Context, id secretary.Identity) (secretary.Profile, error) {
	if id.ID == "" {
		return secretary.Profile{}, fmt.Errorf("gorm: empty identity id: %w", secretary.ErrValidation)
	}
	var out secretary.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing profile
		err := tx.First(&existing, "id = ?", id.ID).Error
		if err == nil {
			out = existing.domain()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		var count int64
		if err := tx.Model(&profile{}).Count(&count).Error; err != nil {
			return err
		}
		p := secretary.NewProfile(id, count == 0, s.now().UTC())
		row := profile{
			ID:        p.ID,
			Email:     p.Email,
			Name:      p.Name,
			AvatarURL: p.AvatarURL,
			Role:      string(p.Role),
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return secretary.Profile{}, fmt.Errorf("gorm: upsert profile: %w", err)
	}
	return out, nil
}

// GetProfile returns the profile for id, or nil when absent.
func (s *ProfileStore) GetProfile(ctx context.Context, id string) (*secretary.Profile, error) {
	var row profile
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gorm: get profile: %w", err)
	}
	p := row.domain()
	return &p, nil
}
