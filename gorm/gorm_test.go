package gorm_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/gorm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	gormio "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()
	_, err := gorm.Open("")
	require.ErrorIs(t, err, secretary.ErrValidation)
}

func TestProfileStore_Close(t *testing.T) {
	t.Parallel()
	// The pool is lazy, so no server is needed until a query runs.
	db, err := gormio.Open(mysql.New(mysql.Config{
		DSN:                       "secretary:secret@tcp(127.0.0.1:1)/secretary",
		SkipInitializeWithVersion: true,
	}), &gormio.Config{DisableAutomaticPing: true, Logger: logger.Discard})
	require.NoError(t, err)

	s := gorm.NewUnmigrated(db)
	require.NoError(t, s.Close())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.ErrorContains(t, sqlDB.Ping(), "database is closed")
}

// TestProfileStore runs against a real MySQL server named by
// SECRETARY_MYSQL_DSN and is skipped otherwise.
func TestProfileStore(t *testing.T) {
	t.Parallel()
	dsn := os.Getenv("SECRETARY_MYSQL_DSN")
	if dsn == "" {
		t.Skip("SECRETARY_MYSQL_DSN not set")
	}
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	s, err := gorm.Open(dsn, gorm.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })

	ctx := context.Background()
	id := uuid.NewString()

	p, err := s.UpsertProfile(ctx, secretary.Identity{ID: id, Email: "test@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", p.Name)

	again, err := s.UpsertProfile(ctx, secretary.Identity{ID: id, DisplayName: "Другое"})
	require.NoError(t, err)
	assert.Equal(t, p.Name, again.Name)
	assert.Equal(t, p.Role, again.Role)

	got, err := s.GetProfile(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)

	missing, err := s.GetProfile(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
