package gorm

import "gorm.io/gorm"

// NewUnmigrated wraps db without touching the schema.
func NewUnmigrated(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}
