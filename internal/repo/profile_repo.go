// Package repo implements the data persistence layer for greeting profiles.
//
// Functions are context-aware and accept a *gorm.DB handle. They follow the
// "thin repository" approach: no business logic, only persistence and query
// composition. A missing profile is reported as gorm.ErrRecordNotFound
// (exported here as ErrNotFound); other DB errors propagate unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-greeting-service/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// GetProfile fetches a profile by its (already folded) name.
func GetProfile(ctx context.Context, db *gorm.DB, name string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile inserts the profile or replaces the message of an existing
// row with the same name.
func UpsertProfile(ctx context.Context, db *gorm.DB, name, message string) error {
	p := domain.Profile{Name: name, Message: message}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"message", "updated_at"}),
	}).Create(&p).Error
}

// SeedProfiles upserts every name→message pair in a single transaction.
func SeedProfiles(ctx context.Context, db *gorm.DB, profiles map[string]string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for name, msg := range profiles {
			if err := UpsertProfile(ctx, tx, name, msg); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountProfiles returns the number of stored profiles.
func CountProfiles(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Profile{}).Count(&n).Error
	return n, err
}
