package services

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"tokenledger-backend/internal/models"
	"tokenledger-backend/internal/store"
)

const userExistsTTL = time.Hour

// UserDirectory answers identity checks from the users table, caching
// positive answers in redis when a client is configured.
type UserDirectory struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewUserDirectory(db *gorm.DB, cache *redis.Client) *UserDirectory {
	return &UserDirectory{db: db, cache: cache}
}

func (d *UserDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	cacheKey := "user:exists:" + userID
	if d.cache != nil {
		if val, err := d.cache.Get(ctx, cacheKey).Result(); err == nil && val == "1" {
			return true, nil
		}
	}

	var count int64
	if err := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, store.ClassifyError(err)
	}
	if count == 0 {
		// unknown ids are not cached so a newly registered user is seen at once
		return false, nil
	}

	if d.cache != nil {
		d.cache.Set(ctx, cacheKey, "1", userExistsTTL)
	}
	return true, nil
}
