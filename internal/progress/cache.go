package progress

import (
	"context"
	"fmt"

	"github.com/abhisek/learnloop/internal/store"
)

// LocalCache persists a user's progress snapshot on the device.
type LocalCache interface {
	Load(ctx context.Context, userID string) ([]CourseProgressSummary, bool, error)
	Save(ctx context.Context, userID string, courses []CourseProgressSummary) error
	Clear(ctx context.Context, userID string) error
}

// CacheKey is the device cache key of a user's progress snapshot.
func CacheKey(userID string) string {
	return "progress_" + userID
}

// Cache is the LocalCache backed by the store's key-value table.
type Cache struct {
	kv store.KVRepo
}

// NewCache returns a Cache over kv.
func NewCache(kv store.KVRepo) *Cache {
	return &Cache{kv: kv}
}

// Load returns the cached snapshot; the bool is false when none exists.
func (c *Cache) Load(ctx context.Context, userID string) ([]CourseProgressSummary, bool, error) {
	var courses []CourseProgressSummary
	ok, err := store.GetJSON(ctx, c.kv, CacheKey(userID), &courses)
	if err != nil {
		return nil, false, fmt.Errorf("load progress cache: %w", err)
	}
	return courses, ok, nil
}

func (c *Cache) Save(ctx context.Context, userID string, courses []CourseProgressSummary) error {
	if courses == nil {
		courses = []CourseProgressSummary{}
	}
	if err := store.PutJSON(ctx, c.kv, CacheKey(userID), courses); err != nil {
		return fmt.Errorf("save progress cache: %w", err)
	}
	return nil
}

func (c *Cache) Clear(ctx context.Context, userID string) error {
	if err := c.kv.Delete(ctx, CacheKey(userID)); err != nil {
		return fmt.Errorf("clear progress cache: %w", err)
	}
	return nil
}
