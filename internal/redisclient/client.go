package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"printful-sync/internal/models"

	"github.com/go-redis/redis/v8"
)

// Client caches Printful catalog descriptors and size guides between runs
// and holds the per-product sync locks that serialize reconciliation.
type Client struct {
	rdb      *redis.Client
	cacheTTL time.Duration
}

// NewClient creates a new Redis client.
func NewClient(addr, password string, db int, cacheTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, cacheTTL: cacheTTL}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetCatalogVariant returns a cached catalog descriptor, or (nil, nil) on a
// miss.
func (c *Client) GetCatalogVariant(ctx context.Context, variantID int64) (*models.CatalogVariantInfo, error) {
	key := fmt.Sprintf("catalog:variant:%d", variantID)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var info models.CatalogVariantInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetCatalogVariant caches a catalog descriptor.
func (c *Client) SetCatalogVariant(ctx context.Context, variantID int64, info *models.CatalogVariantInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("catalog:variant:%d", variantID)
	return c.rdb.Set(ctx, key, data, c.cacheTTL).Err()
}

// GetSizeGuide returns a cached size guide, or (nil, nil) on a miss.
func (c *Client) GetSizeGuide(ctx context.Context, catalogProductID int64) (*models.SizeGuide, error) {
	key := fmt.Sprintf("catalog:sizeguide:%d", catalogProductID)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var guide models.SizeGuide
	if err := json.Unmarshal(data, &guide); err != nil {
		return nil, err
	}
	return &guide, nil
}

// SetSizeGuide caches a size guide.
func (c *Client) SetSizeGuide(ctx context.Context, catalogProductID int64, guide *models.SizeGuide) error {
	data, err := json.Marshal(guide)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("catalog:sizeguide:%d", catalogProductID)
	return c.rdb.Set(ctx, key, data, c.cacheTTL).Err()
}

// AcquireSyncLock takes the per-product lock serializing reconciliation
// runs. Returns false when another run holds it.
func (c *Client) AcquireSyncLock(ctx context.Context, externalID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, "lock:sync:"+externalID, "1", ttl).Result()
}

// ReleaseSyncLock releases the per-product sync lock.
func (c *Client) ReleaseSyncLock(ctx context.Context, externalID string) error {
	return c.rdb.Del(ctx, "lock:sync:"+externalID).Err()
}
