package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/models"
)

const DefaultLocationTTL = 30 * time.Minute

// LocationCache keeps the last known driver location per delivery.
// Key format: delivery:<id>:location
type LocationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLocationCache(client *redis.Client, ttl time.Duration) *LocationCache {
	if ttl <= 0 {
		ttl = DefaultLocationTTL
	}
	return &LocationCache{client: client, ttl: ttl}
}

func (c *LocationCache) Set(ctx context.Context, deliveryID string, pos models.Position) error {
	const op = "LocationCache.Set"

	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	if err := c.client.Set(ctx, c.key(deliveryID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get returns the cached location. ok is false on a cache miss.
func (c *LocationCache) Get(ctx context.Context, deliveryID string) (pos models.Position, ok bool, err error) {
	const op = "LocationCache.Get"

	data, err := c.client.Get(ctx, c.key(deliveryID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Position{}, false, nil
		}
		return models.Position{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(data, &pos); err != nil {
		return models.Position{}, false, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return pos, true, nil
}

// Delete drops the cached location, used once a delivery is terminal.
func (c *LocationCache) Delete(ctx context.Context, deliveryID string) error {
	if err := c.client.Del(ctx, c.key(deliveryID)).Err(); err != nil {
		return fmt.Errorf("LocationCache.Delete: %w", err)
	}
	return nil
}

func (c *LocationCache) key(deliveryID string) string {
	return fmt.Sprintf("delivery:%s:location", deliveryID)
}
