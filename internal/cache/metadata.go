package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zlc1004/Carpool-sub000/internal/models"
)

// Records are immutable after insert, so cached metadata never needs
// invalidation; the TTL only bounds memory.
const metadataTTL = 24 * time.Hour

type MetadataCache struct {
	client *redis.Client
}

func NewMetadataCache(client *redis.Client) *MetadataCache {
	return &MetadataCache{client: client}
}

func (c *MetadataCache) Get(ctx context.Context, id string) (models.ImageMetadata, bool, error) {
	if c == nil || c.client == nil {
		return models.ImageMetadata{}, false, nil
	}

	raw, err := c.client.Get(ctx, metadataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ImageMetadata{}, false, nil
	}
	if err != nil {
		return models.ImageMetadata{}, false, fmt.Errorf("cache get: %w", err)
	}

	var meta models.ImageMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		// Stale or corrupt entry; treat as a miss.
		return models.ImageMetadata{}, false, nil
	}
	return meta, true, nil
}

func (c *MetadataCache) Set(ctx context.Context, meta models.ImageMetadata) error {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, metadataKey(meta.ID), raw, metadataTTL).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func metadataKey(id string) string {
	return "image:meta:" + id
}
