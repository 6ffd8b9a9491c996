package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/zlc1004/Carpool-sub000/internal/models"
)

func newTestCache(t *testing.T) *MetadataCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewMetadataCache(client)
}

func sampleMetadata() models.ImageMetadata {
	return models.ImageMetadata{
		ID:                "2abCdEfGhIjKlMnOpQrStUvWxYz",
		ContentHash:       "aa11",
		StorageHash:       "bb22",
		FileName:          "photo.jpg",
		MimeType:          "image/png",
		OriginalByteSize:  1 << 20,
		CanonicalByteSize: 2 << 20,
		StoredByteSize:    700 << 10,
		CompressionRatio:  0.67,
		Width:             2048,
		Height:            1229,
		CreatedAt:         time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMetadataCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	meta := sampleMetadata()

	if _, ok, err := c.Get(ctx, meta.ID); err != nil || ok {
		t.Fatalf("Get on empty cache = (ok=%v, err=%v), want miss", ok, err)
	}

	if err := c.Set(ctx, meta); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, meta.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != meta {
		t.Errorf("cached metadata = %+v, want %+v", got, meta)
	}
}

func TestMetadataCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewMetadataCache(client)

	if err := mr.Set(metadataKey("bad"), "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	_, ok, err := c.Get(ctx, "bad")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("corrupt entry served as a hit")
	}
}

func TestMetadataCacheNilClient(t *testing.T) {
	ctx := context.Background()
	var c *MetadataCache

	if _, ok, err := c.Get(ctx, "x"); err != nil || ok {
		t.Errorf("nil cache Get = (ok=%v, err=%v), want silent miss", ok, err)
	}
	if err := c.Set(ctx, sampleMetadata()); err != nil {
		t.Errorf("nil cache Set = %v, want nil", err)
	}
}
