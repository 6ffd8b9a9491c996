package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zlc1004/Carpool-sub000/internal/models"
	"github.com/zlc1004/Carpool-sub000/internal/repository"
)

type fakeMetadataRepo struct {
	images map[string]models.Image
	calls  int
}

func (r *fakeMetadataRepo) GetByID(_ context.Context, id string) (models.Image, error) {
	r.calls++
	image, ok := r.images[id]
	if !ok {
		return models.Image{}, repository.ErrImageNotFound
	}
	return image, nil
}

func (r *fakeMetadataRepo) GetMetadataByID(ctx context.Context, id string) (models.ImageMetadata, error) {
	image, err := r.GetByID(ctx, id)
	if err != nil {
		return models.ImageMetadata{}, err
	}
	return image.Metadata(), nil
}

func (r *fakeMetadataRepo) GetMetadataBatch(_ context.Context, ids []string) ([]models.ImageMetadata, error) {
	if len(ids) > repository.MaxBatchSize {
		return nil, repository.ErrTooManyRequested
	}
	var metas []models.ImageMetadata
	for _, id := range ids {
		if image, ok := r.images[id]; ok {
			metas = append(metas, image.Metadata())
		}
	}
	return metas, nil
}

type fakePayloadReader struct {
	payloads map[string][]byte
	calls    int
}

func (r *fakePayloadReader) GetPayload(_ context.Context, objectKey string) ([]byte, error) {
	r.calls++
	payload, ok := r.payloads[objectKey]
	if !ok {
		return nil, errors.New("object missing")
	}
	return payload, nil
}

type fakeMetaCache struct {
	entries map[string]models.ImageMetadata
}

func (c *fakeMetaCache) Get(_ context.Context, id string) (models.ImageMetadata, bool, error) {
	meta, ok := c.entries[id]
	return meta, ok, nil
}

func (c *fakeMetaCache) Set(_ context.Context, meta models.ImageMetadata) error {
	c.entries[meta.ID] = meta
	return nil
}

func sampleImage(id string) models.Image {
	return models.Image{
		ID:             id,
		ContentHash:    "content-" + id,
		StorageHash:    "storage-" + id,
		FileName:       "x.png",
		MimeType:       "image/png",
		StoredByteSize: 3,
		ObjectKey:      "sha256/storage-" + id + ".png",
		CreatedAt:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newImageFixture() (*ImageService, *fakeMetadataRepo, *fakePayloadReader, *fakeMetaCache) {
	repo := &fakeMetadataRepo{images: map[string]models.Image{}}
	payloads := &fakePayloadReader{payloads: map[string][]byte{}}
	cache := &fakeMetaCache{entries: map[string]models.ImageMetadata{}}

	img := sampleImage("img1")
	repo.images[img.ID] = img
	payloads.payloads[img.ObjectKey] = []byte{1, 2, 3}

	return NewImageService(repo, payloads, cache, zerolog.Nop()), repo, payloads, cache
}

func TestGetByIDJoinsPayload(t *testing.T) {
	svc, _, _, _ := newImageFixture()

	image, err := svc.GetByID(context.Background(), "img1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(image.Payload) != 3 {
		t.Errorf("payload length = %d, want 3", len(image.Payload))
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _, _, _ := newImageFixture()

	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrImageNotFound) {
		t.Errorf("error = %v, want ErrImageNotFound", err)
	}
}

func TestGetMetadataReadsThroughCache(t *testing.T) {
	svc, repo, _, cache := newImageFixture()
	ctx := context.Background()

	first, err := svc.GetMetadata(ctx, "img1")
	if err != nil {
		t.Fatalf("first GetMetadata: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("repo calls after miss = %d, want 1", repo.calls)
	}
	if _, ok := cache.entries["img1"]; !ok {
		t.Fatal("metadata not written to cache")
	}

	second, err := svc.GetMetadata(ctx, "img1")
	if err != nil {
		t.Fatalf("second GetMetadata: %v", err)
	}
	if repo.calls != 1 {
		t.Errorf("repo calls after hit = %d, want still 1", repo.calls)
	}
	if first != second {
		t.Error("cached metadata differs from repository metadata")
	}
}

func TestGetMetadataNeverPullsPayload(t *testing.T) {
	svc, _, payloads, _ := newImageFixture()

	if _, err := svc.GetMetadata(context.Background(), "img1"); err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if payloads.calls != 0 {
		t.Errorf("payload store calls = %d, want 0", payloads.calls)
	}
}

func TestGetMetadataBatchBound(t *testing.T) {
	svc, repo, _, _ := newImageFixture()
	ctx := context.Background()

	for i := 0; i < repository.MaxBatchSize; i++ {
		img := sampleImage(fmt.Sprintf("b%02d", i))
		repo.images[img.ID] = img
	}

	atLimit := make([]string, repository.MaxBatchSize)
	for i := range atLimit {
		atLimit[i] = fmt.Sprintf("b%02d", i)
	}
	metas, err := svc.GetMetadataBatch(ctx, atLimit)
	if err != nil {
		t.Fatalf("batch of %d: %v", repository.MaxBatchSize, err)
	}
	if len(metas) != repository.MaxBatchSize {
		t.Errorf("metas = %d, want %d", len(metas), repository.MaxBatchSize)
	}

	overLimit := append(atLimit, "one-more")
	if _, err := svc.GetMetadataBatch(ctx, overLimit); !errors.Is(err, repository.ErrTooManyRequested) {
		t.Errorf("batch of %d error = %v, want ErrTooManyRequested", len(overLimit), err)
	}
}
