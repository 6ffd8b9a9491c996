package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zlc1004/Carpool-sub000/internal/models"
	"github.com/zlc1004/Carpool-sub000/internal/repository"
)

// MetadataRepo is the read side of the metadata store.
type MetadataRepo interface {
	GetByID(ctx context.Context, id string) (models.Image, error)
	GetMetadataByID(ctx context.Context, id string) (models.ImageMetadata, error)
	GetMetadataBatch(ctx context.Context, ids []string) ([]models.ImageMetadata, error)
}

// MetadataCache is a read-through cache over metadata lookups. Cache
// failures are logged and degrade to repository reads.
type MetadataCache interface {
	Get(ctx context.Context, id string) (models.ImageMetadata, bool, error)
	Set(ctx context.Context, meta models.ImageMetadata) error
}

// PayloadReader fetches stored payload bytes.
type PayloadReader interface {
	GetPayload(ctx context.Context, objectKey string) ([]byte, error)
}

type ImageService struct {
	images   MetadataRepo
	payloads PayloadReader
	cache    MetadataCache
	log      zerolog.Logger
}

func NewImageService(images MetadataRepo, payloads PayloadReader, cache MetadataCache, log zerolog.Logger) *ImageService {
	return &ImageService{
		images:   images,
		payloads: payloads,
		cache:    cache,
		log:      log,
	}
}

// GetByID returns the full record with the payload joined in from the
// object store.
func (s *ImageService) GetByID(ctx context.Context, id string) (models.Image, error) {
	image, err := s.images.GetByID(ctx, id)
	if err != nil {
		return models.Image{}, err
	}

	payload, err := s.payloads.GetPayload(ctx, image.ObjectKey)
	if err != nil {
		return models.Image{}, fmt.Errorf("load payload for %s: %w", id, err)
	}
	image.Payload = payload
	return image, nil
}

// GetMetadata serves the payload-free projection, read-through cached.
func (s *ImageService) GetMetadata(ctx context.Context, id string) (models.ImageMetadata, error) {
	if s.cache != nil {
		meta, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("image_id", id).Msg("metadata cache read failed")
		} else if ok {
			return meta, nil
		}
	}

	meta, err := s.images.GetMetadataByID(ctx, id)
	if err != nil {
		return models.ImageMetadata{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, meta); err != nil {
			s.log.Warn().Err(err).Str("image_id", id).Msg("metadata cache write failed")
		}
	}
	return meta, nil
}

// GetMetadataBatch serves up to repository.MaxBatchSize ids per call.
func (s *ImageService) GetMetadataBatch(ctx context.Context, ids []string) ([]models.ImageMetadata, error) {
	if len(ids) > repository.MaxBatchSize {
		return nil, repository.ErrTooManyRequested
	}
	return s.images.GetMetadataBatch(ctx, ids)
}
