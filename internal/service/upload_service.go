package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zlc1004/Carpool-sub000/internal/challenge"
	"github.com/zlc1004/Carpool-sub000/internal/config"
	"github.com/zlc1004/Carpool-sub000/internal/ids"
	"github.com/zlc1004/Carpool-sub000/internal/media/compress"
	"github.com/zlc1004/Carpool-sub000/internal/media/digest"
	"github.com/zlc1004/Carpool-sub000/internal/media/sniffer"
	"github.com/zlc1004/Carpool-sub000/internal/media/transcode"
	"github.com/zlc1004/Carpool-sub000/internal/models"
	"github.com/zlc1004/Carpool-sub000/internal/repository"
)

var ErrPayloadTooLarge = errors.New("payload exceeds upload size limit")

// canonicalMimeType is the only format ever stored; the original
// upload's format is discarded during transcoding.
const canonicalMimeType = "image/png"

// ImageRepo is the metadata half of the record store.
type ImageRepo interface {
	Insert(ctx context.Context, image models.Image) error
	FindByHash(ctx context.Context, contentHash, storageHash string) (models.Image, error)
}

// PayloadStore is the binary half of the record store.
type PayloadStore interface {
	Bucket() string
	PutPayload(ctx context.Context, storageHash string, payload []byte, contentType string) (string, error)
	RemovePayload(ctx context.Context, objectKey string) error
}

type UploadInput struct {
	Data       []byte
	MimeType   string
	FileName   string
	SessionID  string
	Answer     string
	UploaderID *string
}

type UploadResult struct {
	ID               string  `json:"id"`
	ContentHash      string  `json:"contentHash"`
	StorageHash      string  `json:"storageHash"`
	OriginalSize     int64   `json:"originalSize"`
	StoredSize       int64   `json:"storedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
}

type UploadService struct {
	images     ImageRepo
	store      PayloadStore
	challenges *challenge.Store
	transcoder *transcode.Transcoder
	engine     *compress.Engine
	queue      *redis.Client
	cfg        *config.AppConfig
	log        zerolog.Logger
}

func NewUploadService(images ImageRepo, store PayloadStore, challenges *challenge.Store, queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *UploadService {
	return &UploadService{
		images:     images,
		store:      store,
		challenges: challenges,
		transcoder: transcode.New(cfg.Pipeline.MaxDimension),
		engine:     compress.NewEngine(cfg.Pipeline.TargetSizeBytes),
		queue:      queue,
		cfg:        cfg,
		log:        log,
	}
}

// Upload runs the full pipeline for one attempt: size gate, challenge
// consumption, type validation, transcode, bounded compression, dual
// hashing, dedup, persist. Every failure is terminal for the attempt
// and leaves no partial record behind.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	if int64(len(input.Data)) > s.cfg.Pipeline.MaxUploadBytes {
		return UploadResult{}, ErrPayloadTooLarge
	}

	if err := s.challenges.Verify(input.SessionID, input.Answer); err != nil {
		return UploadResult{}, err
	}

	if !sniffer.Allowed(input.MimeType) {
		return UploadResult{}, sniffer.ErrUnsupportedType
	}
	head := input.Data
	if len(head) > 512 {
		head = head[:512]
	}
	detected, err := sniffer.DetectHead(head)
	if err != nil {
		return UploadResult{}, err
	}
	if !sniffer.Matches(input.MimeType, detected) {
		return UploadResult{}, fmt.Errorf("%w: declared %s, detected %s",
			sniffer.ErrUnsupportedType, input.MimeType, detected.MIME)
	}

	normalized, err := s.transcoder.Normalize(input.Data)
	if err != nil {
		return UploadResult{}, err
	}

	compressed, err := s.engine.Compress(normalized)
	if err != nil {
		return UploadResult{}, fmt.Errorf("compress: %w", err)
	}

	hashes := digest.Compute(normalized.Canonical, compressed.Data)

	if _, err := s.images.FindByHash(ctx, hashes.ContentHash, hashes.StorageHash); err == nil {
		return UploadResult{}, repository.ErrDuplicateImage
	} else if !errors.Is(err, repository.ErrImageNotFound) {
		return UploadResult{}, fmt.Errorf("dedup check: %w", err)
	}

	objectKey, err := s.store.PutPayload(ctx, hashes.StorageHash, compressed.Data, canonicalMimeType)
	if err != nil {
		return UploadResult{}, fmt.Errorf("store payload: %w", err)
	}

	image := models.Image{
		ID:                ids.New(),
		ContentHash:       hashes.ContentHash,
		StorageHash:       hashes.StorageHash,
		FileName:          input.FileName,
		MimeType:          canonicalMimeType,
		OriginalByteSize:  int64(len(input.Data)),
		CanonicalByteSize: int64(len(normalized.Canonical)),
		StoredByteSize:    int64(len(compressed.Data)),
		CompressionRatio:  1 - float64(len(compressed.Data))/float64(len(normalized.Canonical)),
		Width:             compressed.Width,
		Height:            compressed.Height,
		Bucket:            s.store.Bucket(),
		ObjectKey:         objectKey,
		UploaderID:        input.UploaderID,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.images.Insert(ctx, image); err != nil {
		// A unique-index loss means a concurrent identical upload already
		// committed a record pointing at this same content-addressed
		// object; removing it would break the winner's payload.
		if !errors.Is(err, repository.ErrDuplicateImage) {
			// The payload object is orphaned if this removal fails; the
			// worker's audit sweep will not surface it as a record either
			// way, because the row is the record.
			if rmErr := s.store.RemovePayload(context.WithoutCancel(ctx), objectKey); rmErr != nil {
				s.log.Warn().Err(rmErr).Str("object_key", objectKey).Msg("orphan payload cleanup failed")
			}
		}
		return UploadResult{}, err
	}

	s.publishIngested(ctx, image)

	return UploadResult{
		ID:               image.ID,
		ContentHash:      image.ContentHash,
		StorageHash:      image.StorageHash,
		OriginalSize:     image.OriginalByteSize,
		StoredSize:       image.StoredByteSize,
		CompressionRatio: image.CompressionRatio,
	}, nil
}

// publishIngested emits a best-effort event for the audit worker.
func (s *UploadService) publishIngested(ctx context.Context, image models.Image) {
	if s.queue == nil {
		return
	}

	payload := map[string]any{
		"type":        "image.ingested",
		"imageId":     image.ID,
		"bucket":      image.Bucket,
		"object":      image.ObjectKey,
		"storageHash": image.StorageHash,
	}
	if _, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.Redis.Stream,
		Values: payload,
	}).Result(); err != nil {
		s.log.Warn().Err(err).Str("image_id", image.ID).Msg("enqueue ingest event failed")
	}
}
