package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zlc1004/Carpool-sub000/internal/media/digest"
	"github.com/zlc1004/Carpool-sub000/internal/models"
	"github.com/zlc1004/Carpool-sub000/internal/repository"
)

// auditSweepLimit bounds how many recent records one sweep re-hashes.
const auditSweepLimit = 100

// ImageLister is the read access the audit sweep needs.
type ImageLister interface {
	GetByID(ctx context.Context, id string) (models.Image, error)
	ListRecent(ctx context.Context, limit int) ([]models.Image, error)
}

// PayloadReader fetches stored bytes for re-hashing.
type PayloadReader interface {
	GetPayload(ctx context.Context, objectKey string) ([]byte, error)
}

// Processor handles stream events: per-upload integrity checks right
// after ingest, and periodic sweeps over recent records. A stored
// payload whose sha256 no longer matches its recorded storage hash
// indicates object-store corruption or tampering; the processor logs
// it loudly and keeps going.
type Processor struct {
	images   ImageLister
	payloads PayloadReader
	logger   zerolog.Logger
}

type eventPayload struct {
	Type        string `json:"type"`
	ImageID     string `json:"imageId"`
	Object      string `json:"object"`
	StorageHash string `json:"storageHash"`
}

func NewProcessor(images ImageLister, payloads PayloadReader, logger zerolog.Logger) *Processor {
	return &Processor{
		images:   images,
		payloads: payloads,
		logger:   logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload eventPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case "image.ingested":
		return p.handleIngested(ctx, payload)
	case "audit.sweep":
		return p.handleAuditSweep(ctx)
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown event type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *eventPayload) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *Processor) handleIngested(ctx context.Context, payload eventPayload) error {
	image, err := p.images.GetByID(ctx, payload.ImageID)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			// Insert may have been rolled back after the event fired.
			p.logger.Warn().Str("image_id", payload.ImageID).Msg("ingest event for missing record")
			return nil
		}
		return err
	}
	return p.verify(ctx, image)
}

func (p *Processor) handleAuditSweep(ctx context.Context) error {
	images, err := p.images.ListRecent(ctx, auditSweepLimit)
	if err != nil {
		return fmt.Errorf("audit sweep list: %w", err)
	}

	var failures int
	for _, image := range images {
		if err := p.verify(ctx, image); err != nil {
			failures++
		}
	}

	p.logger.Info().
		Int("checked", len(images)).
		Int("failures", failures).
		Msg("audit sweep complete")
	return nil
}

func (p *Processor) verify(ctx context.Context, image models.Image) error {
	payload, err := p.payloads.GetPayload(ctx, image.ObjectKey)
	if err != nil {
		p.logger.Error().Err(err).
			Str("image_id", image.ID).
			Str("object_key", image.ObjectKey).
			Msg("payload fetch failed during audit")
		return err
	}

	if got := digest.Sum(payload); got != image.StorageHash {
		p.logger.Error().
			Str("image_id", image.ID).
			Str("expected", image.StorageHash).
			Str("actual", got).
			Msg("stored payload hash mismatch")
		return fmt.Errorf("payload hash mismatch for %s", image.ID)
	}

	p.logger.Debug().Str("image_id", image.ID).Msg("payload integrity verified")
	return nil
}
