package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zlc1004/Carpool-sub000/internal/models"
)

var (
	ErrImageNotFound = errors.New("image not found")

	// ErrDuplicateImage covers both the pre-insert hash lookup and the
	// unique-index violation a losing concurrent insert hits.
	ErrDuplicateImage = errors.New("image already exists")

	ErrTooManyRequested = errors.New("too many ids requested")
)

// MaxBatchSize bounds GetMetadataBatch.
const MaxBatchSize = 50

const imageColumns = `
	id, content_hash, storage_hash, file_name, mime_type,
	original_byte_size, canonical_byte_size, stored_byte_size,
	compression_ratio, width, height, bucket, object_key,
	uploader_id, created_at
`

type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

// Insert stores the record. The unique indexes on content_hash and
// storage_hash are the arbiter of the dedup race: a concurrent insert
// that lost the race fails here with ErrDuplicateImage instead of
// corrupting state.
func (r *ImageRepository) Insert(ctx context.Context, image models.Image) error {
	const query = `
		INSERT INTO images (
			id, content_hash, storage_hash, file_name, mime_type,
			original_byte_size, canonical_byte_size, stored_byte_size,
			compression_ratio, width, height, bucket, object_key,
			uploader_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15
		)
	`

	_, err := r.pool.Exec(ctx, query,
		image.ID,
		image.ContentHash,
		image.StorageHash,
		image.FileName,
		image.MimeType,
		image.OriginalByteSize,
		image.CanonicalByteSize,
		image.StoredByteSize,
		image.CompressionRatio,
		image.Width,
		image.Height,
		image.Bucket,
		image.ObjectKey,
		image.UploaderID,
		image.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateImage
		}
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// FindByHash returns a record matching either identity axis. A match
// on contentHash OR storageHash is a duplicate.
func (r *ImageRepository) FindByHash(ctx context.Context, contentHash, storageHash string) (models.Image, error) {
	query := `
		SELECT` + imageColumns + `
		FROM images
		WHERE content_hash = $1 OR storage_hash = $2
		LIMIT 1
	`

	row := r.pool.QueryRow(ctx, query, contentHash, storageHash)
	image, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, fmt.Errorf("find by hash: %w", err)
	}
	return image, nil
}

func (r *ImageRepository) GetByID(ctx context.Context, id string) (models.Image, error) {
	query := `
		SELECT` + imageColumns + `
		FROM images WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	image, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, fmt.Errorf("get image: %w", err)
	}
	return image, nil
}

func (r *ImageRepository) GetMetadataByID(ctx context.Context, id string) (models.ImageMetadata, error) {
	image, err := r.GetByID(ctx, id)
	if err != nil {
		return models.ImageMetadata{}, err
	}
	return image.Metadata(), nil
}

// GetMetadataBatch returns metadata for up to MaxBatchSize ids.
// Missing ids are silently omitted from the result.
func (r *ImageRepository) GetMetadataBatch(ctx context.Context, ids []string) ([]models.ImageMetadata, error) {
	if len(ids) > MaxBatchSize {
		return nil, ErrTooManyRequested
	}
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT` + imageColumns + `
		FROM images WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("metadata batch: %w", err)
	}
	defer rows.Close()

	var metas []models.ImageMetadata
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("metadata batch scan: %w", err)
		}
		metas = append(metas, image.Metadata())
	}
	return metas, rows.Err()
}

// ListRecent returns the most recently inserted records, for audit
// sweeps.
func (r *ImageRepository) ListRecent(ctx context.Context, limit int) ([]models.Image, error) {
	query := `
		SELECT` + imageColumns + `
		FROM images
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("list recent scan: %w", err)
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func scanImage(row pgx.Row) (models.Image, error) {
	var image models.Image
	err := row.Scan(
		&image.ID,
		&image.ContentHash,
		&image.StorageHash,
		&image.FileName,
		&image.MimeType,
		&image.OriginalByteSize,
		&image.CanonicalByteSize,
		&image.StoredByteSize,
		&image.CompressionRatio,
		&image.Width,
		&image.Height,
		&image.Bucket,
		&image.ObjectKey,
		&image.UploaderID,
		&image.CreatedAt,
	)
	return image, err
}
