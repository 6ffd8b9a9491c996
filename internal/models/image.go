package models

import "time"

// Image is the persisted record for one ingested upload. The payload
// bytes live in the object store under Bucket/ObjectKey; everything
// else is a postgres row. Records are immutable after insert.
type Image struct {
	ID                string
	ContentHash       string // sha256 hex of the canonical uncompressed PNG
	StorageHash       string // sha256 hex of the stored compressed bytes
	FileName          string
	MimeType          string // always "image/png" after transcoding
	OriginalByteSize  int64
	CanonicalByteSize int64
	StoredByteSize    int64
	CompressionRatio  float64
	Width             int
	Height            int
	Bucket            string
	ObjectKey         string
	UploaderID        *string
	CreatedAt         time.Time

	// Payload is populated only by full-record reads; metadata
	// projections leave it nil.
	Payload []byte `json:"-"`
}

// ImageMetadata is the payload-free projection served by the metadata
// endpoints and the redis cache.
type ImageMetadata struct {
	ID                string    `json:"id"`
	ContentHash       string    `json:"contentHash"`
	StorageHash       string    `json:"storageHash"`
	FileName          string    `json:"fileName"`
	MimeType          string    `json:"mimeType"`
	OriginalByteSize  int64     `json:"originalByteSize"`
	CanonicalByteSize int64     `json:"canonicalByteSize"`
	StoredByteSize    int64     `json:"storedByteSize"`
	CompressionRatio  float64   `json:"compressionRatio"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	UploaderID        *string   `json:"uploaderId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Metadata returns the payload-free projection of the record.
func (i Image) Metadata() ImageMetadata {
	return ImageMetadata{
		ID:                i.ID,
		ContentHash:       i.ContentHash,
		StorageHash:       i.StorageHash,
		FileName:          i.FileName,
		MimeType:          i.MimeType,
		OriginalByteSize:  i.OriginalByteSize,
		CanonicalByteSize: i.CanonicalByteSize,
		StoredByteSize:    i.StoredByteSize,
		CompressionRatio:  i.CompressionRatio,
		Width:             i.Width,
		Height:            i.Height,
		UploaderID:        i.UploaderID,
		CreatedAt:         i.CreatedAt,
	}
}
