package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// ErrDecode marks input that is not a valid image of an allowed type.
// Terminal for the upload attempt.
var ErrDecode = errors.New("image decode failed")

// Result is the canonical form of an upload: a lossless PNG encoded
// with no compression effort, dimension-capped but never upscaled.
// Original keeps the full decoded bitmap because the compression
// engine's downscale phase resamples from it rather than from the
// already-capped canonical bitmap.
type Result struct {
	Canonical []byte
	Width     int
	Height    int
	Original  image.Image
}

type Transcoder struct {
	maxDimension int
}

func New(maxDimension int) *Transcoder {
	return &Transcoder{maxDimension: maxDimension}
}

// Normalize decodes raw upload bytes, caps the longer side at the
// configured maximum with aspect preserved, and re-encodes as an
// uncompressed PNG. The canonical bytes are the hash basis for content
// identity and the starting point for compression.
func (t *Transcoder) Normalize(raw []byte) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return Result{}, fmt.Errorf("%w: empty bounds", ErrDecode)
	}

	capped := img
	cappedW, cappedH := width, height
	if width > t.maxDimension || height > t.maxDimension {
		cappedW, cappedH = FitWithin(width, height, t.maxDimension)
		capped = Resample(img, cappedW, cappedH)
	}

	canonical, err := EncodePNG(capped, png.NoCompression)
	if err != nil {
		return Result{}, fmt.Errorf("encode canonical png: %w", err)
	}

	return Result{
		Canonical: canonical,
		Width:     cappedW,
		Height:    cappedH,
		Original:  img,
	}, nil
}

// FitWithin scales (width, height) down so the longer side equals max,
// preserving aspect ratio. Dimensions already within the cap are
// returned unchanged; this never upscales.
func FitWithin(width, height, max int) (int, int) {
	if width <= max && height <= max {
		return width, height
	}
	if width >= height {
		scaled := int(float64(height)*float64(max)/float64(width) + 0.5)
		if scaled < 1 {
			scaled = 1
		}
		return max, scaled
	}
	scaled := int(float64(width)*float64(max)/float64(height) + 0.5)
	if scaled < 1 {
		scaled = 1
	}
	return scaled, max
}

// Resample draws src into a new RGBA bitmap of the given size using
// Catmull-Rom interpolation.
func Resample(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// EncodePNG encodes img at the given compression level.
func EncodePNG(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
