package transcode

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// gradientImage builds a deterministic test bitmap.
func gradientImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x % 256),
				G: uint8(y % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func encodeAsPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func encodeAsJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		max            int
		wantW, wantH   int
	}{
		{"within cap untouched", 800, 600, 2048, 800, 600},
		{"exactly at cap untouched", 2048, 1024, 2048, 2048, 1024},
		{"wide landscape capped", 5000, 3000, 2048, 2048, 1229},
		{"tall portrait capped", 3000, 5000, 2048, 1229, 2048},
		{"square capped", 4096, 4096, 2048, 2048, 2048},
		{"extreme ratio never below one", 10000, 2, 2048, 2048, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := FitWithin(tt.width, tt.height, tt.max)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("FitWithin(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.width, tt.height, tt.max, gotW, gotH, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestNormalizeCapsLongerDimension(t *testing.T) {
	tr := New(256)

	raw := encodeAsJPEG(t, gradientImage(1000, 600))
	result, err := tr.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if result.Width != 256 {
		t.Errorf("width = %d, want 256", result.Width)
	}
	if result.Height != 154 {
		t.Errorf("height = %d, want 154", result.Height)
	}

	decoded, err := png.Decode(bytes.NewReader(result.Canonical))
	if err != nil {
		t.Fatalf("canonical output is not valid png: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != result.Width || bounds.Dy() != result.Height {
		t.Errorf("canonical dimensions %dx%d disagree with result %dx%d",
			bounds.Dx(), bounds.Dy(), result.Width, result.Height)
	}
}

func TestNormalizeNeverUpscales(t *testing.T) {
	tr := New(2048)

	raw := encodeAsPNG(t, gradientImage(100, 80))
	result, err := tr.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if result.Width != 100 || result.Height != 80 {
		t.Errorf("dimensions changed to %dx%d, want 100x80 untouched", result.Width, result.Height)
	}
}

func TestNormalizeKeepsOriginalBitmap(t *testing.T) {
	tr := New(64)

	raw := encodeAsPNG(t, gradientImage(200, 100))
	result, err := tr.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	// The downscale phase resamples from the uncapped original.
	orig := result.Original.Bounds()
	if orig.Dx() != 200 || orig.Dy() != 100 {
		t.Errorf("original bitmap is %dx%d, want 200x100", orig.Dx(), orig.Dy())
	}
	if result.Width != 64 || result.Height != 32 {
		t.Errorf("capped dimensions are %dx%d, want 64x32", result.Width, result.Height)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	tr := New(2048)

	for _, raw := range [][]byte{
		nil,
		[]byte("not an image at all"),
		{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0xde, 0xad},
	} {
		if _, err := tr.Normalize(raw); !errors.Is(err, ErrDecode) {
			t.Errorf("Normalize(%d bytes) error = %v, want ErrDecode", len(raw), err)
		}
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	tr := New(128)
	raw := encodeAsJPEG(t, gradientImage(300, 200))

	first, err := tr.Normalize(raw)
	if err != nil {
		t.Fatalf("first Normalize: %v", err)
	}
	second, err := tr.Normalize(raw)
	if err != nil {
		t.Fatalf("second Normalize: %v", err)
	}

	if !bytes.Equal(first.Canonical, second.Canonical) {
		t.Error("canonical bytes differ across identical runs")
	}
}
