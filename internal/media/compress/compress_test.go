package compress

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/zlc1004/Carpool-sub000/internal/media/transcode"
)

// flatImage compresses extremely well: the effort phase alone reaches
// any reasonable target.
func flatImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	return img
}

// noiseImage barely compresses at all, forcing the downscale phase.
// Seeded so every run sees identical pixels.
func noiseImage(width, height int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func normalize(t *testing.T, img image.Image, maxDim int) transcode.Result {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode input: %v", err)
	}
	result, err := transcode.New(maxDim).Normalize(buf.Bytes())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return result
}

func TestCompressMeetsTargetForFlatContent(t *testing.T) {
	in := normalize(t, flatImage(800, 600), 2048)
	engine := NewEngine(50 * 1024)

	out, err := engine.Compress(in)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if int64(len(out.Data)) > 50*1024 {
		t.Errorf("flat image compressed to %d bytes, want <= %d", len(out.Data), 50*1024)
	}
	if out.Width != 800 || out.Height != 600 {
		t.Errorf("dimensions %dx%d, want 800x600 (no downscale needed)", out.Width, out.Height)
	}
}

func TestCompressNeverFailsOnSize(t *testing.T) {
	// Noise cannot reach a 1KB target even fully downscaled; the
	// engine must still return its best result rather than an error.
	in := normalize(t, noiseImage(256, 256, 1), 2048)
	engine := NewEngine(1024)

	out, err := engine.Compress(in)
	if err != nil {
		t.Fatalf("Compress returned error on exhaustion: %v", err)
	}
	if len(out.Data) == 0 {
		t.Fatal("empty output")
	}
	if int64(len(out.Data)) <= 1024 {
		t.Fatalf("test premise broken: noise compressed below target (%d bytes)", len(out.Data))
	}

	// Exhaustion ends at the 0.4 scale step.
	if out.Width >= 256 || out.Height >= 256 {
		t.Errorf("dimensions %dx%d, want downscaled below 256", out.Width, out.Height)
	}
}

func TestCompressDeterministic(t *testing.T) {
	in := normalize(t, noiseImage(200, 150, 7), 2048)
	engine := NewEngine(10 * 1024)

	first, err := engine.Compress(in)
	if err != nil {
		t.Fatalf("first Compress: %v", err)
	}
	second, err := engine.Compress(in)
	if err != nil {
		t.Fatalf("second Compress: %v", err)
	}

	if !bytes.Equal(first.Data, second.Data) {
		t.Error("compressed bytes differ across identical runs")
	}
	if first.Width != second.Width || first.Height != second.Height {
		t.Errorf("dimensions differ: %dx%d vs %dx%d",
			first.Width, first.Height, second.Width, second.Height)
	}
}

func TestDownscaleNeverWorseThanEffortOnly(t *testing.T) {
	in := normalize(t, noiseImage(300, 300, 3), 2048)

	// A generous target the effort phase alone satisfies.
	effortOnly, err := NewEngine(1 << 30).Compress(in)
	if err != nil {
		t.Fatalf("effort-only Compress: %v", err)
	}

	// An unreachable target that exhausts both phases.
	full, err := NewEngine(1).Compress(in)
	if err != nil {
		t.Fatalf("full Compress: %v", err)
	}

	if len(full.Data) > len(effortOnly.Data) {
		t.Errorf("full search produced %d bytes, worse than effort-only %d bytes",
			len(full.Data), len(effortOnly.Data))
	}
}

func TestCompressOutputIsValidPNG(t *testing.T) {
	in := normalize(t, noiseImage(128, 96, 11), 2048)

	out, err := NewEngine(2 * 1024).Compress(in)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output is not valid png: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != out.Width || bounds.Dy() != out.Height {
		t.Errorf("decoded %dx%d disagrees with reported %dx%d",
			bounds.Dx(), bounds.Dy(), out.Width, out.Height)
	}
}

func TestLevelStrategyMonotone(t *testing.T) {
	// Rising effort level never maps to a cheaper strategy.
	order := map[png.CompressionLevel]int{
		png.NoCompression:      0,
		png.BestSpeed:          1,
		png.DefaultCompression: 2,
		png.BestCompression:    3,
	}

	prev := -1
	for level := 0; level <= 9; level++ {
		rank := order[levelStrategy(level)]
		if rank < prev {
			t.Errorf("level %d maps to weaker strategy than level %d", level, level-1)
		}
		prev = rank
	}
}
