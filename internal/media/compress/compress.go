package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/zlc1004/Carpool-sub000/internal/media/transcode"
)

// Engine drives encoded size toward a byte target through two bounded
// phases: first raising encoder effort, then downscaling. It is fully
// deterministic for a given input, and it never fails on size alone —
// if both phases exhaust, the smallest result seen wins.
type Engine struct {
	targetBytes int64
}

type Result struct {
	Data   []byte
	Width  int
	Height int
}

func NewEngine(targetBytes int64) *Engine {
	return &Engine{targetBytes: targetBytes}
}

const (
	startLevel = 6
	maxLevel   = 9

	// Downscale phase walks factors 0.9 down to 0.4 in tenths; the
	// guard excludes 0.3 and below.
	scaleStartTenths = 9
	scaleFloorTenths = 3
)

// levelStrategy maps the 0-9 effort scale onto the png encoder's
// strategies. Adjacent levels can share a strategy; Compress skips
// re-encodes that would repeat the previous strategy, which keeps the
// iteration bound without redundant work.
func levelStrategy(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 5:
		return png.BestSpeed
	case level <= 7:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// Compress runs the bounded search over the transcoder's output.
func (e *Engine) Compress(in transcode.Result) (Result, error) {
	best, err := e.effortPhase(in)
	if err != nil {
		return Result{}, err
	}
	if int64(len(best.Data)) <= e.targetBytes {
		return best, nil
	}
	return e.downscalePhase(in, best)
}

// effortPhase re-encodes the canonical bitmap at rising effort levels,
// starting at 6, stopping at the target or at level 9.
func (e *Engine) effortPhase(in transcode.Result) (Result, error) {
	canonical, err := decodeCanonical(in)
	if err != nil {
		return Result{}, err
	}

	var best Result
	lastStrategy := png.CompressionLevel(127) // sentinel outside the valid range
	for level := startLevel; level <= maxLevel; level++ {
		strategy := levelStrategy(level)
		if strategy == lastStrategy {
			continue
		}
		lastStrategy = strategy

		data, err := transcode.EncodePNG(canonical, strategy)
		if err != nil {
			return Result{}, fmt.Errorf("encode at level %d: %w", level, err)
		}
		if best.Data == nil || len(data) < len(best.Data) {
			best = Result{Data: data, Width: in.Width, Height: in.Height}
		}
		if int64(len(best.Data)) <= e.targetBytes {
			break
		}
	}
	return best, nil
}

// downscalePhase resamples the original decoded bitmap (not the capped
// canonical one) at shrinking scale factors, encoding at maximum
// effort. Exhausting the factors is not an error: the smallest result
// obtained is returned.
func (e *Engine) downscalePhase(in transcode.Result, best Result) (Result, error) {
	for tenths := scaleStartTenths; tenths > scaleFloorTenths; tenths-- {
		factor := float64(tenths) / 10
		width := int(float64(in.Width)*factor + 0.5)
		height := int(float64(in.Height)*factor + 0.5)
		if width < 1 || height < 1 {
			break
		}

		resized := transcode.Resample(in.Original, width, height)
		data, err := transcode.EncodePNG(resized, levelStrategy(maxLevel))
		if err != nil {
			return Result{}, fmt.Errorf("encode at scale %.1f: %w", factor, err)
		}
		if len(data) < len(best.Data) {
			best = Result{Data: data, Width: width, Height: height}
		}
		if int64(len(best.Data)) <= e.targetBytes {
			break
		}
	}
	return best, nil
}

func decodeCanonical(in transcode.Result) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(in.Canonical))
	if err != nil {
		return nil, fmt.Errorf("decode canonical png: %w", err)
	}
	return img, nil
}
