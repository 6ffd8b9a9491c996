package sniffer

import (
	"bytes"
	"errors"
)

type MediaType string

const (
	TypeJPEG MediaType = "jpeg"
	TypePNG  MediaType = "png"
	TypeGIF  MediaType = "gif"
	TypeWEBP MediaType = "webp"
)

var ErrUnsupportedType = errors.New("unsupported media type")

type Result struct {
	Type MediaType
	MIME string
}

// allowedMIMEs is the raster allow-list for uploads. SVG and AVIF are
// deliberately absent: the pipeline only ingests formats it can decode
// to a bitmap.
var allowedMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true, // common client alias for image/jpeg
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Allowed reports whether a declared MIME type is on the raster
// allow-list.
func Allowed(mime string) bool {
	return allowedMIMEs[mime]
}

// DetectHead sniffs the leading bytes and returns the detected raster
// type. Unknown or disallowed signatures fail with ErrUnsupportedType.
func DetectHead(head []byte) (Result, error) {
	if len(head) == 0 {
		return Result{}, ErrUnsupportedType
	}

	if isJPEG(head) {
		return Result{Type: TypeJPEG, MIME: "image/jpeg"}, nil
	}
	if isPNG(head) {
		return Result{Type: TypePNG, MIME: "image/png"}, nil
	}
	if isGIF(head) {
		return Result{Type: TypeGIF, MIME: "image/gif"}, nil
	}
	if isWEBP(head) {
		return Result{Type: TypeWEBP, MIME: "image/webp"}, nil
	}

	return Result{}, ErrUnsupportedType
}

// Matches reports whether a declared MIME type agrees with a sniffed
// result, tolerating the image/jpg alias. An empty declaration never
// matches; callers must send a type from the allow-list.
func Matches(declared string, detected Result) bool {
	if declared == "" {
		return false
	}
	if declared == "image/jpg" && detected.MIME == "image/jpeg" {
		return true
	}
	return declared == detected.MIME
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}
