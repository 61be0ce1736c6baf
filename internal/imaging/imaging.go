package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

// MaxDimension caps the width and height of stored item images.
const MaxDimension = 1024

// JPEGQuality is the compression quality for re-encoded output.
const JPEGQuality = 85

var (
	// ErrNotDataURL signals the image field held something other than a
	// base64 data URL.
	ErrNotDataURL = errors.New("not a data URL")
	// ErrUnsupportedFormat signals bytes that are neither JPEG nor PNG.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Normalize takes an item image as a data URL, verifies the payload really
// is a JPEG or PNG, downscales anything over MaxDimension, and returns the
// result as a JPEG data URL. Items carry their images inline, so keeping
// them small keeps listing payloads small.
func Normalize(dataURL string) (string, error) {
	raw, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	processed, err := Process(raw)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(processed), nil
}

// DecodeDataURL extracts the payload bytes from a base64 data URL. The
// declared MIME type is ignored; the bytes are sniffed later.
func DecodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, ErrNotDataURL
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return nil, ErrNotDataURL
	}
	meta := s[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, ErrNotDataURL
	}

	raw, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return raw, nil
}

// EncodeDataURL wraps JPEG bytes in a data URL.
func EncodeDataURL(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

// Process validates image bytes by sniffing, downscales when needed, and
// re-encodes as JPEG.
func Process(data []byte) ([]byte, error) {
	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes so neither dimension exceeds maxDim, preserving aspect
// ratio. Images already within bounds come back untouched; nothing is ever
// upscaled.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = h * maxDim / w
	} else {
		newW = w * maxDim / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
