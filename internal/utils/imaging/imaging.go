package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/heic"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	ThumbnailSize    = 400
	ThumbnailQuality = 85
	CropQuality      = 90
)

var ErrEmptyCrop = errors.New("crop region is empty")

// Decode reads JPEG, PNG, WebP and HEIC/HEIF images.
func Decode(data []byte, contentType string) (image.Image, error) {
	if IsHEIC(data, contentType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Dimensions returns the pixel size without decoding the full image where
// the format allows it.
func Dimensions(data []byte, contentType string) (int, int, error) {
	if IsHEIC(data, contentType) {
		cfg, err := heic.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return 0, 0, fmt.Errorf("decoding HEIC/HEIF config: %w", err)
		}
		return cfg.Width, cfg.Height, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Thumbnail scales img to fit within size x size keeping the aspect ratio.
// Images already small enough are re-encoded unscaled.
func Thumbnail(img image.Image, size int) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > size || h > size {
		if w >= h {
			h = max(1, h*size/w)
			w = size
		} else {
			w = max(1, w*size/h)
			h = size
		}
	}

	dst := opaqueCanvas(w, h)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return EncodeJPEG(dst, ThumbnailQuality)
}

// Crop cuts the normalized box (x, y, w, h in 0..1) out of img.
func Crop(img image.Image, x, y, w, h float64) ([]byte, error) {
	b := img.Bounds()
	width, height := float64(b.Dx()), float64(b.Dy())

	rect := image.Rect(
		b.Min.X+int(x*width),
		b.Min.Y+int(y*height),
		b.Min.X+int((x+w)*width),
		b.Min.Y+int((y+h)*height),
	).Intersect(b)
	if rect.Empty() {
		return nil, ErrEmptyCrop
	}

	dst := opaqueCanvas(rect.Dx(), rect.Dy())
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Over)
	return EncodeJPEG(dst, CropQuality)
}

// opaqueCanvas is a white RGBA image; transparent sources are composited onto
// it so JPEG output never shows black where alpha was zero.
func opaqueCanvas(w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	return dst
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// IsHEIC checks the ftyp brand at offset 4, falling back to the MIME type.
func IsHEIC(data []byte, contentType string) bool {
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		switch string(data[8:12]) {
		case "heic", "heix", "heif", "mif1", "msf1":
			return true
		}
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.Contains(ct, "heic") || strings.Contains(ct, "heif")
}
