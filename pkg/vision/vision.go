package vision

import (
	"context"
	"fmt"
	"strings"
)

// Categories are the furniture types the matcher has catalog products for.
var Categories = []string{
	"sofa", "coffee_table", "floor_lamp", "table_lamp",
	"dining_table", "chair", "side_table", "pendant_light",
}

type (
	// BBox is normalized to the image size, each field in [0, 1].
	BBox struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	}

	Detection struct {
		Category   string
		BBox       BBox
		Confidence float64
	}

	// Provider finds furniture in a room photo. key identifies the stored
	// upload (its storage key).
	Provider interface {
		Detect(ctx context.Context, image []byte, contentType string, key string) ([]Detection, error)
		Categories() []string
		Close() error
	}
)

func IsCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Clamp limits the box to the unit square.
func (b BBox) Clamp() BBox {
	b.X = clamp01(b.X)
	b.Y = clamp01(b.Y)
	b.W = clamp01(b.W)
	b.H = clamp01(b.H)
	if b.X+b.W > 1 {
		b.W = 1 - b.X
	}
	if b.Y+b.H > 1 {
		b.H = 1 - b.Y
	}
	return b
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

type Config struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
}

// NewProvider builds the provider named in cfg; "stub" (or empty) needs no
// credentials.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "stub":
		return NewStubProvider(), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}
