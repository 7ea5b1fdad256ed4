package vision

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"splay/internal/utils/imaging"
	"splay/pkg/matching"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubProviderIsDeterministic(t *testing.T) {
	p := NewStubProvider()
	ctx := context.Background()

	even, odd := "", ""
	for _, key := range []string{"uploads/a.jpg", "uploads/b.jpg", "uploads/c.jpg", "uploads/d.jpg", "uploads/e.jpg"} {
		if matching.Seed(key)%2 == 0 && even == "" {
			even = key
		}
		if matching.Seed(key)%2 == 1 && odd == "" {
			odd = key
		}
	}
	require.NotEmpty(t, even)
	require.NotEmpty(t, odd)

	got, err := p.Detect(ctx, nil, "image/jpeg", even)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Detection{Category: "sofa", BBox: BBox{0.15, 0.35, 0.50, 0.40}, Confidence: 0.95}, got[0])
	assert.Equal(t, Detection{Category: "coffee_table", BBox: BBox{0.35, 0.65, 0.30, 0.20}, Confidence: 0.88}, got[1])
	assert.Equal(t, Detection{Category: "floor_lamp", BBox: BBox{0.75, 0.15, 0.12, 0.50}, Confidence: 0.82}, got[2])

	got, err = p.Detect(ctx, nil, "image/jpeg", odd)
	require.NoError(t, err)
	assert.Equal(t, Detection{Category: "table_lamp", BBox: BBox{0.20, 0.25, 0.10, 0.15}, Confidence: 0.79}, got[2])

	again, err := p.Detect(ctx, nil, "image/jpeg", odd)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestStubProviderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStubProvider().Detect(ctx, nil, "", "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBBoxClamp(t *testing.T) {
	assert.Equal(t, BBox{0.75, 0, 0.25, 1}, BBox{0.75, -0.2, 0.5, 1.5}.Clamp())
}

func TestParseDetections(t *testing.T) {
	text := "```json\n" + `[
		{"category": "Sofa", "bbox": [0.1, 0.2, 0.5, 0.4], "confidence": 0.9},
		{"category": "tv", "bbox": [0.1, 0.1, 0.1, 0.1], "confidence": 0.9},
		{"category": "chair", "bbox": [0.1, 0.1], "confidence": 0.9},
		{"category": "chair", "bbox": [0.9, 0.9, 0.5, 0.5], "confidence": 1.4}
	]` + "\n```"

	got, err := parseDetections(text)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sofa", got[0].Category)
	assert.Equal(t, "chair", got[1].Category)
	assert.InDelta(t, 0.1, got[1].BBox.W, 1e-9)
	assert.Equal(t, 1.0, got[1].Confidence)

	_, err = parseDetections("not json")
	assert.Error(t, err)
}

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func testPNG(t *testing.T) []byte {
	data, err := imaging.EncodePNG(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	require.NoError(t, err)
	return data
}

func TestGeminiProviderDetect(t *testing.T) {
	fake := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`[{"category": "side_table", "bbox": [0.1, 0.1, 0.2, 0.2], "confidence": 0.7}]`),
			}},
		}},
	}}
	p := &GeminiProvider{model: fake, timeout: time.Second}

	got, err := p.Detect(context.Background(), testPNG(t), "image/png", "uploads/x.png")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "side_table", got[0].Category)
	require.Len(t, fake.parts, 2)
	blob, ok := fake.parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.NoError(t, p.Close())
}

func TestGeminiProviderErrors(t *testing.T) {
	p := &GeminiProvider{model: &fakeGenerator{err: errors.New("quota")}, timeout: time.Second}
	_, err := p.Detect(context.Background(), testPNG(t), "image/png", "k")
	assert.Error(t, err)

	p = &GeminiProvider{model: &fakeGenerator{resp: &genai.GenerateContentResponse{}}, timeout: time.Second}
	_, err = p.Detect(context.Background(), testPNG(t), "image/png", "k")
	assert.Error(t, err)

	_, err = p.Detect(context.Background(), []byte("garbage"), "image/png", "k")
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &StubProvider{}, p)
	assert.Equal(t, Categories, p.Categories())

	_, err = NewProvider(context.Background(), Config{Provider: "gemini"})
	assert.Error(t, err)

	_, err = NewProvider(context.Background(), Config{Provider: "openai"})
	assert.Error(t, err)
}
