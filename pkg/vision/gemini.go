package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"splay/internal/utils/imaging"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const detectPrompt = `You are analyzing a photo of a room. Find every visible piece of furniture that belongs to one of these categories:

sofa, coffee_table, floor_lamp, table_lamp, dining_table, chair, side_table, pendant_light

For each item return its category, a bounding box and your confidence. The bounding box is [x, y, width, height] where x and y are the top-left corner, every value normalized to the image size (0.0 to 1.0).

Return ONLY valid JSON in this exact format:
[
  {"category": "sofa", "bbox": [0.15, 0.35, 0.50, 0.40], "confidence": 0.95}
]

Important:
- Use only the categories listed above
- Return [] when no furniture is visible
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// generator is the part of *genai.GenerativeModel the provider calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiProvider detects furniture with Google Gemini.
type GeminiProvider struct {
	client  *genai.Client
	model   generator
	timeout time.Duration
}

func NewGeminiProvider(ctx context.Context, apiKey string, modelName string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: 30 * time.Second,
	}, nil
}

func (g *GeminiProvider) Detect(ctx context.Context, image []byte, contentType string, _ string) ([]Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// Gemini does not take HEIC, everything is sent as PNG
	img, err := imaging.Decode(image, contentType)
	if err != nil {
		return nil, err
	}
	pngData, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	resp, err := g.model.GenerateContent(ctx, genai.ImageData("png", pngData), genai.Text(detectPrompt))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	detections, err := parseDetections(text.String())
	if err != nil {
		return nil, fmt.Errorf("parsing detections: %w", err)
	}
	return detections, nil
}

func (g *GeminiProvider) Categories() []string {
	return Categories
}

func (g *GeminiProvider) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

type rawDetection struct {
	Category   string    `json:"category"`
	BBox       []float64 `json:"bbox"`
	Confidence float64   `json:"confidence"`
}

// parseDetections accepts a JSON array, optionally inside a markdown fence,
// and drops entries with unknown categories or malformed boxes.
func parseDetections(text string) ([]Detection, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw []rawDetection
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	detections := make([]Detection, 0, len(raw))
	for _, r := range raw {
		category := strings.ToLower(strings.TrimSpace(r.Category))
		if !IsCategory(category) || len(r.BBox) != 4 {
			continue
		}
		box := BBox{X: r.BBox[0], Y: r.BBox[1], W: r.BBox[2], H: r.BBox[3]}.Clamp()
		if box.W == 0 || box.H == 0 {
			continue
		}
		detections = append(detections, Detection{
			Category:   category,
			BBox:       box,
			Confidence: clamp01(r.Confidence),
		})
	}
	return detections, nil
}
