package emotion

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/justestif/go-moodify/internal/vision"
)

// DefaultGeminiModel is used when Config.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClassifier classifies faces with a Gemini multimodal model.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGeminiClassifier creates a Gemini-backed classifier.
func NewGeminiClassifier(ctx context.Context, cfg Config) (*GeminiClassifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

// Classify sends the face as an inline PNG and parses the returned scores.
func (c *GeminiClassifier) Classify(ctx context.Context, input []float32) ([]float32, error) {
	img, err := vision.EncodeFacePNG(input)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(img, "image/png"),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty classifier response")
	}
	return ParseScores(resp.Text())
}
