package emotion

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/justestif/go-moodify/internal/vision"
)

// DefaultOpenAIModel is used when Config.Model is empty.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClassifier classifies faces with an OpenAI-compatible vision model.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier creates an OpenAI-backed classifier.
func NewOpenAIClassifier(cfg Config) (*OpenAIClassifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClassifier{client: &client, model: model}, nil
}

// Classify sends the face as a data URL image part and parses the reply.
func (c *OpenAIClassifier) Classify(ctx context.Context, input []float32) ([]float32, error) {
	img, err := vision.EncodeFacePNG(input)
	if err != nil {
		return nil, err
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty classifier response")
	}
	return ParseScores(resp.Choices[0].Message.Content)
}
