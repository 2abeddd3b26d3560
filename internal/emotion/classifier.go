// Package emotion provides the emotion classifier backends consumed by the
// mood sampler. A classifier turns one normalized 48x48 face into a score per
// raw emotion label.
package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/justestif/go-moodify/internal/mood"
)

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// Sentinel errors.
var (
	// ErrMissingAPIKey is returned when a cloud backend is selected without a key.
	ErrMissingAPIKey = errors.New("missing API key for emotion classifier")

	// ErrUnknownBackend is returned for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown emotion classifier backend")
)

// Classifier scores a single face. input holds FaceSize*FaceSize intensities
// in [0,1], row-major; the result has one score per mood.RawLabel.
type Classifier interface {
	Classify(ctx context.Context, input []float32) ([]float32, error)
}

// Config selects and configures a classifier backend.
type Config struct {
	Backend string
	APIKey  string
	Model   string
	BaseURL string // optional endpoint override
}

// New builds the configured classifier. A "none" backend yields a nil
// Classifier and no error: callers treat that as the capability being off.
func New(ctx context.Context, cfg Config) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendGemini:
		c, err := NewGeminiClassifier(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendOpenAI:
		c, err := NewOpenAIClassifier(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// prompt is shared by the cloud backends.
var prompt = fmt.Sprintf(
	"The image is a 48x48 grayscale crop of one human face. "+
		"Classify its facial expression. Reply with only a JSON object "+
		"mapping each of these keys to a probability between 0 and 1: %s.",
	strings.Join(labelNames(), ", "),
)

func labelNames() []string {
	labels := mood.RawLabels()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.String()
	}
	return names
}

// ParseScores extracts a score vector from a model reply. The reply may wrap
// the JSON object in prose or a code fence. Keys match labels case-insensitively
// and missing labels score 0.
func ParseScores(reply string) ([]float32, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in classifier reply")
	}

	var raw map[string]float64
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parsing classifier reply: %w", err)
	}

	scores := make([]float32, mood.NumRawLabels)
	matched := 0
	for key, v := range raw {
		for _, l := range mood.RawLabels() {
			if strings.EqualFold(strings.TrimSpace(key), l.String()) {
				scores[l] = float32(v)
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("classifier reply has no known emotion labels")
	}
	return scores, nil
}
