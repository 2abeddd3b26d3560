package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/vision"
)

func blankFace() []float32 {
	return make([]float32, vision.FaceSize*vision.FaceSize)
}

func TestGeminiClassifier(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		gotBody = buf.String()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"role": "model",
						"parts": []map[string]any{
							{"text": `{"Surprise": 0.7, "Happy": 0.2, "Neutral": 0.1}`},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	c, err := NewGeminiClassifier(context.Background(), Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGeminiClassifier() error = %v", err)
	}

	scores, err := c.Classify(context.Background(), blankFace())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	label, _ := mood.LabelFromScores(scores)
	if label != mood.RawSurprise {
		t.Errorf("label = %v, want %v", label, mood.RawSurprise)
	}
	if !strings.Contains(gotBody, "image/png") {
		t.Error("request did not carry the face image")
	}
}

func TestOpenAIClassifier(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		gotBody = buf.String()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   DefaultOpenAIModel,
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": `{"Angry": 0.8, "Sad": 0.1}`,
					},
				},
			},
		})
	}))
	defer server.Close()

	c, err := NewOpenAIClassifier(Config{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOpenAIClassifier() error = %v", err)
	}

	scores, err := c.Classify(context.Background(), blankFace())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	label, _ := mood.LabelFromScores(scores)
	if label != mood.Angry {
		t.Errorf("label = %v, want %v", label, mood.Angry)
	}
	if label.Mood() != mood.Sad {
		t.Errorf("mood = %v, want %v", label.Mood(), mood.Sad)
	}
	if !strings.Contains(gotBody, "data:image/png;base64,") {
		t.Error("request did not carry the face data URL")
	}
}

func TestClassifyRejectsWrongInputSize(t *testing.T) {
	c, err := NewOpenAIClassifier(Config{APIKey: "sk-test", BaseURL: "http://127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewOpenAIClassifier() error = %v", err)
	}
	if _, err := c.Classify(context.Background(), []float32{0.5}); err == nil {
		t.Error("expected error for wrong input size")
	}
}
