package voice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/justestif/go-moodify/internal/mood"
)

// Messages shown when a phrase does not produce a mood.
const (
	MsgNotUnderstood = "Sorry, I couldn't understand that. Try again or pick a mood below."
	MsgNoMatch       = "I heard you, but no mood word came through. Try saying happy, sad, neutral or surprise."
	MsgUnavailable   = "Voice detection is unavailable. Please select your mood manually."
)

// Outcome is the result of one voice detection. Message is set whenever
// Matched is false.
type Outcome struct {
	Mood       mood.Mood
	Matched    bool
	Transcript string
	Message    string
}

// Detector matches a spoken phrase against the mood names.
type Detector struct {
	listener Listener
	logger   *slog.Logger
}

// NewDetector creates a Detector. A nil listener disables voice detection.
func NewDetector(l Listener, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{listener: l, logger: logger}
}

// Available reports whether a listener is configured.
func (d *Detector) Available() bool {
	return d.listener != nil
}

// Detect listens once. Failures are reported through Outcome.Message and
// never retried.
func (d *Detector) Detect(ctx context.Context) Outcome {
	if d.listener == nil {
		return Outcome{Message: MsgUnavailable}
	}

	text, err := d.listener.Listen(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotUnderstood) {
			d.logger.Warn("voice capture failed", "error", err)
		}
		return Outcome{Message: MsgNotUnderstood}
	}

	m, ok := mood.Match(text)
	if !ok {
		d.logger.Info("no mood in phrase", "transcript", text)
		return Outcome{Transcript: text, Message: MsgNoMatch}
	}

	d.logger.Info("mood heard", "mood", m.String(), "transcript", text)
	return Outcome{Mood: m, Matched: true, Transcript: text}
}
