// Package voice turns a short spoken phrase into a mood.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// DefaultDuration is how long the microphone is recorded per request.
const DefaultDuration = 4 * time.Second

// transcribeGrace bounds how long the STT service may take to flush after
// capture ends.
const transcribeGrace = 10 * time.Second

// ErrNotUnderstood is returned when no speech was recognised.
var ErrNotUnderstood = errors.New("speech not understood")

// AudioSource starts a PCM stream. Closing the stream ends capture.
type AudioSource interface {
	Start(ctx context.Context) (io.ReadCloser, error)
}

// Transcriber converts a finite PCM stream to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Listener records one utterance and returns its transcript.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// CaptureListener records for a fixed duration and streams the audio to a
// Transcriber while recording.
type CaptureListener struct {
	audio    AudioSource
	stt      Transcriber
	duration time.Duration
	logger   *slog.Logger
}

// NewCaptureListener creates a listener. A non-positive duration uses
// DefaultDuration.
func NewCaptureListener(audio AudioSource, stt Transcriber, duration time.Duration, logger *slog.Logger) *CaptureListener {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptureListener{audio: audio, stt: stt, duration: duration, logger: logger}
}

// Listen records, transcribes and returns the trimmed transcript, or
// ErrNotUnderstood when it is empty.
func (l *CaptureListener) Listen(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.duration+transcribeGrace)
	defer cancel()

	stream, err := l.audio.Start(ctx)
	if err != nil {
		return "", fmt.Errorf("starting audio capture: %w", err)
	}

	stopCapture := func() {
		if err := stream.Close(); err != nil {
			l.logger.Debug("stopping audio capture", "error", err)
		}
	}
	timer := time.AfterFunc(l.duration, stopCapture)
	defer func() {
		if timer.Stop() {
			stopCapture()
		}
	}()

	text, err := l.stt.Transcribe(ctx, stream)
	if err != nil {
		return "", fmt.Errorf("transcribing speech: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNotUnderstood
	}
	return text, nil
}
