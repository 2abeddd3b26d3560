// Package audio captures microphone PCM through ffmpeg.
package audio

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/justestif/go-moodify/internal/ffmpeg"
)

// Config selects the capture input and output PCM format.
type Config struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

// FFMPEGCapture streams signed 16-bit little-endian PCM from a microphone.
type FFMPEGCapture struct {
	cfg Config
}

// New creates a capture with pulse/default at 16kHz mono unless configured.
func New(cfg Config) *FFMPEGCapture {
	if cfg.Command == "" {
		cfg.Command = ffmpeg.DefaultCommand
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &FFMPEGCapture{cfg: cfg}
}

// SampleRate is the rate of the PCM produced by Start.
func (c *FFMPEGCapture) SampleRate() int { return c.cfg.SampleRate }

// Channels is the channel count of the PCM produced by Start.
func (c *FFMPEGCapture) Channels() int { return c.cfg.Channels }

// Args returns the ffmpeg arguments for the configured input.
func (c *FFMPEGCapture) Args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.cfg.InputFormat,
		"-i", c.cfg.InputDevice,
		"-ac", strconv.Itoa(c.cfg.Channels),
		"-ar", strconv.Itoa(c.cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// Start begins capture. Closing the returned stream stops ffmpeg; reads
// then return EOF once buffered audio is drained.
func (c *FFMPEGCapture) Start(ctx context.Context) (io.ReadCloser, error) {
	proc, err := ffmpeg.Start(ctx, c.cfg.Command, c.Args())
	if err != nil {
		return nil, fmt.Errorf("starting microphone capture: %w", err)
	}
	return proc, nil
}
