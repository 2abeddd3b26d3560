// Package bootstrap resolves capabilities once at startup and assembles the
// runtime graph.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"

	"github.com/justestif/go-moodify/internal/audio"
	"github.com/justestif/go-moodify/internal/auth"
	"github.com/justestif/go-moodify/internal/camera"
	"github.com/justestif/go-moodify/internal/config"
	"github.com/justestif/go-moodify/internal/deepgram"
	"github.com/justestif/go-moodify/internal/emotion"
	"github.com/justestif/go-moodify/internal/playlist"
	"github.com/justestif/go-moodify/internal/preview"
	"github.com/justestif/go-moodify/internal/sampler"
	"github.com/justestif/go-moodify/internal/spotify"
	"github.com/justestif/go-moodify/internal/vision"
	"github.com/justestif/go-moodify/internal/voice"
)

const enrichTimeout = 10 * time.Second

// Capabilities records which optional features were resolved.
type Capabilities struct {
	Camera     bool
	Classifier bool
	Voice      bool
	Playlists  int // playlists with fetched metadata
}

// Services is the assembled runtime graph.
type Services struct {
	Config       config.Config
	Sampler      *sampler.Sampler
	Voice        *voice.Detector
	Playlists    *playlist.Directory
	Preview      *preview.Hub
	Capabilities Capabilities
}

// Build wires all dependencies for cfg. Missing hardware, models and
// credentials switch features off with a log line; only an unknown
// classifier backend is an error.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	classifier, err := buildClassifier(ctx, cfg.Classifier, logger)
	if err != nil {
		return Services{}, err
	}

	hub := preview.NewHub(
		preview.WithQuality(cfg.Preview.Quality),
		preview.WithLogger(logger.With("component", "preview")),
	)

	cam, detector := buildCamera(cfg, logger)
	smp := sampler.New(sampler.Config{
		Camera:     cam,
		Detector:   detector,
		Classifier: classifier,
		Renderer:   hub,
		Logger:     logger.With("component", "sampler"),
	})

	var listener voice.Listener
	if l := buildListener(cfg, logger); l != nil {
		listener = l
	}
	voiceDetector := voice.NewDetector(listener, logger.With("component", "voice"))

	dir := playlist.New(playlist.WithLogger(logger.With("component", "playlist")))
	enriched := enrichPlaylists(ctx, cfg.Spotify, dir, logger)

	caps := Capabilities{
		Camera:     smp.Available(),
		Classifier: smp.ClassifierAvailable(),
		Voice:      voiceDetector.Available(),
		Playlists:  enriched,
	}
	logger.Info("capabilities resolved",
		"deployment", string(cfg.Deployment),
		"camera", caps.Camera,
		"classifier", caps.Classifier,
		"classifier_backend", cfg.Classifier.Backend,
		"voice", caps.Voice,
		"playlist_metadata", caps.Playlists,
	)

	return Services{
		Config:       cfg,
		Sampler:      smp,
		Voice:        voiceDetector,
		Playlists:    dir,
		Preview:      hub,
		Capabilities: caps,
	}, nil
}

func buildClassifier(ctx context.Context, cfg config.ClassifierConfig, logger *slog.Logger) (emotion.Classifier, error) {
	c, err := emotion.New(ctx, emotion.Config{
		Backend: cfg.Backend,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	switch {
	case errors.Is(err, emotion.ErrUnknownBackend):
		return nil, fmt.Errorf("building emotion classifier: %w", err)
	case err != nil:
		logger.Warn("emotion classifier unavailable, faces will get random labels", "backend", cfg.Backend, "error", err)
		return nil, nil
	}
	return c, nil
}

// buildCamera returns nil collaborators when camera detection cannot run.
func buildCamera(cfg config.Config, logger *slog.Logger) (sampler.Camera, sampler.FaceDetector) {
	if !cfg.Local() {
		logger.Info("camera disabled in cloud deployment")
		return nil, nil
	}
	if err := checkCapture(cfg.Camera.Command, cfg.Camera.InputFormat, cfg.Camera.Device); err != nil {
		logger.Warn("camera unavailable", "error", err)
		return nil, nil
	}

	detector, err := buildDetector(cfg.Camera)
	if err != nil {
		logger.Warn("face detector unavailable", "cascade", cfg.Camera.CascadeFile, "error", err)
		return nil, nil
	}

	cam := camera.New(camera.Config{
		Command:     cfg.Camera.Command,
		InputFormat: cfg.Camera.InputFormat,
		Device:      cfg.Camera.Device,
		Width:       cfg.Camera.Width,
		Height:      cfg.Camera.Height,
		FrameRate:   cfg.Camera.FrameRate,
	})
	return cam, detector
}

// buildDetector loads the configured cascade file, or the bundled facefinder
// cascade when none is set.
func buildDetector(cfg config.CameraConfig) (*vision.PigoDetector, error) {
	opts := []vision.DetectorOption{
		vision.WithMinFaceSize(cfg.MinFaceSize),
		vision.WithMinQuality(cfg.MinQuality),
	}
	if cfg.CascadeFile == "" {
		return vision.NewDefaultPigoDetector(opts...)
	}
	return vision.LoadPigoDetector(cfg.CascadeFile, opts...)
}

// buildListener returns nil when voice detection cannot run.
func buildListener(cfg config.Config, logger *slog.Logger) *voice.CaptureListener {
	if !cfg.Local() {
		logger.Info("microphone disabled in cloud deployment")
		return nil
	}
	if cfg.Deepgram.APIKey == "" {
		logger.Info("voice detection off", "reason", deepgram.ErrMissingAPIKey.Error())
		return nil
	}
	if err := checkCapture(cfg.Audio.Command, "", ""); err != nil {
		logger.Warn("microphone unavailable", "error", err)
		return nil
	}

	capture := audio.New(audio.Config{
		Command:     cfg.Audio.Command,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
	})
	stt := deepgram.New(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
		SampleRate:  capture.SampleRate(),
		Channels:    capture.Channels(),
	})
	return voice.NewCaptureListener(capture, stt, cfg.ListenDuration, logger.With("component", "voice"))
}

// checkCapture checks that the capture command exists and, for V4L2, that
// the device node is present.
func checkCapture(command, format, device string) error {
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("capture command %q: %w", command, err)
	}
	if format == "v4l2" {
		if _, err := os.Stat(device); err != nil {
			return fmt.Errorf("video device: %w", err)
		}
	}
	return nil
}

// enrichPlaylists fetches playlist metadata once. The credentials are checked
// with one token request before any playlist lookup.
func enrichPlaylists(ctx context.Context, cfg config.SpotifyConfig, dir *playlist.Directory, logger *slog.Logger) int {
	authenticator, err := auth.New(cfg.ClientID, cfg.ClientSecret, auth.WithTokenURL(cfg.TokenURL))
	if err != nil {
		logger.Info("playlist metadata off", "reason", err.Error())
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	if _, err := authenticator.Token(ctx); err != nil {
		logger.Warn("playlist metadata off, spotify rejected credentials", "error", err)
		return 0
	}

	var opts []spotifyapi.ClientOption
	if cfg.APIBaseURL != "" {
		opts = append(opts, spotifyapi.WithBaseURL(strings.TrimSuffix(cfg.APIBaseURL, "/")+"/"))
	}
	client := spotify.New(authenticator.Client(ctx), opts...)
	return dir.Enrich(ctx, client)
}
