// Package config resolves runtime configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxSampleDuration bounds MOODIFY_SAMPLE_SECONDS and MOODIFY_LISTEN_SECONDS;
// larger values are clamped to it.
const MaxSampleDuration = 30 * time.Second

// Deployment selects which hardware-backed features may run.
type Deployment string

const (
	// DeploymentLocal enables camera and microphone capture.
	DeploymentLocal Deployment = "local"
	// DeploymentCloud runs without local devices; only manual selection works.
	DeploymentCloud Deployment = "cloud"
)

// Config stores runtime configuration.
type Config struct {
	Addr       string
	Deployment Deployment
	LogLevel   slog.Level

	SampleBudget   time.Duration
	ListenDuration time.Duration

	Camera     CameraConfig
	Audio      AudioConfig
	Classifier ClassifierConfig
	Deepgram   DeepgramConfig
	Spotify    SpotifyConfig
	Preview    PreviewConfig
}

type CameraConfig struct {
	Command     string
	InputFormat string
	Device      string
	Width       int
	Height      int
	FrameRate   int
	CascadeFile string // empty selects the bundled facefinder cascade
	MinFaceSize int
	MinQuality  float32
}

type AudioConfig struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int
}

type ClassifierConfig struct {
	Backend string
	APIKey  string
	Model   string
	BaseURL string
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIBaseURL   string
}

type PreviewConfig struct {
	Quality int
}

// Local reports whether camera and microphone features may be used.
func (c Config) Local() bool {
	return c.Deployment == DeploymentLocal
}

// Load resolves configuration from environment variables and defaults.
// Malformed numbers fall back to defaults; an unknown deployment or log
// level is an error.
func Load() (Config, error) {
	deployment := Deployment(strings.ToLower(envOrDefault("MOODIFY_DEPLOYMENT", string(DeploymentLocal))))
	if deployment != DeploymentLocal && deployment != DeploymentCloud {
		return Config{}, fmt.Errorf("MOODIFY_DEPLOYMENT must be %q or %q, got %q", DeploymentLocal, DeploymentCloud, deployment)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(envOrDefault("MOODIFY_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("parsing MOODIFY_LOG_LEVEL: %w", err)
	}

	ffmpegCommand := envOrDefault("MOODIFY_FFMPEG_COMMAND", "ffmpeg")

	cfg := Config{
		Addr:           envOrDefault("MOODIFY_ADDR", ":8080"),
		Deployment:     deployment,
		LogLevel:       level,
		SampleBudget:   envSeconds("MOODIFY_SAMPLE_SECONDS", 5*time.Second, MaxSampleDuration),
		ListenDuration: envSeconds("MOODIFY_LISTEN_SECONDS", 4*time.Second, MaxSampleDuration),
		Camera: CameraConfig{
			Command:     ffmpegCommand,
			InputFormat: envOrDefault("MOODIFY_CAMERA_INPUT_FORMAT", "v4l2"),
			Device:      envOrDefault("MOODIFY_CAMERA_DEVICE", "/dev/video0"),
			Width:       envOrDefaultInt("MOODIFY_CAMERA_WIDTH", 640),
			Height:      envOrDefaultInt("MOODIFY_CAMERA_HEIGHT", 480),
			FrameRate:   envOrDefaultInt("MOODIFY_CAMERA_FPS", 15),
			CascadeFile: strings.TrimSpace(os.Getenv("MOODIFY_CASCADE_FILE")),
			MinFaceSize: envOrDefaultInt("MOODIFY_MIN_FACE_SIZE", 40),
			MinQuality:  envOrDefaultFloat32("MOODIFY_FACE_MIN_QUALITY", 5),
		},
		Audio: AudioConfig{
			Command:     ffmpegCommand,
			InputFormat: envOrDefault("MOODIFY_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice: envOrDefault("MOODIFY_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:  envOrDefaultInt("MOODIFY_SAMPLE_RATE", 16000),
			Channels:    envOrDefaultInt("MOODIFY_CHANNELS", 1),
		},
		Classifier: resolveClassifier(),
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Spotify: SpotifyConfig{
			ClientID:     strings.TrimSpace(os.Getenv("SPOTIFY_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("SPOTIFY_SECRET")),
			TokenURL:     strings.TrimSpace(os.Getenv("SPOTIFY_TOKEN_URL")),
			APIBaseURL:   strings.TrimSpace(os.Getenv("SPOTIFY_API_BASE")),
		},
		Preview: PreviewConfig{
			Quality: envOrDefaultInt("MOODIFY_PREVIEW_QUALITY", 70),
		},
	}

	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		cfg.Camera.Width, cfg.Camera.Height = 640, 480
	}
	if cfg.Camera.FrameRate <= 0 {
		cfg.Camera.FrameRate = 15
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Preview.Quality <= 0 || cfg.Preview.Quality > 100 {
		cfg.Preview.Quality = 70
	}

	return cfg, nil
}

// resolveClassifier picks the emotion backend. Without MOODIFY_CLASSIFIER
// the first backend with a key wins: Gemini, then OpenAI, then none.
func resolveClassifier() ClassifierConfig {
	googleKey := strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	openaiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("MOODIFY_CLASSIFIER")))
	if backend == "" {
		switch {
		case googleKey != "":
			backend = "gemini"
		case openaiKey != "":
			backend = "openai"
		default:
			backend = "none"
		}
	}

	cfg := ClassifierConfig{Backend: backend}
	switch backend {
	case "gemini":
		cfg.APIKey = googleKey
		cfg.Model = strings.TrimSpace(os.Getenv("MOODIFY_GEMINI_MODEL"))
		cfg.BaseURL = strings.TrimSpace(os.Getenv("GOOGLE_API_BASE"))
	case "openai":
		cfg.APIKey = openaiKey
		cfg.Model = strings.TrimSpace(os.Getenv("MOODIFY_OPENAI_MODEL"))
		cfg.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	}
	return cfg
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat32(key string, fallback float32) float32 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 32)
	if err != nil || parsed < 0 {
		return fallback
	}
	return float32(parsed)
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envSeconds reads a positive number of seconds, which may be fractional,
// and clamps it to limit.
func envSeconds(key string, fallback, limit time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || secs <= 0 || math.IsNaN(secs) {
		return fallback
	}
	if secs >= limit.Seconds() {
		return limit
	}
	return time.Duration(secs * float64(time.Second))
}
