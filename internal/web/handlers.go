package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/playlist"
	"github.com/justestif/go-moodify/internal/sampler"
	"github.com/justestif/go-moodify/internal/voice"
)

// MoodSampler runs camera-based detection.
type MoodSampler interface {
	TrySample(ctx context.Context, budget time.Duration) (sampler.Result, error)
	Available() bool
	ClassifierAvailable() bool
}

// VoiceDetector runs voice-based detection.
type VoiceDetector interface {
	Detect(ctx context.Context) voice.Outcome
	Available() bool
}

// Playlists looks up the playlist for a mood.
type Playlists interface {
	Entry(m mood.Mood) (playlist.Entry, bool)
}

// HandlerDeps holds the collaborators of Handlers.
type HandlerDeps struct {
	Sampler      MoodSampler
	Voice        VoiceDetector
	Playlists    Playlists
	Templates    *Templates
	SampleBudget time.Duration
	Cloud        bool
	Logger       *slog.Logger
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	HandlerDeps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps HandlerDeps) *Handlers {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handlers{HandlerDeps: deps}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, nil)
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// SelectMood handles manual selection (POST /mood/{mood}).
func (h *Handlers) SelectMood(w http.ResponseWriter, r *http.Request) {
	m, err := mood.Parse(chi.URLParam(r, "mood"))
	if err != nil {
		h.renderResult(w, r, http.StatusNotFound, &ResultData{
			Status: StatusWarning,
			Info:   "Unknown mood. Pick one of the buttons below.",
		})
		return
	}

	res := h.moodResult(m, fmt.Sprintf("You chose %s mode!", m))
	h.renderResult(w, r, http.StatusOK, res)
}

// DetectCamera runs one sampling window (POST /detect/camera). A run already
// in progress yields 409 Conflict.
func (h *Handlers) DetectCamera(w http.ResponseWriter, r *http.Request) {
	if h.Sampler == nil {
		h.renderResult(w, r, http.StatusOK, &ResultData{
			Status: StatusInfo,
			Info:   msgCameraUnavailable,
		})
		return
	}

	result, err := h.Sampler.TrySample(r.Context(), h.SampleBudget)
	if errors.Is(err, sampler.ErrBusy) {
		h.renderResult(w, r, http.StatusConflict, &ResultData{
			Status: StatusWarning,
			Info:   "Mood detection is already running. Please wait for it to finish.",
		})
		return
	}

	res := h.moodResult(result.Mood, fmt.Sprintf("Detected Mood: %s", result.Mood))
	switch {
	case !h.Sampler.Available():
		res.Note = "Camera detection is unavailable, so this mood was picked at random."
	case result.Fallback:
		res.Note = "No face was detected, so this mood was picked at random."
	case !h.Sampler.ClassifierAvailable():
		res.Note = "Emotion model not found. Using random moods."
	}
	h.renderResult(w, r, http.StatusOK, res)
}

// DetectVoice listens for one phrase (POST /detect/voice).
func (h *Handlers) DetectVoice(w http.ResponseWriter, r *http.Request) {
	if h.Voice == nil {
		h.renderResult(w, r, http.StatusOK, &ResultData{Status: StatusInfo, Info: voice.MsgUnavailable})
		return
	}

	out := h.Voice.Detect(r.Context())
	if !out.Matched {
		h.renderResult(w, r, http.StatusOK, &ResultData{
			Status:     StatusInfo,
			Info:       out.Message,
			Transcript: out.Transcript,
		})
		return
	}

	res := h.moodResult(out.Mood, fmt.Sprintf("Detected Mood: %s", out.Mood))
	res.Transcript = out.Transcript
	h.renderResult(w, r, http.StatusOK, res)
}

func (h *Handlers) moodResult(m mood.Mood, heading string) *ResultData {
	res := &ResultData{
		Status:  StatusSuccess,
		Heading: heading,
		Mood:    newMoodData(m),
	}
	if h.Playlists != nil {
		if e, ok := h.Playlists.Entry(m); ok {
			res.Playlist = newPlaylistData(e)
		}
	}
	return res
}

// renderResult writes the result fragment for htmx requests and the full
// page otherwise.
func (h *Handlers) renderResult(w http.ResponseWriter, r *http.Request, status int, res *ResultData) {
	if r.Header.Get("HX-Request") != "true" {
		h.renderPage(w, r, status, res)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.Templates.RenderPartial(w, "result", res); err != nil {
		h.Logger.Error("rendering result", "error", err)
	}
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, res *ResultData) {
	data := HomePageData{
		PageData: PageData{
			Title:       "Moodify",
			CurrentPath: r.URL.Path,
		},
		Moods:  allMoodData(),
		Result: res,
		Cloud:  h.Cloud,
	}
	if h.Sampler != nil {
		data.CameraAvailable = h.Sampler.Available()
		data.ClassifierAvailable = h.Sampler.ClassifierAvailable()
	}
	if h.Voice != nil {
		data.VoiceAvailable = h.Voice.Available()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.Templates.Render(w, "home", data); err != nil {
		h.Logger.Error("rendering home page", "error", err)
	}
}

const msgCameraUnavailable = "Camera detection is unavailable. Please select your mood manually."
