package web

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justestif/go-moodify/internal/mood"
	"github.com/justestif/go-moodify/internal/playlist"
	"github.com/justestif/go-moodify/internal/sampler"
	"github.com/justestif/go-moodify/internal/voice"
	webfs "github.com/justestif/go-moodify/web"
)

type fakeSampler struct {
	result     sampler.Result
	err        error
	available  bool
	classifier bool
	budget     atomic.Int64
}

func (f *fakeSampler) TrySample(_ context.Context, budget time.Duration) (sampler.Result, error) {
	f.budget.Store(int64(budget))
	return f.result, f.err
}
func (f *fakeSampler) Available() bool           { return f.available }
func (f *fakeSampler) ClassifierAvailable() bool { return f.classifier }

type fakeVoice struct {
	outcome   voice.Outcome
	available bool
}

func (f *fakeVoice) Detect(context.Context) voice.Outcome { return f.outcome }
func (f *fakeVoice) Available() bool                      { return f.available }

func newTestServer(t *testing.T, cfg ServerConfig) http.Handler {
	t.Helper()

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		t.Fatalf("templates fs: %v", err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		t.Fatalf("static fs: %v", err)
	}
	cfg.TemplatesFS = templates
	cfg.StaticFS = static
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.Playlists == nil {
		cfg.Playlists = playlist.New()
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHomeShowsAvailableTriggers(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ServerConfig
		want      []string
		wantNotIn []string
	}{
		{
			name: "everything available",
			cfg: ServerConfig{
				Sampler: &fakeSampler{available: true, classifier: true},
				Voice:   &fakeVoice{available: true},
			},
			want:      []string{"Detect mood via camera", "Detect mood via voice", "Or select your mood manually"},
			wantNotIn: []string{"Emotion model not found", "Please select your mood manually"},
		},
		{
			name: "camera without model",
			cfg: ServerConfig{
				Sampler: &fakeSampler{available: true},
				Voice:   &fakeVoice{},
			},
			want:      []string{"Detect mood via camera", "Emotion model not found", "Voice detection is unavailable"},
			wantNotIn: []string{"Detect mood via voice"},
		},
		{
			name:      "cloud deployment",
			cfg:       ServerConfig{Sampler: &fakeSampler{}, Voice: &fakeVoice{}, Cloud: true},
			want:      []string{"Running in the cloud"},
			wantNotIn: []string{"Detect mood via camera", "Detect mood via voice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(t, tt.cfg), http.MethodGet, "/", false)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			for _, s := range tt.want {
				if !strings.Contains(body, s) {
					t.Errorf("body missing %q", s)
				}
			}
			for _, s := range tt.wantNotIn {
				if strings.Contains(body, s) {
					t.Errorf("body unexpectedly contains %q", s)
				}
			}
			for _, m := range mood.Moods() {
				if !strings.Contains(body, `action="/mood/`+m.Slug()+`"`) {
					t.Errorf("missing manual button for %s", m)
				}
			}
		})
	}
}

func TestSelectMood(t *testing.T) {
	h := newTestServer(t, ServerConfig{})

	rec := do(t, h, http.MethodPost, "/mood/sad", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, s := range []string{
		"You chose Sad mode!",
		mood.Sad.Message(),
		"https://open.spotify.com/playlist/6TyTwY1VKvWmCznL4hHa4R",
	} {
		if !strings.Contains(body, s) {
			t.Errorf("body missing %q", s)
		}
	}
	if strings.Contains(body, "<html") {
		t.Error("htmx request got a full page")
	}
}

func TestSelectMoodFullPageWithoutHTMX(t *testing.T) {
	rec := do(t, newTestServer(t, ServerConfig{}), http.MethodPost, "/mood/Neutral", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<html") || !strings.Contains(body, "You chose Neutral mode!") {
		t.Errorf("expected full page with result, got %s", body)
	}
}

func TestSelectUnknownMood(t *testing.T) {
	rec := do(t, newTestServer(t, ServerConfig{}), http.MethodPost, "/mood/angry", true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unknown mood") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDetectCamera(t *testing.T) {
	tests := []struct {
		name       string
		sampler    *fakeSampler
		wantStatus int
		want       []string
	}{
		{
			name:       "detected",
			sampler:    &fakeSampler{available: true, classifier: true, result: sampler.Result{Mood: mood.Surprise, Samples: 3}},
			wantStatus: http.StatusOK,
			want:       []string{"Detected Mood: Surprise", mood.Surprise.Message(), "4oV4bV24OtqZGB2ixowB26"},
		},
		{
			name:       "no faces",
			sampler:    &fakeSampler{available: true, classifier: true, result: sampler.Result{Mood: mood.Happy, Fallback: true}},
			wantStatus: http.StatusOK,
			want:       []string{"Detected Mood: Happy", "No face was detected"},
		},
		{
			name:       "random labels",
			sampler:    &fakeSampler{available: true, result: sampler.Result{Mood: mood.Sad}},
			wantStatus: http.StatusOK,
			want:       []string{"Detected Mood: Sad", "Emotion model not found"},
		},
		{
			name:       "camera unavailable",
			sampler:    &fakeSampler{result: sampler.Result{Mood: mood.Neutral, Fallback: true}},
			wantStatus: http.StatusOK,
			want:       []string{"Detected Mood: Neutral", "picked at random"},
		},
		{
			name:       "busy",
			sampler:    &fakeSampler{available: true, err: sampler.ErrBusy},
			wantStatus: http.StatusConflict,
			want:       []string{"already running"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, ServerConfig{Sampler: tt.sampler, SampleBudget: 3 * time.Second})
			rec := do(t, h, http.MethodPost, "/detect/camera", true)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			for _, s := range tt.want {
				if !strings.Contains(rec.Body.String(), s) {
					t.Errorf("body missing %q:\n%s", s, rec.Body.String())
				}
			}
			if got := time.Duration(tt.sampler.budget.Load()); got != 3*time.Second {
				t.Errorf("budget = %v, want 3s", got)
			}
		})
	}
}

func TestDetectCameraWithoutSampler(t *testing.T) {
	rec := do(t, newTestServer(t, ServerConfig{}), http.MethodPost, "/detect/camera", true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Camera detection is unavailable") {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestDetectVoice(t *testing.T) {
	tests := []struct {
		name string
		out  voice.Outcome
		want []string
	}{
		{
			name: "matched",
			out:  voice.Outcome{Mood: mood.Happy, Matched: true, Transcript: "I feel super happy today"},
			want: []string{"Detected Mood: Happy", "I feel super happy today", "4B5UJTEyEkofFmBWUXNhBW"},
		},
		{
			name: "not understood",
			out:  voice.Outcome{Message: voice.MsgNotUnderstood},
			want: []string{"couldn&#39;t understand"},
		},
		{
			name: "no mood word",
			out:  voice.Outcome{Transcript: "nothing detected", Message: voice.MsgNoMatch},
			want: []string{"no mood word", "nothing detected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, ServerConfig{Voice: &fakeVoice{available: true, outcome: tt.out}})
			rec := do(t, h, http.MethodPost, "/detect/voice", true)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			for _, s := range tt.want {
				if !strings.Contains(rec.Body.String(), s) {
					t.Errorf("body missing %q:\n%s", s, rec.Body.String())
				}
			}
		})
	}
}

func TestPlaylistMetadataRendered(t *testing.T) {
	dir := playlist.New()
	dir.Enrich(context.Background(), stubInfo{})

	rec := do(t, newTestServer(t, ServerConfig{Playlists: dir}), http.MethodPost, "/mood/happy", true)
	body := rec.Body.String()
	for _, s := range []string{"Happy Hits", "12.3K followers", "https://i.scdn.co/cover"} {
		if !strings.Contains(body, s) {
			t.Errorf("body missing %q:\n%s", s, body)
		}
	}
}

type stubInfo struct{}

func (stubInfo) PlaylistInfo(context.Context, string) (playlist.Info, error) {
	return playlist.Info{Name: "Happy Hits", ImageURL: "https://i.scdn.co/cover", Followers: 12345}, nil
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, ServerConfig{}), http.MethodGet, "/healthz", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestStaticAssets(t *testing.T) {
	h := newTestServer(t, ServerConfig{})
	for _, path := range []string{"/static/style.css", "/static/app.js"} {
		if rec := do(t, h, http.MethodGet, path, false); rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, rec.Code)
		}
	}
}

func TestPreviewRoute(t *testing.T) {
	var hits atomic.Int32
	preview := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTeapot)
	})

	rec := do(t, newTestServer(t, ServerConfig{Preview: preview}), http.MethodGet, "/preview", false)
	if rec.Code != http.StatusTeapot || hits.Load() != 1 {
		t.Errorf("preview handler not mounted: status %d hits %d", rec.Code, hits.Load())
	}
}

func TestFormatCount(t *testing.T) {
	format := defaultFuncs()["formatCount"].(func(int) string)
	tests := []struct {
		n    int
		want string
	}{
		{950, "950"},
		{12345, "12.3K"},
		{4_100_000, "4.1M"},
	}
	for _, tt := range tests {
		if got := format(tt.n); got != tt.want {
			t.Errorf("formatCount(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
