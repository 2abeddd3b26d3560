package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-moodify/internal/playlist"
)

func TestConvertPlaylist(t *testing.T) {
	tests := []struct {
		name     string
		pl       spotify.FullPlaylist
		expected playlist.Info
	}{
		{
			name: "full metadata",
			pl: spotify.FullPlaylist{
				SimplePlaylist: spotify.SimplePlaylist{
					Name:        "Happy Hits!",
					Description: "Hits to boost your mood &amp; fill you with happiness!",
					Images:      []spotify.Image{{URL: "https://i.scdn.co/large"}, {URL: "https://i.scdn.co/small"}},
				},
				Followers: spotify.Followers{Count: 4321},
			},
			expected: playlist.Info{
				Name:        "Happy Hits!",
				Description: "Hits to boost your mood & fill you with happiness!",
				ImageURL:    "https://i.scdn.co/large",
				Followers:   4321,
			},
		},
		{
			name: "no images",
			pl: spotify.FullPlaylist{
				SimplePlaylist: spotify.SimplePlaylist{Name: "Calm"},
			},
			expected: playlist.Info{Name: "Calm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := convertPlaylist(&tt.pl); got != tt.expected {
				t.Errorf("convertPlaylist() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestPlaylistInfoCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/playlists/abc123") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "abc123",
			"name": "Life Sucks",
			"description": "Sad songs",
			"images": [{"url": "https://i.scdn.co/cover"}],
			"followers": {"total": 99}
		}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), spotify.WithBaseURL(srv.URL+"/"))

	for range 3 {
		info, err := c.PlaylistInfo(context.Background(), "abc123")
		if err != nil {
			t.Fatalf("PlaylistInfo() error = %v", err)
		}
		want := playlist.Info{Name: "Life Sucks", Description: "Sad songs", ImageURL: "https://i.scdn.co/cover", Followers: 99}
		if info != want {
			t.Errorf("PlaylistInfo() = %+v, want %+v", info, want)
		}
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("API called %d times, want 1", n)
	}
}

func TestPlaylistInfoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Not found."}}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), spotify.WithBaseURL(srv.URL+"/"), spotify.WithRetry(false))
	if _, err := c.PlaylistInfo(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing playlist")
	}
}
