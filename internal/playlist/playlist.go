// Package playlist maps moods to curated Spotify playlists and optionally
// decorates them with metadata fetched at startup.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/justestif/go-moodify/internal/mood"
)

// DefaultConcurrency is the number of metadata lookups run in parallel.
const DefaultConcurrency = 4

// ErrNotPlaylistURL is returned by PlaylistID for non-playlist links.
var ErrNotPlaylistURL = errors.New("not a Spotify playlist URL")

var defaultURLs = [...]string{
	mood.Happy:    "https://open.spotify.com/playlist/4B5UJTEyEkofFmBWUXNhBW",
	mood.Sad:      "https://open.spotify.com/playlist/6TyTwY1VKvWmCznL4hHa4R",
	mood.Neutral:  "https://open.spotify.com/playlist/7oleZnEAZBl9JZHQPIrCTt",
	mood.Surprise: "https://open.spotify.com/playlist/4oV4bV24OtqZGB2ixowB26",
}

// Info is optional playlist metadata.
type Info struct {
	Name        string
	Description string
	ImageURL    string
	Followers   int
}

// Entry is one mood's playlist.
type Entry struct {
	Mood mood.Mood
	URL  string
	ID   string
	Info *Info // nil when metadata was not fetched
}

// InfoFetcher looks up playlist metadata by Spotify ID.
type InfoFetcher interface {
	PlaylistInfo(ctx context.Context, id string) (Info, error)
}

// Directory holds one playlist per mood. It is safe for concurrent reads;
// Enrich is expected to run once before the directory is shared.
type Directory struct {
	entries []Entry
	logger  *slog.Logger
	workers int
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger used for enrichment failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithConcurrency sets the number of concurrent metadata lookups.
func WithConcurrency(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.workers = n
		}
	}
}

// New returns the built-in directory.
func New(opts ...Option) *Directory {
	d := &Directory{
		logger:  slog.Default(),
		workers: DefaultConcurrency,
	}
	for _, m := range mood.Moods() {
		u := defaultURLs[m]
		id, _ := PlaylistID(u)
		d.entries = append(d.entries, Entry{Mood: m, URL: u, ID: id})
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// URL returns the playlist link for m, or "" for an invalid mood.
func (d *Directory) URL(m mood.Mood) string {
	e, ok := d.Entry(m)
	if !ok {
		return ""
	}
	return e.URL
}

// Entry returns the playlist for m.
func (d *Directory) Entry(m mood.Mood) (Entry, bool) {
	for _, e := range d.entries {
		if e.Mood == m {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns all playlists in mood declaration order.
func (d *Directory) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// PlaylistID extracts the playlist ID from an open.spotify.com link.
func PlaylistID(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", link, err)
	}
	if u.Host != "open.spotify.com" {
		return "", fmt.Errorf("%q: %w", link, ErrNotPlaylistURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// Localised links look like /intl-de/playlist/<id>.
	if len(parts) == 3 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) != 2 || parts[0] != "playlist" || parts[1] == "" {
		return "", fmt.Errorf("%q: %w", link, ErrNotPlaylistURL)
	}
	return parts[1], nil
}

// Enrich fetches metadata for every entry through a worker pool. Failed
// lookups are logged and leave the entry as a plain link. It returns the
// number of entries that were enriched.
func (d *Directory) Enrich(ctx context.Context, fetcher InfoFetcher) int {
	if fetcher == nil {
		return 0
	}

	type result struct {
		info *Info
	}
	results := make([]result, len(d.entries))

	workCh := make(chan int, len(d.entries))
	for i := range d.entries {
		workCh <- i
	}
	close(workCh)

	var wg sync.WaitGroup
	for range d.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if ctx.Err() != nil {
					continue
				}
				e := d.entries[i]
				info, err := fetcher.PlaylistInfo(ctx, e.ID)
				if err != nil {
					d.logger.Warn("fetching playlist metadata", "mood", e.Mood.String(), "playlist", e.ID, "error", err)
					continue
				}
				results[i] = result{info: &info}
			}
		}()
	}
	wg.Wait()

	enriched := 0
	for i, r := range results {
		if r.info != nil {
			d.entries[i].Info = r.info
			enriched++
		}
	}
	return enriched
}
