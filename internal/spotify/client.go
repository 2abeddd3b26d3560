// Package spotify provides a read-only wrapper around the Spotify Web API
// for playlist metadata.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-moodify/internal/playlist"
)

// Client wraps the Spotify API client and caches playlist lookups.
type Client struct {
	api *spotify.Client

	cache   map[string]playlist.Info
	cacheMu sync.RWMutex
}

// New creates a Client from an HTTP client that already authenticates its
// requests. Extra options are passed to the underlying API client.
func New(httpClient *http.Client, opts ...spotify.ClientOption) *Client {
	opts = append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...)
	return &Client{
		api:   spotify.New(httpClient, opts...),
		cache: make(map[string]playlist.Info),
	}
}

// PlaylistInfo returns the name, description, cover image and follower
// count of a playlist. Successful lookups are cached for the lifetime of
// the client.
func (c *Client) PlaylistInfo(ctx context.Context, id string) (playlist.Info, error) {
	c.cacheMu.RLock()
	info, ok := c.cache[id]
	c.cacheMu.RUnlock()
	if ok {
		return info, nil
	}

	pl, err := c.api.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return playlist.Info{}, fmt.Errorf("getting playlist %s: %w", id, err)
	}

	info = convertPlaylist(pl)

	c.cacheMu.Lock()
	c.cache[id] = info
	c.cacheMu.Unlock()

	return info, nil
}
