package spotify

import (
	"html"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-moodify/internal/playlist"
)

// convertPlaylist keeps the fields shown next to a playlist link.
// Spotify returns descriptions HTML-escaped.
func convertPlaylist(pl *spotify.FullPlaylist) playlist.Info {
	info := playlist.Info{
		Name:        pl.Name,
		Description: html.UnescapeString(pl.Description),
		Followers:   int(pl.Followers.Count),
	}
	if len(pl.Images) > 0 {
		info.ImageURL = pl.Images[0].URL
	}
	return info
}
