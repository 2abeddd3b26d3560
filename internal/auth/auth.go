// Package auth provides app-only Spotify authentication using the OAuth2
// client-credentials flow.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrMissingCredentials is returned when the client ID or secret is empty.
var ErrMissingCredentials = errors.New("SPOTIFY_ID and SPOTIFY_SECRET must be set")

// Authenticator issues HTTP clients that carry a client-credentials token.
// Tokens are fetched lazily and refreshed by the oauth2 package.
type Authenticator struct {
	cfg clientcredentials.Config
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTokenURL overrides the Spotify accounts token endpoint.
func WithTokenURL(u string) Option {
	return func(a *Authenticator) {
		if u != "" {
			a.cfg.TokenURL = u
		}
	}
}

// New creates an Authenticator. Returns ErrMissingCredentials if either
// value is blank.
func New(clientID, clientSecret string, opts ...Option) (*Authenticator, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	a := &Authenticator{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Client returns an HTTP client that authenticates every request. ctx is
// used for token fetches, not for the requests themselves.
func (a *Authenticator) Client(ctx context.Context) *http.Client {
	return a.cfg.Client(ctx)
}

// Token fetches a token, which is useful for validating credentials at
// startup.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	return a.cfg.Token(ctx)
}
