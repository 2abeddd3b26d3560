// Package deepgram transcribes streamed PCM audio with Deepgram's live
// listen websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
)

const (
	defaultBaseURL = "https://api.deepgram.com/v1"
	defaultModel   = "nova-2"
	chunkSize      = 3200 // 100ms of 16kHz mono s16le
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("DEEPGRAM_API_KEY is not configured")

// Config controls the websocket session.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	SampleRate  int
	Channels    int
}

// Client opens one streaming session per Transcribe call.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
}

// New creates a Client, applying the default endpoint, model and audio format.
func New(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Client{cfg: cfg, dialer: websocket.DefaultDialer}
}

// Transcribe streams audio until it ends, then asks Deepgram to flush and
// returns the final transcript segments joined by spaces. Any read error
// from audio, including a closed pipe, ends the stream.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", ErrMissingAPIKey
	}

	listenURL, err := buildListenURL(c.cfg)
	if err != nil {
		return "", err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+c.cfg.APIKey)

	conn, _, err := c.dialer.DialContext(ctx, listenURL, headers)
	if err != nil {
		return "", fmt.Errorf("connecting to Deepgram websocket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- sendAudio(conn, audio)
	}()

	finals, err := readTranscripts(conn)
	if ctx.Err() != nil {
		return "", fmt.Errorf("transcription interrupted: %w", ctx.Err())
	}
	if err != nil {
		return "", err
	}
	if err := <-writeErr; err != nil {
		return "", err
	}
	return strings.Join(finals, " "), nil
}

// sendAudio copies audio to the socket as binary frames and ends the stream
// with a CloseStream message.
func sendAudio(conn *websocket.Conn, audio io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return fmt.Errorf("sending audio: %w", werr)
			}
		}
		if err != nil {
			break
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}

func readTranscripts(conn *websocket.Conn) ([]string, error) {
	var finals []string
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				return finals, nil
			}
			return finals, fmt.Errorf("reading Deepgram event: %w", err)
		}

		var resp response
		if err := json.Unmarshal(payload, &resp); err != nil {
			continue
		}

		if strings.EqualFold(resp.Type, "Error") {
			msg := strings.TrimSpace(resp.Message)
			if msg == "" {
				msg = "deepgram returned an unknown error"
			}
			return finals, errors.New(msg)
		}

		if !resp.IsFinal && !resp.SpeechFinal {
			continue
		}
		if text := resp.transcript(); text != "" {
			finals = append(finals, text)
		}
	}
}

type alternative struct {
	Transcript string `json:"transcript"`
}

type response struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`
}

func (r response) transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	q := u.Query()
	q.Set("model", cfg.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	q.Set("channels", strconv.Itoa(cfg.Channels))
	q.Set("interim_results", "false")
	q.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
