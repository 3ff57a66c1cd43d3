// Package voicevox provides a client for the speaker catalogue of a local
// VOICEVOX engine. It implements the tts.Catalogue interface.
//
// The engine publishes its voices at GET /speakers as a JSON array:
//
//	[ { "name": "四国めたん", "speaker_uuid": "7ffcb7ce-...",
//	    "styles": [ { "name": "ノーマル", "id": 2 }, ... ] }, ... ]
//
// Typical usage:
//
//	c, err := voicevox.New("http://localhost:50021",
//	    voicevox.WithTimeout(10*time.Second),
//	)
//	speakers, err := c.Speakers(ctx)
//
// Errors are classified with the sentinels [ErrUpstreamUnavailable],
// [ErrUpstreamError] and [ErrMalformedUpstreamResponse].
package voicevox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/vvpreset/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Catalogue = (*Client)(nil)

const (
	// DefaultBaseURL is the engine address used by the docker-compose setup
	// the presets are generated for.
	DefaultBaseURL = "http://voicevox:50021"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "vvpreset"
	speakersEndpoint = "/speakers"

	// maxErrorBody caps how much of a failed response body is kept in a
	// [StatusError].
	maxErrorBody = 512
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s. A zero
// duration disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to install an
// instrumented transport. The client's own Timeout is overridden by
// [WithTimeout] only when that option is given as well.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent to the engine.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Client queries a VOICEVOX engine. It is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a Client for the engine at baseURL (e.g., "http://localhost:50021").
// baseURL must be non-empty; a trailing slash is ignored.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("voicevox: baseURL must not be empty")
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: defaultUserAgent,
		timeout:   -1,
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.timeout >= 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// BaseURL returns the normalised engine address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ---- wire types ----

// speakerPayload mirrors one element of the /speakers response. Pointer
// fields distinguish absent (or null) keys from zero values.
type speakerPayload struct {
	Name        *string         `json:"name"`
	SpeakerUUID *string         `json:"speaker_uuid"`
	Styles      *[]stylePayload `json:"styles"`
}

type stylePayload struct {
	Name *string `json:"name"`
	ID   *int64  `json:"id"`
}

// ---- Speakers ----

// Speakers performs GET /speakers and returns the catalogue in engine order.
func (c *Client) Speakers(ctx context.Context) ([]tts.Speaker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+speakersEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("voicevox: create speakers request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voicevox: GET %s: %w: %w", speakersEndpoint, ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Endpoint:   speakersEndpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voicevox: read %s response: %w: %w", speakersEndpoint, ErrUpstreamUnavailable, err)
	}

	return decodeSpeakers(body)
}

// decodeSpeakers parses a /speakers body and checks that every required key
// is present.
func decodeSpeakers(body []byte) ([]tts.Speaker, error) {
	var raw []speakerPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("voicevox: decode speakers: %w: %w", ErrMalformedUpstreamResponse, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("voicevox: decode speakers: %w: body is null, want an array", ErrMalformedUpstreamResponse)
	}

	speakers := make([]tts.Speaker, 0, len(raw))
	for i, sp := range raw {
		switch {
		case sp.Name == nil:
			return nil, missingField(fmt.Sprintf("[%d].name", i))
		case sp.SpeakerUUID == nil:
			return nil, missingField(fmt.Sprintf("[%d].speaker_uuid", i))
		case sp.Styles == nil:
			return nil, missingField(fmt.Sprintf("[%d].styles", i))
		}

		styles := make([]tts.Style, 0, len(*sp.Styles))
		for j, st := range *sp.Styles {
			if st.Name == nil {
				return nil, missingField(fmt.Sprintf("[%d].styles[%d].name", i, j))
			}
			if st.ID == nil {
				return nil, missingField(fmt.Sprintf("[%d].styles[%d].id", i, j))
			}
			styles = append(styles, tts.Style{Name: *st.Name, ID: *st.ID})
		}

		speakers = append(speakers, tts.Speaker{
			Name:   *sp.Name,
			UUID:   *sp.SpeakerUUID,
			Styles: styles,
		})
	}
	return speakers, nil
}

func missingField(path string) error {
	return fmt.Errorf("voicevox: speakers%s: %w: required field missing", path, ErrMalformedUpstreamResponse)
}
