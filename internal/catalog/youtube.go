package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tunedeck/tunedeck/internal/playback"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
	maxResults     = 15
	cacheSize      = 256
	cacheTTL       = 10 * time.Minute
)

// UpstreamError is a non-2xx reply from the YouTube Data API.
type UpstreamError struct {
	Status int
	Body   json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("youtube API returned status %d", e.Status)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *expirable.LRU[string, []playback.Track]
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: expirable.NewLRU[string, []playback.Track](cacheSize, nil, cacheTTL),
	}
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			Medium struct {
				URL string `json:"url"`
			} `json:"medium"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

// Search returns up to 15 videos matching query. A request that got no
// response at all is retried once; upstream HTTP errors are returned as
// *UpstreamError.
func (c *Client) Search(ctx context.Context, query string) ([]playback.Track, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if tracks, ok := c.cache.Get(key); ok {
		return slices.Clone(tracks), nil
	}

	body, err := c.fetch(ctx, query)
	if err != nil && isTransient(ctx, err) {
		slog.Warn("catalog: search failed, retrying once", "query", query, "error", err)
		body, err = c.fetch(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	tracks := make([]playback.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		tracks = append(tracks, playback.Track{
			ExternalID:   item.ID.VideoID,
			Title:        item.Snippet.Title,
			Author:       item.Snippet.ChannelTitle,
			ThumbnailURL: item.Snippet.Thumbnails.Medium.URL,
		})
	}
	c.cache.Add(key, tracks)
	return slices.Clone(tracks), nil
}

// transportError marks failures where no HTTP response arrived.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var te *transportError
	return errors.As(err, &te)
}

func (c *Client) fetch(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprint(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", &transportError{err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", &transportError{err: err})
	}

	if resp.StatusCode != http.StatusOK {
		upstream := &UpstreamError{Status: resp.StatusCode}
		if json.Valid(body) {
			upstream.Body = body
		}
		return nil, upstream
	}
	return body, nil
}
