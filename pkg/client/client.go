// Package client fetches character pages from the Rick and Morty REST API.
//
// Every fetch is a single best-effort request: no retries, no rate limiting
// and, unless Config.Timeout is set, no client-side timeout. Failures come
// back as *APIError and can be matched with errors.Is against ErrNetwork,
// ErrParse and ErrStatus.
package client

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
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/Sternrassler/rnm-query/pkg/cache"
	"github.com/Sternrassler/rnm-query/pkg/character"
)

// Prometheus metrics for API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rnm_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rnm_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rnm_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public API host.
	DefaultBaseURL = "https://rickandmortyapi.com"

	// CharacterEndpoint lists characters, one page per request.
	CharacterEndpoint = "/api/character"
)

// Client talks to the character API.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is scheme and host of the API, e.g. "https://rickandmortyapi.com".
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Redis enables response revalidation when set. Optional.
	Redis *redis.Client

	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
}

// DefaultConfig returns a configuration for the public API without caching.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
	}
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) url (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	logger := log.With().Str("component", "rnm-client").Logger()

	var manager *cache.Manager
	if cfg.Redis != nil {
		manager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:   manager,
		baseURL: base,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Do sends req once. Non-2xx statuses are returned as responses, not errors;
// only transport failures produce an error.
//
// With a cache configured, a stored entry for the same URL turns the request
// into a conditional one and a 304 reply is answered from the stored body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	label := endpointLabel(endpoint)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(label).Observe(time.Since(startTime).Seconds())
	}()

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With().
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Logger()

	var key cache.Key
	var cached *cache.Entry
	if c.cache != nil {
		key = cache.KeyFromURL(req.URL)

		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn().Err(err).Msg("Cache get error")
		}

		if cache.CanRevalidate(cached) {
			cache.SetConditionalHeaders(req, cached)
			logger.Debug().Str("etag", cached.ETag).Msg("Making conditional request")
		}
	}

	logger.Debug().Str("method", req.Method).Str("query", req.URL.RawQuery).Msg("Executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(label, "network_error").Inc()
		logger.Error().Err(err).Msg("HTTP request failed")
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpoint,
			Message:    "request failed",
			Err:        err,
		}
	}

	requestsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.Revalidations.WithLabelValues("not_modified").Inc()
		logger.Debug().Msg("304 Not Modified - using cache")

		if expires := resp.Header.Get("Expires"); expires != "" {
			if t, err := http.ParseTime(expires); err == nil {
				if err := c.cache.Touch(ctx, key, t); err != nil {
					logger.Warn().Err(err).Msg("Failed to extend cache entry")
				}
			}
		}

		resp.Body.Close()
		return cached.ToResponse(req), nil
	}

	if cache.CanRevalidate(cached) {
		cache.Revalidations.WithLabelValues("modified").Inc()
	}

	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("API request error")
		return resp, nil
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.FromResponse(resp)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return nil, &APIError{
				ErrorClass: ErrorClassNetwork,
				Endpoint:   endpoint,
				StatusCode: resp.StatusCode,
				Message:    "read body",
				Err:        err,
			}
		}

		if err := c.cache.Set(ctx, key, entry); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			logger.Debug().Dur("ttl", entry.TTL()).Msg("Cached response")
		}
	}

	return resp, nil
}

// Get sends a GET for endpoint with the given query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := c.baseURL.JoinPath(endpoint)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// FetchPage fetches one page of characters. Page tokens start at 1.
func (c *Client) FetchPage(ctx context.Context, page int) ([]character.Character, error) {
	body, err := c.fetch(ctx, CharacterEndpoint, pageQuery(page))
	if err != nil {
		return nil, err
	}

	decoded, err := character.DecodePage(body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassParse,
			Endpoint:   CharacterEndpoint,
			Message:    fmt.Sprintf("page %d", page),
			Err:        err,
		}
	}

	c.logger.Debug().
		Int("page", page).
		Int("records", len(decoded.Results)).
		Msg("Fetched page")

	return decoded.Results, nil
}

// FetchPageRaw returns the undecoded body of one page together with the
// total page count announced in info.pages.
func (c *Client) FetchPageRaw(ctx context.Context, endpoint string, page int) ([]byte, int, error) {
	body, err := c.fetch(ctx, endpoint, pageQuery(page))
	if err != nil {
		return nil, 0, err
	}

	pages := gjson.GetBytes(body, "info.pages")
	if !gjson.ValidBytes(body) || !pages.Exists() {
		errorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, 0, &APIError{
			ErrorClass: ErrorClassParse,
			Endpoint:   endpoint,
			Message:    fmt.Sprintf("page %d: missing info.pages", page),
		}
	}

	return body, int(pages.Int()), nil
}

// GetCharacter fetches a single character by id.
func (c *Client) GetCharacter(ctx context.Context, id int) (character.Character, error) {
	endpoint := CharacterEndpoint + "/" + strconv.Itoa(id)

	body, err := c.fetch(ctx, endpoint, nil)
	if err != nil {
		return character.Character{}, err
	}

	ch, err := character.Decode(body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return character.Character{}, &APIError{
			ErrorClass: ErrorClassParse,
			Endpoint:   endpoint,
			Message:    "character",
			Err:        err,
		}
	}

	return ch, nil
}

// fetch GETs endpoint and returns the body of a 2xx response.
func (c *Client) fetch(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    "read body",
			Err:        err,
		}
	}

	if class := classifyStatus(resp.StatusCode); class != "" {
		msg := resp.Status
		var apiErr character.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, &APIError{
			ErrorClass: class,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	return body, nil
}

// Close releases idle connections. The Redis client is owned by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the response cache, or nil when none is configured.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

func pageQuery(page int) url.Values {
	return url.Values{"page": []string{strconv.Itoa(page)}}
}

// endpointLabel collapses per-id paths so metric cardinality stays bounded.
func endpointLabel(path string) string {
	if strings.HasPrefix(path, CharacterEndpoint+"/") {
		return CharacterEndpoint + "/{id}"
	}
	return path
}
