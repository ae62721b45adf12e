// Package pokeapi provides the HTTP client that fetches creature records from
// the PokeAPI.
package pokeapi

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokecache_upstream_requests_total",
		Help: "Total PokeAPI requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokecache_upstream_request_duration_seconds",
		Help:    "PokeAPI request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokecache_upstream_errors_total",
		Help: "Total PokeAPI errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public PokeAPI creature endpoint.
	DefaultBaseURL = "https://pokeapi.co/api/v2/pokemon"

	// DefaultUserAgent identifies outbound requests.
	DefaultUserAgent = "pokecache/0.1.0"

	// maxBodyBytes bounds the size of a single creature document.
	maxBodyBytes = 16 << 20
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the endpoint creature names are appended to.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for one request including reading the body.
	Timeout time.Duration
}

// DefaultConfig returns the configuration for the public PokeAPI.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// Client fetches creature records. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// New creates a new PokeAPI client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  log.With().Str("component", "pokeapi").Logger(),
	}, nil
}

// FetchByName retrieves the record for name.
//
// A 200 answer returns the body verbatim. Any other status returns
// ErrNotFound. Transport failures and non-JSON bodies return *RequestError.
func (c *Client) FetchByName(ctx context.Context, name string) (json.RawMessage, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	endpoint := c.baseURL + "/" + url.PathEscape(normalized)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("name", normalized).
		Str("url", endpoint).
		Msg("Fetching creature")

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("name", normalized).Msg("Upstream request failed")
		return nil, &RequestError{
			Name:    normalized,
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode)
		upstreamErrorsTotal.WithLabelValues(string(class)).Inc()
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

		c.logger.Warn().
			Str("name", normalized).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Creature not available upstream")
		return nil, fmt.Errorf("%w: %s (status %d)", ErrNotFound, normalized, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &RequestError{
			Name:       normalized,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}

	if len(body) > maxBodyBytes || !json.Valid(body) {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassInvalidBody)).Inc()
		c.logger.Error().Str("name", normalized).Int("bytes", len(body)).Msg("Upstream returned invalid JSON")
		return nil, &RequestError{
			Name:       normalized,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassInvalidBody,
			Message:    "response body is not a JSON document",
		}
	}

	c.logger.Debug().
		Str("name", normalized).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("Fetched creature")

	return json.RawMessage(body), nil
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Class == ErrorClassNetwork
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
