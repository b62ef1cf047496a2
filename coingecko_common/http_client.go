package coingecko_common

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/metrics"
)

// IHttpStatusHandler receives the outcome of every upstream request
type IHttpStatusHandler interface {
	OnRequest(status string, duration time.Duration)
}

// Options configures the upstream HTTP client
type Options struct {
	ConnectionTimeout time.Duration // Timeout for establishing connection
	RequestTimeout    time.Duration // Total request timeout including reading response
	LockDuration      time.Duration // How long a 429 keeps the circuit open
}

// DefaultOptions returns default client options
func DefaultOptions() Options {
	return Options{
		ConnectionTimeout: 10 * time.Second,
		RequestTimeout:    10 * time.Second,
		LockDuration:      DefaultLockDuration,
	}
}

// Payload is a successful upstream response body
type Payload struct {
	ContentType string
	Body        []byte
}

// IsJSON reports whether the response declared a JSON body
func (p Payload) IsJSON() bool {
	return strings.Contains(p.ContentType, "application/json")
}

// Text returns the body as a string
func (p Payload) Text() string {
	return string(p.Body)
}

// Decode unmarshals a JSON payload into out. A text payload or malformed
// JSON yields a parse error.
func (p Payload) Decode(out any) error {
	if !p.IsJSON() {
		return newParseError("expected JSON response, got "+p.ContentType, nil)
	}
	if err := json.Unmarshal(p.Body, out); err != nil {
		return newParseError("failed to parse response", err)
	}
	return nil
}

// HTTPClient is the single path through which upstream requests are sent.
// It enforces the circuit breaker, counts calls and classifies failures.
type HTTPClient struct {
	Client  *http.Client
	Opts    Options
	Breaker *CircuitBreaker
	Tracker *CallTracker
	logger  *zap.Logger
}

// NewHTTPClient creates the upstream client
func NewHTTPClient(opts Options, breaker *CircuitBreaker, tracker *CallTracker, logger *zap.Logger) *HTTPClient {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: opts.ConnectionTimeout,
			}).DialContext,
		},
	}

	return &HTTPClient{
		Client:  client,
		Opts:    opts,
		Breaker: breaker,
		Tracker: tracker,
		logger:  logger.With(zap.String("component", "http_client")),
	}
}

// Execute sends the request built by rb. handler may be nil.
func (c *HTTPClient) Execute(ctx context.Context, rb *CoingeckoRequestBuilder, handler IHttpStatusHandler) (Payload, error) {
	if handler == nil {
		handler = nopStatusHandler{}
	}

	if c.Breaker != nil && c.Breaker.IsOpen(ctx) {
		metrics.RecordCircuitBreakerRejection()
		handler.OnRequest(metrics.StatusLocked, 0)
		return Payload{}, &APIError{
			Kind:    KindAPILocked,
			Message: "API is temporarily locked due to rate limiting",
		}
	}

	if c.Tracker != nil {
		c.Tracker.RecordCall(ctx)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.Opts.RequestTimeout)
	defer cancel()

	req, err := rb.Build(reqCtx)
	if err != nil {
		handler.OnRequest(metrics.StatusError, 0)
		return Payload{}, &APIError{Kind: KindNetwork, Message: "failed to build request", Err: err}
	}

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		apiErr := c.transportError(ctx, reqCtx, err)
		handler.OnRequest(statusFor(apiErr), time.Since(start))
		c.logger.Warn("upstream request failed",
			zap.String("path", req.URL.Path),
			zap.String("kind", string(apiErr.Kind)),
			zap.Error(err))
		return Payload{}, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		apiErr := c.transportError(ctx, reqCtx, err)
		handler.OnRequest(statusFor(apiErr), duration)
		return Payload{}, apiErr
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		handler.OnRequest(metrics.StatusRateLimited, duration)
		if c.Breaker != nil {
			lockDuration := c.Opts.LockDuration
			if lockDuration <= 0 {
				lockDuration = DefaultLockDuration
			}
			// a failed write is logged by the breaker; the caller still sees the 429
			_ = c.Breaker.Trip(ctx, lockDuration)
		}
		return Payload{}, &APIError{
			Kind:    KindRateLimit,
			Status:  resp.StatusCode,
			Body:    string(body),
			Message: "rate limit exceeded",
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		handler.OnRequest(metrics.StatusError, duration)
		c.logger.Warn("upstream returned error status",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 200)))
		return Payload{}, &APIError{
			Kind:    KindHTTP,
			Status:  resp.StatusCode,
			Body:    string(body),
			Message: "API request failed",
		}
	}

	handler.OnRequest(metrics.StatusSuccess, duration)
	return Payload{ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

// transportError classifies a failure that produced no usable response.
// Only a deadline counts as a timeout; a cancelled caller is a network failure.
func (c *HTTPClient) transportError(parent, reqCtx context.Context, err error) *APIError {
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && !errors.Is(parent.Err(), context.Canceled) {
		return &APIError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &APIError{Kind: KindNetwork, Message: "network request failed", Err: err}
}

func statusFor(err *APIError) string {
	if err.Kind == KindTimeout {
		return metrics.StatusTimeout
	}
	return metrics.StatusError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type nopStatusHandler struct{}

func (nopStatusHandler) OnRequest(string, time.Duration) {}
