// Package jupiter is a client for the batched token price API.
package jupiter

import (
	"bytes"
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

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://lite-api.jup.ag/price/v2"
	DefaultTimeout     = 10 * time.Second
	DefaultUserAgent   = "JupiterPriceTracker/4.0"
	DefaultMaxAttempts = 2
	DefaultBackoffStep = 500 * time.Millisecond
	DefaultBackoffCap  = 2 * time.Second

	maxErrorBody = 512
)

// Limiter gates outbound calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Client fetches prices for batches of token ids.
type Client struct {
	baseURL     string
	client      *http.Client
	userAgent   string
	maxAttempts int
	backoffStep time.Duration
	backoffCap  time.Duration
	limiter     Limiter
	logger      *zap.Logger
	clock       func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithProxy routes requests through proxy (http, https or socks5 scheme).
func WithProxy(proxy *url.URL) ClientOption {
	return func(c *Client) {
		if proxy == nil {
			return
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = http.ProxyURL(proxy)
		c.client.Transport = transport
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxAttempts sets total attempts per batch, including the first.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithBackoff sets the linear backoff step and cap between attempts.
func WithBackoff(step, max time.Duration) ClientOption {
	return func(c *Client) {
		c.backoffStep = step
		c.backoffCap = max
	}
}

// WithLimiter sets the process-wide call limiter.
func WithLimiter(l Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock sets the time source used to stamp quotes.
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// NewClient creates a price API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		maxAttempts: DefaultMaxAttempts,
		backoffStep: DefaultBackoffStep,
		backoffCap:  DefaultBackoffCap,
		logger:      zap.NewNop(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	c.logger = c.logger.Named("jupiter")
	return c
}

// FetchPrices fetches prices for ids with bounded retry.
// It never returns an error: failures come back as a SoftFailure result.
func (c *Client) FetchPrices(ctx context.Context, ids []domain.TokenID) Result {
	if len(ids) == 0 {
		return Result{Outcome: Success}
	}

	var quotes []domain.Quote
	operation := func() error {
		q, err := c.fetchOnce(ctx, ids)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		quotes = q
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newLinearBackOff(c.backoffStep, c.backoffCap), uint64(c.maxAttempts-1)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Debug("batch fetch failed", zap.Int("ids", len(ids)), zap.Error(err))
		observability.RecordBatchResult(SoftFailure.String())
		return Result{Outcome: SoftFailure, Reason: err}
	}

	observability.RecordBatchResult(Success.String())
	return Result{Outcome: Success, Quotes: quotes}
}

// fetchOnce performs a single rate-limited GET.
func (c *Client) fetchOnce(ctx context.Context, ids []domain.TokenID) ([]domain.Quote, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(ids), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		observability.RecordAPICall("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	observability.RecordAPICall(strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	return parseQuotes(body, c.clock())
}

func (c *Client) requestURL(ids []domain.TokenID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	q := url.Values{}
	q.Set("ids", strings.Join(parts, ","))

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + q.Encode()
}

// retryable reports whether err is worth another attempt: transport errors, 429 and 5xx.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, errMalformedBody) {
		return false
	}
	return true
}

var errMalformedBody = errors.New("malformed price response")

// parseQuotes decodes a response body. It accepts the {"data": {...}} envelope
// and falls back to a bare id-keyed map. Entries with missing, unparsable or
// non-positive prices are skipped.
func parseQuotes(body []byte, fetchedAt time.Time) ([]domain.Quote, error) {
	var env priceEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	entries := env.Data
	if entries == nil {
		var bare map[string]json.RawMessage
		if err := json.Unmarshal(body, &bare); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		entries = bare
	}

	quotes := make([]domain.Quote, 0, len(entries))
	for id, raw := range entries {
		if id == "" || isNull(raw) {
			continue
		}
		var entry priceEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		price, ok := parsePrice(entry.Price)
		if !ok {
			continue
		}
		symbol := entry.Symbol
		if symbol == "" {
			symbol = defaultSymbol(id)
		}
		quotes = append(quotes, domain.Quote{
			ID:        domain.TokenID(id),
			Price:     price,
			Symbol:    symbol,
			FetchedAt: fetchedAt,
		})
	}
	return quotes, nil
}

// parsePrice accepts a JSON string or number and requires a positive value.
func parsePrice(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
	}

	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	f, _ := d.Float64()
	if f <= 0 {
		return 0, false
	}
	return f, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func defaultSymbol(id string) string {
	if len(id) > 4 {
		return id[:4] + "..."
	}
	return id + "..."
}
