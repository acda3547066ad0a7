package jupiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/ratelimit"
)

func newTestClient(url string, opts ...ClientOption) *Client {
	base := []ClientOption{WithBackoff(5*time.Millisecond, 20*time.Millisecond)}
	return NewClient(url, append(base, opts...)...)
}

func sortedIDs(quotes []domain.Quote) []string {
	ids := make([]string, len(quotes))
	for i, q := range quotes {
		ids[i] = string(q.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestFetchPrices_Success(t *testing.T) {
	var gotQuery, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("ids")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": {
				"MintA": {"id": "MintA", "type": "derivedPrice", "price": "1.2345"},
				"MintB": {"id": "MintB", "price": "0.00000123", "symbol": "BONK"}
			},
			"timeTaken": 0.0031
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	res := client.FetchPrices(context.Background(), []domain.TokenID{"MintA", "MintB"})

	require.Equal(t, Success, res.Outcome)
	assert.Equal(t, "MintA,MintB", gotQuery)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, []string{"MintA", "MintB"}, sortedIDs(res.Quotes))

	a, ok := res.Quote("MintA")
	require.True(t, ok)
	assert.InDelta(t, 1.2345, a.Price, 1e-12)
	assert.Equal(t, "Mint...", a.Symbol)

	b, ok := res.Quote("MintB")
	require.True(t, ok)
	assert.Equal(t, "BONK", b.Symbol)
}

func TestFetchPrices_SkipsBadEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {
			"Good": {"price": "2.5"},
			"Zero": {"price": "0"},
			"Negative": {"price": "-1"},
			"Garbage": {"price": "abc"},
			"Missing": {"symbol": "X"},
			"Null": null,
			"Numeric": {"price": 3.75},
			"NotObject": 42
		}}`))
	}))
	defer server.Close()

	res := newTestClient(server.URL).FetchPrices(context.Background(), []domain.TokenID{"Good"})

	require.Equal(t, Success, res.Outcome)
	assert.Equal(t, []string{"Good", "Numeric"}, sortedIDs(res.Quotes))
}

func TestFetchPrices_BareMap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"MintA": {"price": "4.2"}}`))
	}))
	defer server.Close()

	res := newTestClient(server.URL).FetchPrices(context.Background(), []domain.TokenID{"MintA"})

	require.Equal(t, Success, res.Outcome)
	q, ok := res.Quote("MintA")
	require.True(t, ok)
	assert.InDelta(t, 4.2, q.Price, 1e-12)
}

func TestFetchPrices_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data": {"MintA": {"price": "1"}}}`))
	}))
	defer server.Close()

	res := newTestClient(server.URL).FetchPrices(context.Background(), []domain.TokenID{"MintA"})

	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchPrices_RateLimitedTwiceIsSoftFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	res := newTestClient(server.URL).FetchPrices(context.Background(), []domain.TokenID{"MintA"})

	assert.Equal(t, SoftFailure, res.Outcome)
	assert.Empty(t, res.Quotes)
	var statusErr *StatusError
	require.ErrorAs(t, res.Reason, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Equal(t, int32(DefaultMaxAttempts), calls.Load(), "exactly two attempts")
}

func TestFetchPrices_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	res := newTestClient(server.URL).FetchPrices(context.Background(), []domain.TokenID{"MintA"})

	assert.Equal(t, SoftFailure, res.Outcome)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchPrices_MalformedBody(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	res := newTestClient(server.URL).FetchPrices(context.Background(), []domain.TokenID{"MintA"})

	assert.Equal(t, SoftFailure, res.Outcome)
	assert.ErrorIs(t, res.Reason, errMalformedBody)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchPrices_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithTimeout(20*time.Millisecond))
	res := client.FetchPrices(context.Background(), []domain.TokenID{"MintA"})

	assert.Equal(t, SoftFailure, res.Outcome)
}

func TestFetchPrices_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestClient(server.URL).FetchPrices(ctx, []domain.TokenID{"MintA"})
	assert.Equal(t, SoftFailure, res.Outcome)
}

func TestFetchPrices_UsesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}}`))
	}))
	defer server.Close()

	interval := 20 * time.Millisecond
	client := newTestClient(server.URL, WithLimiter(ratelimit.NewIntervalLimiter(interval)))

	start := time.Now()
	for i := 0; i < 4; i++ {
		client.FetchPrices(context.Background(), []domain.TokenID{"MintA"})
	}
	assert.GreaterOrEqual(t, time.Since(start), 3*interval)
}

func TestFetchPrices_EmptyIDs(t *testing.T) {
	res := NewClient("http://127.0.0.1:1").FetchPrices(context.Background(), nil)
	assert.Equal(t, Success, res.Outcome)
	assert.Empty(t, res.Quotes)
}

func TestRequestURL(t *testing.T) {
	c := NewClient("https://example.com/price/v2")
	u := c.requestURL([]domain.TokenID{"A", "B", "C"})
	assert.True(t, strings.HasPrefix(u, "https://example.com/price/v2?ids="))
	assert.Contains(t, u, "A%2CB%2CC")

	c = NewClient("https://example.com/price?vsToken=USDC")
	assert.Contains(t, c.requestURL([]domain.TokenID{"A"}), "?vsToken=USDC&ids=A")
}

func TestLinearBackOff(t *testing.T) {
	b := newLinearBackOff(500*time.Millisecond, 2*time.Second)

	got := []time.Duration{b.NextBackOff(), b.NextBackOff(), b.NextBackOff(), b.NextBackOff(), b.NextBackOff()}
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond, time.Second, 1500 * time.Millisecond, 2 * time.Second, 2 * time.Second,
	}, got)

	b.Reset()
	assert.Equal(t, 500*time.Millisecond, b.NextBackOff())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "soft_failure", SoftFailure.String())
}
