package jupiter

import (
	"encoding/json"
	"fmt"

	"solana-price-tracker/internal/domain"
)

// Outcome classifies a batch fetch.
type Outcome int

const (
	// Success means the response was parsed; Quotes may still be empty.
	Success Outcome = iota
	// SoftFailure means the call failed after retries; callers treat it as an empty result.
	SoftFailure
)

// String returns the string representation of Outcome.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SoftFailure:
		return "soft_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the typed result of one batch fetch.
type Result struct {
	Outcome Outcome
	Quotes  []domain.Quote
	Reason  error // set for SoftFailure
}

// Quote returns the quote for id, if present.
func (r Result) Quote(id domain.TokenID) (domain.Quote, bool) {
	for _, q := range r.Quotes {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Quote{}, false
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// priceEnvelope is the price API response body: {"data": {id: {...}}}.
type priceEnvelope struct {
	Data map[string]json.RawMessage `json:"data"`
}

// priceEntry is one token entry. Price is kept raw since the API sends it as a
// string and bad values must only drop their own token.
type priceEntry struct {
	Price  json.RawMessage `json:"price"`
	Symbol string          `json:"symbol"`
}
