package domain

import "time"

// TokenID is the opaque identifier of a tracked token (a Solana mint address).
type TokenID string

// String returns the string representation of TokenID.
func (id TokenID) String() string {
	return string(id)
}

// Short returns the first 8 characters of the identifier, used as a display label.
func (id TokenID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// PricePoint is a single observed price of a token.
// Points of one token are appended in non-decreasing Time order.
type PricePoint struct {
	Time  time.Time // observation time (local clock at fetch)
	Price float64   // strictly positive
}

// Quote is one token entry parsed from a price API response.
type Quote struct {
	ID        TokenID
	Price     float64
	Symbol    string
	FetchedAt time.Time
}
