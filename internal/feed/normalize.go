package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-price-tracker/internal/domain"
)

// requeueSuffix marks identifiers re-pushed by upstream scrapers.
const requeueSuffix = "-latest"

var (
	ErrEmptyRecord = errors.New("empty feed record")
	ErrInvalidMint = errors.New("invalid solana mint")
)

type record struct {
	Mint       string `json:"mint"`
	Identifier string `json:"identifier"`
}

// ParseRecord extracts the token identifier from one feed message.
// Accepts {"mint": "..."}, {"identifier": "..."}, a JSON string or a bare line.
func ParseRecord(payload []byte) (domain.TokenID, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return "", ErrEmptyRecord
	}

	switch raw[0] {
	case '{':
		var r record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return "", fmt.Errorf("decode feed record: %w", err)
		}
		raw = r.Mint
		if raw == "" {
			raw = r.Identifier
		}
	case '"':
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return "", fmt.Errorf("decode feed string: %w", err)
		}
		raw = s
	}

	id := Normalize(raw)
	if id == "" {
		return "", ErrEmptyRecord
	}
	return id, nil
}

// Normalize trims whitespace and the requeue suffix.
func Normalize(raw string) domain.TokenID {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, requeueSuffix)
	return domain.TokenID(strings.TrimSpace(s))
}

// ValidateMint checks that id is a base58 encoded 32-byte ed25519 point,
// which holds for keypair-generated mint addresses.
func ValidateMint(id domain.TokenID) error {
	decoded, err := base58.Decode(string(id))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMint, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: decoded length %d", ErrInvalidMint, len(decoded))
	}
	if !isOnCurve(decoded) {
		return fmt.Errorf("%w: not an ed25519 point", ErrInvalidMint)
	}
	return nil
}

func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
