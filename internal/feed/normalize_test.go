package feed

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-price-tracker/internal/domain"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    domain.TokenID
	}{
		{"mint object", `{"mint": "MintA"}`, "MintA"},
		{"identifier object", `{"identifier": " MintB "}`, "MintB"},
		{"mint wins", `{"mint": "MintA", "identifier": "MintB"}`, "MintA"},
		{"json string", `"MintC"`, "MintC"},
		{"bare line", "  MintD\n", "MintD"},
		{"requeue suffix", `{"mint": "MintE-latest"}`, "MintE"},
		{"bare requeue suffix", "MintF-latest", "MintF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRecord_Errors(t *testing.T) {
	for _, payload := range []string{"", "   ", `{}`, `{"mint": ""}`, `""`, "-latest"} {
		_, err := ParseRecord([]byte(payload))
		assert.ErrorIs(t, err, ErrEmptyRecord, "payload %q", payload)
	}

	_, err := ParseRecord([]byte(`{"mint": `))
	assert.Error(t, err)
}

func TestValidateMint_KeypairAddress(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	assert.NoError(t, ValidateMint(domain.TokenID(base58.Encode(pub))))
}

func TestValidateMint_Rejects(t *testing.T) {
	assert.ErrorIs(t, ValidateMint("not-base58-0OIl"), ErrInvalidMint)
	assert.ErrorIs(t, ValidateMint("abc"), ErrInvalidMint)
	assert.ErrorIs(t, ValidateMint(domain.TokenID(base58.Encode(make([]byte, 33)))), ErrInvalidMint)
}

func TestValidateMint_OffCurve(t *testing.T) {
	// roughly half of all 32-byte strings are not curve points
	var buf [8]byte
	for i := uint64(0); i < 64; i++ {
		binary.LittleEndian.PutUint64(buf[:], i)
		h := sha256.Sum256(buf[:])
		if !isOnCurve(h[:]) {
			assert.ErrorIs(t, ValidateMint(domain.TokenID(base58.Encode(h[:]))), ErrInvalidMint)
			return
		}
	}
	t.Fatal("no off-curve candidate found")
}
