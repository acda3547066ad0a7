// Package feed consumes newly discovered token identifiers and submits them for admission.
package feed

import (
	"context"

	"go.uber.org/zap"

	"solana-price-tracker/internal/domain"
	"solana-price-tracker/internal/observability"
)

// Submitter accepts candidate tokens.
type Submitter interface {
	Submit(id domain.TokenID) bool
}

// Source delivers feed messages until ctx ends.
type Source interface {
	Run(ctx context.Context) error
}

// Handler turns raw feed payloads into candidate submissions.
type Handler struct {
	submitter     Submitter
	validateMints bool
	logger        *zap.Logger
}

// NewHandler creates a Handler. With validateMints set, identifiers that are
// not valid Solana mint addresses are skipped.
func NewHandler(submitter Submitter, validateMints bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		submitter:     submitter,
		validateMints: validateMints,
		logger:        logger.Named("feed"),
	}
}

// Handle parses one payload and submits its identifier. Reports whether the
// candidate was newly queued.
func (h *Handler) Handle(payload []byte) bool {
	id, err := ParseRecord(payload)
	if err != nil {
		observability.RecordCandidate("invalid")
		h.logger.Debug("skip feed record", zap.ByteString("payload", payload), zap.Error(err))
		return false
	}

	if h.validateMints {
		if err := ValidateMint(id); err != nil {
			observability.RecordCandidate("invalid")
			h.logger.Warn("skip invalid mint", zap.String("token", id.String()), zap.Error(err))
			return false
		}
	}

	return h.submitter.Submit(id)
}
