package sink

import (
	"context"

	"solana-price-tracker/internal/storage"
)

// ArchivePublisher stores every snapshot in a storage.SnapshotArchive.
type ArchivePublisher struct {
	archive storage.SnapshotArchive
}

// NewArchivePublisher creates an ArchivePublisher.
func NewArchivePublisher(archive storage.SnapshotArchive) *ArchivePublisher {
	return &ArchivePublisher{archive: archive}
}

func (p *ArchivePublisher) Name() string { return "archive" }

func (p *ArchivePublisher) Publish(ctx context.Context, msg Message) error {
	return p.archive.InsertSnapshot(ctx, msg.Snapshot)
}
