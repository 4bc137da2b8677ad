package storage

import (
	"context"
	"time"

	"gnodesk/internal/model"
)

// Snapshot is one decoded view of the exchange.
type Snapshot struct {
	Round   uint64                  `json:"round"`
	TakenAt time.Time               `json:"taken_at"`
	Pools   []model.PoolRecord      `json:"pools"`
	Tokens  []model.TokenDescriptor `json:"tokens"`
	Tickets []model.Ticket          `json:"tickets"`
	Skips   []model.DecodeSkip      `json:"skips,omitempty"`
}

// Storage persists snapshots and the submission journal.
type Storage interface {
	PutSnapshot(ctx context.Context, snap Snapshot) error
	RecordSubmission(ctx context.Context, sub model.Submission) error
}
