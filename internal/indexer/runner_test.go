package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"gnodesk/internal/market"
	"gnodesk/internal/model"
	"gnodesk/internal/storage"
)

type fakeSource struct {
	ticketErr error
	skips     *SkipBuffer
}

func (f *fakeSource) Pools(context.Context) ([]model.PoolRecord, error) {
	return []model.PoolRecord{{Key: "a.tok:b.tok", ReserveA: 1, ReserveB: 2, TotalSupplyLP: 1}}, nil
}

func (f *fakeSource) Tokens(context.Context) ([]model.TokenDescriptor, error) {
	if f.skips != nil {
		f.skips.Add(model.DecodeSkip{Kind: "token", Index: 1, Error: "missing Decimals"})
	}
	return []model.TokenDescriptor{{Path: "a.tok", Decimals: 6}, {Path: "b.tok", Decimals: 6}}, nil
}

func (f *fakeSource) Tickets(_ context.Context, filter market.TicketFilter) ([]model.Ticket, error) {
	if f.ticketErr != nil {
		return nil, f.ticketErr
	}
	if filter.At.IsZero() {
		return nil, errors.New("snapshot time not passed")
	}
	return []model.Ticket{{ID: "1", Status: model.TicketOpen}}, nil
}

type memoryStorage struct {
	snaps []storage.Snapshot
}

func (m *memoryStorage) PutSnapshot(_ context.Context, snap storage.Snapshot) error {
	m.snaps = append(m.snaps, snap)
	return nil
}

func (m *memoryStorage) RecordSubmission(context.Context, model.Submission) error {
	return nil
}

type memoryCheckpoint struct {
	cp    storage.Checkpoint
	ok    bool
	saves int
}

func (m *memoryCheckpoint) LoadCheckpoint(context.Context) (storage.Checkpoint, bool, error) {
	return m.cp, m.ok, nil
}

func (m *memoryCheckpoint) SaveCheckpoint(_ context.Context, cp storage.Checkpoint) error {
	m.cp, m.ok = cp, true
	m.saves++
	return nil
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	skips := &SkipBuffer{}
	source := &fakeSource{skips: skips}
	sink := &memoryStorage{}
	cp := &memoryCheckpoint{cp: storage.Checkpoint{Round: 3}, ok: true}

	runner := NewRunner(RunConfig{Rounds: 2, Skips: skips}, source, sink, cp, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(sink.snaps))
	}
	if sink.snaps[0].Round != 4 || sink.snaps[1].Round != 5 {
		t.Fatalf("unexpected rounds: %d, %d", sink.snaps[0].Round, sink.snaps[1].Round)
	}
	first := sink.snaps[0]
	if len(first.Pools) != 1 || len(first.Tokens) != 2 || len(first.Tickets) != 1 {
		t.Fatalf("unexpected snapshot contents: %+v", first)
	}
	if len(first.Skips) != 1 || len(sink.snaps[1].Skips) != 1 {
		t.Fatalf("skips should be drained per round: %d, %d", len(first.Skips), len(sink.snaps[1].Skips))
	}
	if cp.cp.Round != 5 || cp.saves != 2 {
		t.Fatalf("unexpected checkpoint: %+v saves=%d", cp.cp, cp.saves)
	}
}

func TestRunnerStopsOnFetchError(t *testing.T) {
	source := &fakeSource{ticketErr: errors.New("node down")}
	sink := &memoryStorage{}
	cp := &memoryCheckpoint{}

	runner := NewRunner(RunConfig{Rounds: 1}, source, sink, cp, nil)
	err := runner.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, source.ticketErr) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
	if len(sink.snaps) != 0 || cp.saves != 0 {
		t.Fatalf("failed round must not be stored or checkpointed")
	}
}

func TestRunnerRequiresIntervalWhenUnbounded(t *testing.T) {
	runner := NewRunner(RunConfig{}, &fakeSource{}, &memoryStorage{}, nil, nil)
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error for unbounded run without interval")
	}
}

type notifyingStorage struct {
	memoryStorage
	stored chan struct{}
}

func (n *notifyingStorage) PutSnapshot(ctx context.Context, snap storage.Snapshot) error {
	_ = n.memoryStorage.PutSnapshot(ctx, snap)
	n.stored <- struct{}{}
	return nil
}

func TestRunnerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &notifyingStorage{stored: make(chan struct{}, 1)}
	runner := NewRunner(RunConfig{Interval: time.Hour}, &fakeSource{}, sink, nil, nil)

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	select {
	case <-sink.stored:
	case err := <-done:
		t.Fatalf("runner exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("first round never completed")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
