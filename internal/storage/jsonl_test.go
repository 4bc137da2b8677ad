package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gnodesk/internal/model"
)

func TestJsonlStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshots.jsonl")
	store := NewJsonlStorage(path)
	takenAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	snap := Snapshot{
		Round:   7,
		TakenAt: takenAt,
		Pools: []model.PoolRecord{{
			Key:    "a.tok:b.tok",
			TokenA: model.TokenDescriptor{Path: "a.tok", Decimals: 6},
			TokenB: model.TokenDescriptor{Path: "b.tok", Decimals: 6},
		}},
		Tickets: []model.Ticket{{ID: "1", AssetIn: model.NFT("gno.land/r/demo/art", "7"), AssetOut: model.Coin("ugnot"), Status: model.TicketOpen}},
		Skips:   []model.DecodeSkip{{Kind: "ticket", Index: 3, Error: "bad status"}},
	}
	if err := store.PutSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("put snapshot: %v", err)
	}
	if err := store.RecordSubmission(context.Background(), model.Submission{ID: "s1", Operation: "Swap", State: "succeeded", SubmittedAt: takenAt}); err != nil {
		t.Fatalf("record submission: %v", err)
	}

	lines, err := ReadLines(path)
	if err != nil {
		t.Fatalf("read lines: %v", err)
	}
	kinds := make([]string, 0, len(lines))
	for _, line := range lines {
		kinds = append(kinds, line.Kind)
	}
	want := []string{LinePool, LineTicket, LineSkip, LineSubmission}
	if len(kinds) != len(want) {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("line %d kind = %s, want %s", i, kinds[i], want[i])
		}
	}

	if lines[0].Round != 7 || !lines[0].TakenAt.Equal(takenAt) {
		t.Fatalf("unexpected envelope: %+v", lines[0])
	}
	if lines[0].Pool == nil || lines[0].Pool.Key != "a.tok:b.tok" {
		t.Fatalf("unexpected pool line: %+v", lines[0])
	}
	if lines[1].Ticket == nil || lines[1].Ticket.AssetIn != model.NFT("gno.land/r/demo/art", "7") {
		t.Fatalf("unexpected ticket line: %+v", lines[1])
	}
	if lines[3].Submission == nil || lines[3].Submission.ID != "s1" {
		t.Fatalf("unexpected submission line: %+v", lines[3])
	}
}

func TestJsonlStorageEmptySnapshotWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	store := NewJsonlStorage(path)
	if err := store.PutSnapshot(context.Background(), Snapshot{TakenAt: time.Now()}); err != nil {
		t.Fatalf("put snapshot: %v", err)
	}
	if _, err := ReadLines(path); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestCheckpointStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	store := NewCheckpointStore(path, true)

	if _, ok, err := store.LoadCheckpoint(ctx); err != nil || ok {
		t.Fatalf("expected no checkpoint, got ok=%v err=%v", ok, err)
	}

	takenAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveCheckpoint(ctx, Checkpoint{Round: 3, TakenAt: takenAt}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cp, ok, err := store.LoadCheckpoint(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if cp.Round != 3 || !cp.TakenAt.Equal(takenAt) {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}

	disabled := NewCheckpointStore(path, false)
	if _, ok, _ := disabled.LoadCheckpoint(ctx); ok {
		t.Fatalf("disabled store should not load")
	}
}
