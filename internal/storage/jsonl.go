package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gnodesk/internal/model"
)

// Line kinds written by JsonlStorage.
const (
	LinePool       = "pool"
	LineToken      = "token"
	LineTicket     = "ticket"
	LineSkip       = "skip"
	LineSubmission = "submission"
)

// Line is one JSONL entry. Exactly one payload field is set, matching Kind.
type Line struct {
	Kind       string                 `json:"kind"`
	Round      uint64                 `json:"round,omitempty"`
	TakenAt    time.Time              `json:"taken_at"`
	Pool       *model.PoolRecord      `json:"pool,omitempty"`
	Token      *model.TokenDescriptor `json:"token,omitempty"`
	Ticket     *model.Ticket          `json:"ticket,omitempty"`
	Skip       *model.DecodeSkip      `json:"skip,omitempty"`
	Submission *model.Submission      `json:"submission,omitempty"`
}

// JsonlStorage appends snapshots and submissions to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutSnapshot writes one line per pool, token, ticket and skip.
func (s *JsonlStorage) PutSnapshot(_ context.Context, snap Snapshot) error {
	lines := make([]Line, 0, len(snap.Pools)+len(snap.Tokens)+len(snap.Tickets)+len(snap.Skips))
	base := Line{Round: snap.Round, TakenAt: snap.TakenAt.UTC()}
	for i := range snap.Pools {
		line := base
		line.Kind = LinePool
		line.Pool = &snap.Pools[i]
		lines = append(lines, line)
	}
	for i := range snap.Tokens {
		line := base
		line.Kind = LineToken
		line.Token = &snap.Tokens[i]
		lines = append(lines, line)
	}
	for i := range snap.Tickets {
		line := base
		line.Kind = LineTicket
		line.Ticket = &snap.Tickets[i]
		lines = append(lines, line)
	}
	for i := range snap.Skips {
		line := base
		line.Kind = LineSkip
		line.Skip = &snap.Skips[i]
		lines = append(lines, line)
	}
	return s.append(lines)
}

// RecordSubmission appends one journal line.
func (s *JsonlStorage) RecordSubmission(_ context.Context, sub model.Submission) error {
	return s.append([]Line{{Kind: LineSubmission, TakenAt: sub.SubmittedAt.UTC(), Submission: &sub}})
}

func (s *JsonlStorage) append(lines []Line) error {
	if len(lines) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range lines {
		data, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("marshal %s line: %w", line.Kind, err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("write %s line: %w", line.Kind, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// ReadLines loads every line of a JSONL file written by JsonlStorage.
func ReadLines(path string) ([]Line, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	var lines []Line
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line Line
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", lineNo, err)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return lines, nil
}
