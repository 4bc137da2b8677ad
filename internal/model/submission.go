package model

import "time"

// Submission is a journal entry for one composed and broadcast message.
type Submission struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	Shape       string    `json:"shape"`
	Caller      string    `json:"caller"`
	Send        string    `json:"send,omitempty"`
	State       string    `json:"state"`
	Code        uint32    `json:"code"`
	Log         string    `json:"log,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}
