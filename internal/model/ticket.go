package model

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketOpen      TicketStatus = "open"
	TicketFulfilled TicketStatus = "fulfilled"
	TicketCancelled TicketStatus = "cancelled"
	TicketExpired   TicketStatus = "expired"
)

// ParseTicketStatus accepts only the known statuses.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch status := TicketStatus(strings.TrimSpace(raw)); status {
	case TicketOpen, TicketFulfilled, TicketCancelled, TicketExpired:
		return status, nil
	default:
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
}

// Ticket is an open offer to exchange AssetIn for at least MinAmountOut of
// AssetOut. Only Status changes over a ticket's life.
type Ticket struct {
	ID           string       `json:"id"`
	Creator      string       `json:"creator"`
	AssetIn      AssetRef     `json:"asset_in"`
	AssetOut     AssetRef     `json:"asset_out"`
	AmountIn     uint64       `json:"amount_in"`
	MinAmountOut uint64       `json:"min_amount_out"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
	Status       TicketStatus `json:"status"`
}

// EffectiveStatus reports the status as seen at now. An open ticket whose
// expiry has passed is reported as expired; the chain does not write this.
func (t Ticket) EffectiveStatus(now time.Time) TicketStatus {
	if t.Status == TicketOpen && !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt) {
		return TicketExpired
	}
	return t.Status
}

// IsNFTListing reports whether the ticket sells an NFT.
func (t Ticket) IsNFTListing() bool {
	return t.AssetIn.Kind == AssetNFT
}
