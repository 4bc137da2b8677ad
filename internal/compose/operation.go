// Package compose turns user intents into exchange transactions.
//
// An operation that moves a token or NFT out of the caller's account is
// always composed as one run message whose generated program grants the
// allowance and then calls the exchange, so the grant can never outlive a
// failed action. Operations paying only the native coin attach funds to a
// direct call instead.
package compose

import (
	"fmt"
	"strings"

	"gnodesk/internal/model"
)

// Operation names an exchange action.
type Operation string

const (
	OpCreateTicket      Operation = "CreateTicket"
	OpCancelTicket      Operation = "CancelTicket"
	OpFulfillTicket     Operation = "FulfillTicket"
	OpCreateNFTTicket   Operation = "CreateNFTTicket"
	OpBuyNFT            Operation = "BuyNFT"
	OpCreatePool        Operation = "CreatePool"
	OpAddLiquidity      Operation = "AddLiquidity"
	OpWithdrawLiquidity Operation = "WithdrawLiquidity"
	OpSwap              Operation = "Swap"
	OpApprove           Operation = "Approve"
)

var operations = []Operation{
	OpCreateTicket,
	OpCancelTicket,
	OpFulfillTicket,
	OpCreateNFTTicket,
	OpBuyNFT,
	OpCreatePool,
	OpAddLiquidity,
	OpWithdrawLiquidity,
	OpSwap,
	OpApprove,
}

// Operations lists every supported operation.
func Operations() []Operation {
	out := make([]Operation, len(operations))
	copy(out, operations)
	return out
}

// ParseOperation matches an operation name case-insensitively.
func ParseOperation(raw string) (Operation, error) {
	name := strings.TrimSpace(raw)
	for _, op := range operations {
		if strings.EqualFold(name, string(op)) {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q", raw)
}

// Request is an operation plus its parameters. Each operation reads only
// the fields it needs:
//
//	CreateTicket       AssetIn, AssetOut, AmountIn, MinAmountOut, ExpiryHours
//	CreateNFTTicket    AssetIn (nft with token id), AssetOut, MinAmountOut, ExpiryHours
//	CancelTicket       TicketID
//	FulfillTicket      TicketID, Pay, Amount
//	BuyNFT             TicketID, Pay, Amount
//	CreatePool         TokenA, TokenB, AmountA, AmountB
//	AddLiquidity       PoolKey, AmountA, AmountB (TokenA/TokenB default from PoolKey)
//	WithdrawLiquidity  PoolKey, Amount
//	Swap               PoolKey, AssetIn, AmountIn, MinAmountOut, PreApproved
//	Approve            AssetIn, Amount or Unlimited
type Request struct {
	Op Operation

	AssetIn      model.AssetRef
	AssetOut     model.AssetRef
	AmountIn     uint64
	MinAmountOut uint64
	ExpiryHours  uint64

	TicketID string
	// Pay is the asset the taker hands over when fulfilling a ticket or
	// buying a listing, i.e. the ticket's AssetOut.
	Pay    model.AssetRef
	Amount uint64

	PoolKey string
	TokenA  string
	TokenB  string
	AmountA uint64
	AmountB uint64

	// PreApproved skips the allowance grant for a swap whose input token
	// already carries a sufficient allowance.
	PreApproved bool
	// Unlimited approves the maximum amount. Only Approve honours it.
	Unlimited bool
}

// FulfillRequest builds a FulfillTicket request that pays the ticket's
// requested asset.
func FulfillRequest(t model.Ticket, amount uint64) Request {
	return Request{Op: OpFulfillTicket, TicketID: t.ID, Pay: t.AssetOut, Amount: amount}
}

// BuyRequest builds a BuyNFT request paying the listing's asking price.
func BuyRequest(t model.Ticket) Request {
	return Request{Op: OpBuyNFT, TicketID: t.ID, Pay: t.AssetOut, Amount: t.MinAmountOut}
}

// Shape is the message form chosen for an operation.
type Shape string

const (
	ShapeCall Shape = "call"
	ShapeRun  Shape = "run"
)

// State is the lifecycle position of one execution.
type State string

const (
	StateRequested State = "requested"
	StateComposed  State = "composed"
	StateSubmitted State = "submitted"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)
