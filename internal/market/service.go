// Package market issues the exchange's read-only queries and decodes their
// results.
package market

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"gnodesk/internal/chain"
	"gnodesk/internal/decode"
	"gnodesk/internal/model"
	"gnodesk/internal/telemetry"
)

// ErrTicketNotFound is returned by Ticket when the exchange has no such id.
var ErrTicketNotFound = errors.New("ticket not found")

// Query expressions evaluated against the exchange realm.
const (
	exprPools         = "GetPools()"
	exprTokens        = "GetTokens()"
	exprTickets       = "GetTickets()"
	exprTicket        = "GetTicket"
	exprNFTBalances   = "GetNFTBalances"
	exprTokenBalances = "GetTokenBalances"
)

var argPattern = regexp.MustCompile(`^[A-Za-z0-9_.:/-]+$`)

// Options configures a Service.
type Options struct {
	ExchangePath string
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *zap.Logger
	// OnSkip observes every dropped record in addition to the log line.
	OnSkip decode.SkipFunc
}

// Service reads exchange state. Every call decodes a fresh result.
type Service struct {
	eval   chain.Evaluator
	opts   Options
	logger *zap.Logger
}

func NewService(eval chain.Evaluator, opts Options) (*Service, error) {
	if eval == nil {
		return nil, fmt.Errorf("evaluator is nil")
	}
	if opts.ExchangePath == "" {
		return nil, fmt.Errorf("exchange path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{eval: eval, opts: opts, logger: logger}, nil
}

// evaluate runs expr and returns the raw text. An empty string means the
// chain reported zero items; errors mean it could not answer.
func (s *Service) evaluate(ctx context.Context, name, expr string) (string, error) {
	var out string
	err := withRetry(ctx, s.opts.MaxRetries, s.opts.RetryBackoff, func(ctx context.Context) error {
		text, err := s.eval.Evaluate(ctx, s.opts.ExchangePath, expr)
		if err != nil {
			var transport *chain.TransportError
			if errors.As(err, &transport) {
				s.logger.Warn("query transport failure", zap.String("expr", name), zap.Error(err))
			}
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		class := "eval"
		var transport *chain.TransportError
		if errors.As(err, &transport) {
			class = "transport"
		}
		telemetry.ObserveQueryError(name, class)
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return out, nil
}

func (s *Service) skipLogger() decode.SkipFunc {
	return func(skip model.DecodeSkip) {
		s.logger.Warn("skip record",
			zap.String("kind", skip.Kind),
			zap.Int("index", skip.Index),
			zap.String("key", skip.Key),
			zap.String("error", skip.Error),
		)
		if s.opts.OnSkip != nil {
			s.opts.OnSkip(skip)
		}
	}
}

func finish[T any](kind string, page decode.Page[T], err error) ([]T, error) {
	telemetry.ObserveDecode(kind, len(page.Items), page.Skipped)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func quoteArg(field, value string) (string, error) {
	if !argPattern.MatchString(value) {
		return "", fmt.Errorf("invalid %s %q", field, value)
	}
	return strconv.Quote(value), nil
}

// Pools lists every pool.
func (s *Service) Pools(ctx context.Context) ([]model.PoolRecord, error) {
	text, err := s.evaluate(ctx, exprPools, exprPools)
	if err != nil {
		return nil, err
	}
	page, err := decode.Pools(text, s.skipLogger())
	return finish(decode.KindPool, page, err)
}

// Tokens lists the tokens the exchange knows about.
func (s *Service) Tokens(ctx context.Context) ([]model.TokenDescriptor, error) {
	text, err := s.evaluate(ctx, exprTokens, exprTokens)
	if err != nil {
		return nil, err
	}
	page, err := decode.Tokens(text, s.skipLogger())
	return finish(decode.KindToken, page, err)
}

// TicketFilter narrows a ticket listing. Zero fields match everything.
type TicketFilter struct {
	Status   model.TicketStatus
	Creator  string
	NFTOnly  bool
	AssetKey string
	// At is the instant used to decide expiry; zero means now.
	At time.Time
}

func (f TicketFilter) match(t model.Ticket, at time.Time) bool {
	if f.Status != "" && t.EffectiveStatus(at) != f.Status {
		return false
	}
	if f.Creator != "" && t.Creator != f.Creator {
		return false
	}
	if f.NFTOnly && !t.IsNFTListing() {
		return false
	}
	if f.AssetKey != "" && t.AssetIn.Key() != f.AssetKey && t.AssetOut.Key() != f.AssetKey {
		return false
	}
	return true
}

// Tickets lists tickets matching filter, in the order the exchange returned
// them.
func (s *Service) Tickets(ctx context.Context, filter TicketFilter) ([]model.Ticket, error) {
	text, err := s.evaluate(ctx, exprTickets, exprTickets)
	if err != nil {
		return nil, err
	}
	page, err := decode.Tickets(text, s.skipLogger())
	tickets, err := finish(decode.KindTicket, page, err)
	if err != nil {
		return nil, err
	}

	at := filter.At
	if at.IsZero() {
		at = time.Now()
	}
	out := tickets[:0]
	for _, t := range tickets {
		if filter.match(t, at) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Ticket fetches one ticket by id.
func (s *Service) Ticket(ctx context.Context, id string) (model.Ticket, error) {
	arg, err := quoteArg("ticket id", id)
	if err != nil {
		return model.Ticket{}, err
	}
	text, err := s.evaluate(ctx, exprTicket, exprTicket+"("+arg+")")
	if err != nil {
		return model.Ticket{}, err
	}
	page, err := decode.Tickets(text, s.skipLogger())
	tickets, err := finish(decode.KindTicket, page, err)
	if err != nil {
		return model.Ticket{}, err
	}
	for _, t := range tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
}

// NFTBalances lists the NFTs held by owner.
func (s *Service) NFTBalances(ctx context.Context, owner string) ([]model.NFTBalance, error) {
	arg, err := quoteArg("owner", owner)
	if err != nil {
		return nil, err
	}
	text, err := s.evaluate(ctx, exprNFTBalances, exprNFTBalances+"("+arg+")")
	if err != nil {
		return nil, err
	}
	page, err := decode.NFTBalances(text, s.skipLogger())
	items, err := finish(decode.KindNFTBalance, page, err)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Owner == "" {
			items[i].Owner = owner
		}
	}
	return items, nil
}

// TokenBalances lists the token balances of owner.
func (s *Service) TokenBalances(ctx context.Context, owner string) ([]model.TokenBalance, error) {
	arg, err := quoteArg("owner", owner)
	if err != nil {
		return nil, err
	}
	text, err := s.evaluate(ctx, exprTokenBalances, exprTokenBalances+"("+arg+")")
	if err != nil {
		return nil, err
	}
	page, err := decode.TokenBalances(text, s.skipLogger())
	items, err := finish(decode.KindTokenBalance, page, err)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Owner == "" {
			items[i].Owner = owner
		}
	}
	return items, nil
}
