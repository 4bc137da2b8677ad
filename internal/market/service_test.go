package market

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gnodesk/internal/chain"
	"gnodesk/internal/decode"
	"gnodesk/internal/model"
)

const exchangePath = "gno.land/r/demo/exchange"

type scriptedEvaluator struct {
	results  map[string]string
	failures map[string][]error
	calls    map[string]int
}

func newScripted() *scriptedEvaluator {
	return &scriptedEvaluator{
		results:  map[string]string{},
		failures: map[string][]error{},
		calls:    map[string]int{},
	}
}

func (s *scriptedEvaluator) Evaluate(_ context.Context, pkgPath, expr string) (string, error) {
	if pkgPath != exchangePath {
		return "", errors.New("unexpected package " + pkgPath)
	}
	s.calls[expr]++
	if queue := s.failures[expr]; len(queue) > 0 {
		s.failures[expr] = queue[1:]
		return "", queue[0]
	}
	text, ok := s.results[expr]
	if !ok {
		return "", &chain.EvalError{PkgPath: pkgPath, Expr: expr, Message: "undefined"}
	}
	return text, nil
}

func newTestService(t *testing.T, eval chain.Evaluator, onSkip decode.SkipFunc) *Service {
	t.Helper()
	svc, err := NewService(eval, Options{ExchangePath: exchangePath, MaxRetries: 2, RetryBackoff: time.Millisecond, OnSkip: onSkip})
	require.NoError(t, err)
	return svc
}

func TestPoolsDistinguishesEmptyFromError(t *testing.T) {
	eval := newScripted()
	eval.results[exprPools] = ""
	svc := newTestService(t, eval, nil)

	pools, err := svc.Pools(context.Background())
	require.NoError(t, err)
	require.Empty(t, pools)

	delete(eval.results, exprPools)
	_, err = svc.Pools(context.Background())
	var evalErr *chain.EvalError
	require.ErrorAs(t, err, &evalErr)
	require.Equal(t, 2, eval.calls[exprPools], "eval errors are not retried")
}

func TestPoolsRetriesTransportFailures(t *testing.T) {
	eval := newScripted()
	eval.results[exprPools] = "p1>TokenA:{Path:a.tok,Decimals:6},TokenB:{Path:b.tok,Decimals:6},ReserveA:100,ReserveB:200,TotalSupplyLP:50"
	eval.failures[exprPools] = []error{
		&chain.TransportError{Op: "abci_query", Err: errors.New("reset")},
		&chain.TransportError{Op: "abci_query", Err: errors.New("reset")},
	}
	svc := newTestService(t, eval, nil)

	pools, err := svc.Pools(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, 3, eval.calls[exprPools])

	eval.failures[exprPools] = []error{
		&chain.TransportError{Op: "abci_query", Err: errors.New("reset")},
		&chain.TransportError{Op: "abci_query", Err: errors.New("reset")},
		&chain.TransportError{Op: "abci_query", Err: errors.New("reset")},
	}
	_, err = svc.Pools(context.Background())
	var transport *chain.TransportError
	require.ErrorAs(t, err, &transport)
}

func TestTicketsFilterAndSkip(t *testing.T) {
	eval := newScripted()
	eval.results[exprTickets] = strings.Join([]string{
		"ID:1,Creator:g1a,AssetIn:{Type:token,Path:x.tok},AssetOut:{Type:coin,Denom:ugnot},AmountIn:10,MinAmountOut:9,ExpiresAt:2000,Status:open",
		"ID:2,Creator:g1b,AssetIn:{Type:nft,Path:gno.land/r/demo/art:7},AssetOut:{Type:coin,Denom:ugnot},AmountIn:1,MinAmountOut:9,ExpiresAt:1000,Status:open",
		"ID:3,Creator:g1a,AssetIn:{Type:weird,Path:x.tok},AssetOut:{Type:coin,Denom:ugnot},AmountIn:1,MinAmountOut:1,ExpiresAt:1,Status:open",
		"ID:4,Creator:g1b,AssetIn:{Type:token,Path:y.tok},AssetOut:{Type:token,Path:x.tok},AmountIn:5,MinAmountOut:5,ExpiresAt:3000,Status:cancelled",
	}, ";")

	var skipped []model.DecodeSkip
	svc := newTestService(t, eval, func(s model.DecodeSkip) { skipped = append(skipped, s) })
	at := time.Unix(1500, 0)

	all, err := svc.Tickets(context.Background(), TicketFilter{At: at})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Len(t, skipped, 1)
	require.Equal(t, 2, skipped[0].Index)

	open, err := svc.Tickets(context.Background(), TicketFilter{Status: model.TicketOpen, At: at})
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "1", open[0].ID)

	expired, err := svc.Tickets(context.Background(), TicketFilter{Status: model.TicketExpired, At: at})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "2", expired[0].ID)

	nfts, err := svc.Tickets(context.Background(), TicketFilter{NFTOnly: true, At: at})
	require.NoError(t, err)
	require.Len(t, nfts, 1)

	withX, err := svc.Tickets(context.Background(), TicketFilter{AssetKey: "token:x.tok", Creator: "g1b", At: at})
	require.NoError(t, err)
	require.Len(t, withX, 1)
	require.Equal(t, "4", withX[0].ID)
}

func TestTicketLookup(t *testing.T) {
	eval := newScripted()
	eval.results[`GetTicket("9")`] = "ID:9,Creator:g1a,AssetIn:{Denom:ugnot},AssetOut:{Path:x.tok},AmountIn:10,MinAmountOut:9,ExpiresAt:2000,Status:open"
	eval.results[`GetTicket("10")`] = ""
	svc := newTestService(t, eval, nil)

	ticket, err := svc.Ticket(context.Background(), "9")
	require.NoError(t, err)
	require.Equal(t, model.Coin("ugnot"), ticket.AssetIn)

	_, err = svc.Ticket(context.Background(), "10")
	require.ErrorIs(t, err, ErrTicketNotFound)

	_, err = svc.Ticket(context.Background(), `9")`)
	require.Error(t, err)
	require.Zero(t, eval.calls[`GetTicket("9")")`])
}

func TestBalancesFillOwner(t *testing.T) {
	eval := newScripted()
	eval.results[`GetNFTBalances("g1owner")`] = "gno.land/r/demo/art>TokenID:1;gno.land/r/demo/art>TokenID:2"
	eval.results[`GetTokenBalances("g1owner")`] = "Path:x.tok,Balance:42"
	svc := newTestService(t, eval, nil)

	nfts, err := svc.NFTBalances(context.Background(), "g1owner")
	require.NoError(t, err)
	require.Len(t, nfts, 2)
	require.Equal(t, "g1owner", nfts[1].Owner)

	tokens, err := svc.TokenBalances(context.Background(), "g1owner")
	require.NoError(t, err)
	require.Equal(t, []model.TokenBalance{{Path: "x.tok", Owner: "g1owner", Balance: 42}}, tokens)
}

func TestMalformedPageIsAnError(t *testing.T) {
	eval := newScripted()
	eval.results[exprTokens] = "garbage;more"
	svc := newTestService(t, eval, nil)

	_, err := svc.Tokens(context.Background())
	require.ErrorIs(t, err, decode.ErrMalformedPage)
}
