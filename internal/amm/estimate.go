// Package amm estimates constant-product pool outcomes for display. Nothing
// here is enforced; the exchange computes the real amounts on chain.
package amm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"gnodesk/internal/model"
)

const bpsDenominator = 10000

var (
	ErrUnknownToken = errors.New("token not in pool")
	ErrEmptyPool    = errors.New("pool has no liquidity")
)

// Quote is the estimated result of swapping into a pool.
type Quote struct {
	TokenIn   model.TokenDescriptor
	TokenOut  model.TokenDescriptor
	AmountIn  uint64
	AmountOut uint64
	// PriceImpactBps approximates price impact as in/(reserveIn+in).
	PriceImpactBps uint64
}

// QuoteOut estimates the output of swapping amountIn of tokenIn, charging
// feeBps on the input: out = rOut*in*(1-fee) / (rIn + in*(1-fee)).
func QuoteOut(pool model.PoolRecord, tokenIn string, amountIn uint64, feeBps uint64) (Quote, error) {
	in, reserveIn, out, reserveOut, ok := pool.Side(tokenIn)
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownToken, tokenIn)
	}
	if reserveIn == 0 || reserveOut == 0 {
		return Quote{}, ErrEmptyPool
	}
	if feeBps >= bpsDenominator {
		return Quote{}, fmt.Errorf("fee %d bps out of range", feeBps)
	}

	inAfterFee := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), big.NewInt(int64(bpsDenominator-feeBps)))
	num := new(big.Int).Mul(inAfterFee, new(big.Int).SetUint64(reserveOut))
	den := new(big.Int).Mul(new(big.Int).SetUint64(reserveIn), big.NewInt(bpsDenominator))
	den.Add(den, inAfterFee)
	amountOut := new(big.Int).Quo(num, den)

	q := Quote{TokenIn: in, TokenOut: out, AmountIn: amountIn, AmountOut: amountOut.Uint64()}

	if amountIn > 0 {
		newIn := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), new(big.Int).SetUint64(amountIn))
		kept := new(big.Int).Mul(new(big.Int).SetUint64(reserveIn), big.NewInt(bpsDenominator))
		kept.Quo(kept, newIn)
		q.PriceImpactBps = bpsDenominator - kept.Uint64()
	}
	return q, nil
}

// MinOut applies a slippage tolerance to an expected amount.
func MinOut(amount, slippageBps uint64) uint64 {
	if slippageBps >= bpsDenominator {
		return 0
	}
	v := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(int64(bpsDenominator-slippageBps)))
	return v.Quo(v, big.NewInt(bpsDenominator)).Uint64()
}

// LiquidityShare estimates the LP tokens minted for a deposit and the
// matching amount of the other side at the current ratio.
func LiquidityShare(pool model.PoolRecord, amountA uint64) (lpMinted, amountB uint64, err error) {
	if pool.ReserveA == 0 || pool.ReserveB == 0 || pool.TotalSupplyLP == 0 {
		return 0, 0, ErrEmptyPool
	}
	a := new(big.Int).SetUint64(amountA)
	b := new(big.Int).Mul(a, new(big.Int).SetUint64(pool.ReserveB))
	b.Quo(b, new(big.Int).SetUint64(pool.ReserveA))
	lp := new(big.Int).Mul(a, new(big.Int).SetUint64(pool.TotalSupplyLP))
	lp.Quo(lp, new(big.Int).SetUint64(pool.ReserveA))
	return lp.Uint64(), b.Uint64(), nil
}

// WithdrawShare estimates the reserves returned for burning lp tokens.
func WithdrawShare(pool model.PoolRecord, lp uint64) (amountA, amountB uint64, err error) {
	if pool.TotalSupplyLP == 0 {
		return 0, 0, ErrEmptyPool
	}
	if lp > pool.TotalSupplyLP {
		return 0, 0, fmt.Errorf("lp amount %d exceeds supply %d", lp, pool.TotalSupplyLP)
	}
	supply := new(big.Int).SetUint64(pool.TotalSupplyLP)
	a := new(big.Int).Mul(new(big.Int).SetUint64(lp), new(big.Int).SetUint64(pool.ReserveA))
	b := new(big.Int).Mul(new(big.Int).SetUint64(lp), new(big.Int).SetUint64(pool.ReserveB))
	return a.Quo(a, supply).Uint64(), b.Quo(b, supply).Uint64(), nil
}

// FormatAmount renders a base-unit amount with the token's decimals.
func FormatAmount(amount uint64, decimals uint32) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	return d.StringFixed(int32(decimals))
}

// ParseAmount converts a display amount such as "1.5" into base units.
func ParseAmount(text string, decimals uint32) (uint64, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", text, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", text)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than %d decimals", text, decimals)
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q overflows", text)
	}
	return bi.Uint64(), nil
}

// SpotPrice is the price of one whole token A in token B.
func SpotPrice(pool model.PoolRecord) (decimal.Decimal, error) {
	if pool.ReserveA == 0 {
		return decimal.Zero, ErrEmptyPool
	}
	a := decimal.NewFromBigInt(new(big.Int).SetUint64(pool.ReserveA), -int32(pool.TokenA.Decimals))
	b := decimal.NewFromBigInt(new(big.Int).SetUint64(pool.ReserveB), -int32(pool.TokenB.Decimals))
	return b.Div(a), nil
}
