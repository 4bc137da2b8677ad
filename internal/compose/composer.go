package compose

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gnodesk/internal/chain"
	"gnodesk/internal/identity"
	"gnodesk/internal/model"
)

// Exchange entry points.
const (
	fnCreateCoinTicket  = "CreateCoinTicket"
	fnCreateTokenTicket = "CreateTokenTicket"
	fnCreateNFTTicket   = "CreateNFTTicket"
	fnCancelTicket      = "CancelTicket"
	fnFulfillTicket     = "FulfillTicket"
	fnBuyNFT            = "BuyNFT"
	fnCreatePool        = "CreatePool"
	fnAddLiquidity      = "AddLiquidity"
	fnWithdrawLiquidity = "WithdrawLiquidity"
	fnSwap              = "Swap"

	fnApprove           = "Approve"
	fnSetApprovalForAll = "SetApprovalForAll"
)

// Config names the realms a composed transaction talks to.
type Config struct {
	ExchangePath   string
	GRC20Registry  string
	GRC721Registry string
	GRC721Package  string
	NativeDenom    string
}

func DefaultConfig() Config {
	return Config{
		ExchangePath:   "gno.land/r/demo/exchange",
		GRC20Registry:  "gno.land/r/demo/grc20reg",
		GRC721Registry: "gno.land/r/demo/grc721reg",
		GRC721Package:  "gno.land/p/demo/grc/grc721",
		NativeDenom:    "ugnot",
	}
}

func (c Config) validate() error {
	for name, path := range map[string]string{
		"exchange path":        c.ExchangePath,
		"grc20 registry path":  c.GRC20Registry,
		"grc721 registry path": c.GRC721Registry,
		"grc721 package path":  c.GRC721Package,
	} {
		if path == "" || !pathPattern.MatchString(path) {
			return fmt.Errorf("invalid %s %q", name, path)
		}
	}
	if c.NativeDenom == "" || !denomPattern.MatchString(c.NativeDenom) {
		return fmt.Errorf("invalid native denom %q", c.NativeDenom)
	}
	return nil
}

// Composed is a plan together with the message it compiles to.
type Composed struct {
	Plan    Plan
	Message chain.Message
}

// Composer builds messages for the exchange. It holds no mutable state and
// is safe for concurrent use.
type Composer struct {
	cfg      Config
	identity identity.Provider
}

// NewComposer validates cfg and binds the identity used as caller.
func NewComposer(cfg Config, id identity.Provider) (*Composer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if id == nil {
		return nil, fmt.Errorf("identity provider is nil")
	}
	return &Composer{cfg: cfg, identity: id}, nil
}

func (c *Composer) Config() Config { return c.cfg }

// Compose validates req, plans it and compiles the plan to a message.
// Validation failures are *CompositionError values.
func (c *Composer) Compose(req Request) (Composed, error) {
	plan, err := c.Plan(req)
	if err != nil {
		return Composed{}, err
	}
	msg, err := c.compile(plan)
	if err != nil {
		return Composed{}, err
	}
	return Composed{Plan: plan, Message: msg}, nil
}

// Plan validates req and returns its structured plan. The caller address is
// read once.
func (c *Composer) Plan(req Request) (Plan, error) {
	caller, err := identity.Require(c.identity)
	if err != nil {
		return Plan{}, reject(req.Op, "caller", "", err.Error())
	}
	chk := &checker{op: req.Op, native: c.cfg.NativeDenom}
	chk.caller(caller)
	if chk.err != nil {
		return Plan{}, chk.err
	}

	b := &builder{cfg: c.cfg, chk: chk, plan: Plan{Op: req.Op, Caller: caller}}
	switch req.Op {
	case OpCreateTicket:
		b.createTicket(req)
	case OpCreateNFTTicket:
		b.createNFTTicket(req)
	case OpCancelTicket:
		chk.id("ticket_id", req.TicketID)
		b.call(fnCancelTicket, false, Str(req.TicketID))
	case OpFulfillTicket:
		b.fulfillTicket(req)
	case OpBuyNFT:
		b.buyNFT(req)
	case OpCreatePool:
		b.createPool(req)
	case OpAddLiquidity:
		b.addLiquidity(req)
	case OpWithdrawLiquidity:
		chk.poolKey("pool_key", req.PoolKey)
		chk.positive("amount", req.Amount)
		b.call(fnWithdrawLiquidity, false, Str(req.PoolKey), Num(req.Amount))
	case OpSwap:
		b.swap(req)
	case OpApprove:
		b.approve(req)
	default:
		chk.fail("op", string(req.Op), "unknown operation")
	}
	if chk.err != nil {
		return Plan{}, chk.err
	}

	b.plan.Shape = ShapeCall
	if len(b.plan.Grants()) > 0 {
		b.plan.Shape = ShapeRun
	}
	return b.plan, nil
}

func (c *Composer) compile(plan Plan) (chain.Message, error) {
	switch plan.Shape {
	case ShapeCall:
		call, ok := plan.Call()
		if !ok {
			return nil, reject(plan.Op, "plan", "", "no call step")
		}
		return chain.CallMessage{
			Caller:  plan.Caller,
			Send:    plan.Send,
			PkgPath: call.PkgPath,
			Func:    call.Func,
			Args:    argValues(call.Args),
		}, nil
	case ShapeRun:
		src, err := renderProgram(c.cfg, plan)
		if err != nil {
			return nil, &CompositionError{Op: plan.Op, Field: "program", Reason: err.Error()}
		}
		return chain.RunMessage{
			Caller: plan.Caller,
			Send:   plan.Send,
			Package: chain.Package{
				Name:  "main",
				Files: []chain.File{{Name: "main.gno", Body: src}},
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown shape %q", plan.Shape)
	}
}

// builder appends plan steps for one request.
type builder struct {
	cfg     Config
	chk     *checker
	plan    Plan
	handles int
}

// pay moves amount of asset from the caller: native coins are attached as
// funds, anything else gets exactly one resolve and grant pair.
func (b *builder) pay(asset model.AssetRef, amount uint64) {
	if asset.IsNative() {
		b.plan.Send = strconv.FormatUint(amount, 10) + asset.Denom
		return
	}
	handle := "asset" + strconv.Itoa(b.handles)
	b.handles++
	if asset.Kind == model.AssetNFT {
		amount = 1
	}
	b.plan.Steps = append(b.plan.Steps,
		Step{Kind: StepResolve, Handle: handle, Asset: asset},
		Step{Kind: StepGrant, Handle: handle, Asset: asset, Amount: amount},
	)
}

func (b *builder) call(fn string, returns bool, args ...Arg) {
	b.callOn(b.cfg.ExchangePath, fn, returns, args...)
}

func (b *builder) callOn(pkgPath, fn string, returns bool, args ...Arg) {
	b.plan.Steps = append(b.plan.Steps, Step{Kind: StepCall, PkgPath: pkgPath, Func: fn, Args: args, Returns: returns})
}

func (b *builder) createTicket(req Request) {
	chk := b.chk
	chk.asset("asset_in", req.AssetIn, false)
	chk.kind("asset_in", req.AssetIn, model.AssetCoin, model.AssetToken)
	chk.asset("asset_out", req.AssetOut, false)
	chk.positive("amount_in", req.AmountIn)
	chk.positive("min_amount_out", req.MinAmountOut)
	chk.positive("expiry_hours", req.ExpiryHours)
	if req.AssetIn.Key() == req.AssetOut.Key() {
		chk.fail("asset_out", req.AssetOut.Key(), "same as asset_in")
	}
	if chk.err != nil {
		return
	}

	out := []Arg{Str(string(req.AssetOut.Kind)), Str(req.AssetOut.ID())}
	b.pay(req.AssetIn, req.AmountIn)
	if req.AssetIn.IsNative() {
		b.call(fnCreateCoinTicket, true, append(out, Num(req.MinAmountOut), Num(req.ExpiryHours))...)
		return
	}
	args := append([]Arg{Str(req.AssetIn.Path)}, out...)
	b.call(fnCreateTokenTicket, true, append(args, Num(req.AmountIn), Num(req.MinAmountOut), Num(req.ExpiryHours))...)
}

func (b *builder) createNFTTicket(req Request) {
	chk := b.chk
	chk.kind("asset_in", req.AssetIn, model.AssetNFT)
	chk.asset("asset_in", req.AssetIn, true)
	chk.asset("asset_out", req.AssetOut, false)
	chk.kind("asset_out", req.AssetOut, model.AssetCoin, model.AssetToken)
	chk.positive("min_amount_out", req.MinAmountOut)
	chk.positive("expiry_hours", req.ExpiryHours)
	if chk.err != nil {
		return
	}

	b.pay(req.AssetIn, 1)
	b.call(fnCreateNFTTicket, true,
		Str(req.AssetIn.ID()),
		Str(string(req.AssetOut.Kind)),
		Str(req.AssetOut.ID()),
		Num(req.MinAmountOut),
		Num(req.ExpiryHours),
	)
}

func (b *builder) fulfillTicket(req Request) {
	chk := b.chk
	chk.id("ticket_id", req.TicketID)
	chk.asset("pay", req.Pay, true)
	chk.positive("amount", req.Amount)
	if chk.err != nil {
		return
	}

	b.pay(req.Pay, req.Amount)
	b.call(fnFulfillTicket, false, Str(req.TicketID), Num(req.Amount))
}

func (b *builder) buyNFT(req Request) {
	chk := b.chk
	chk.id("ticket_id", req.TicketID)
	chk.asset("pay", req.Pay, false)
	chk.kind("pay", req.Pay, model.AssetCoin, model.AssetToken)
	chk.positive("amount", req.Amount)
	if chk.err != nil {
		return
	}

	b.pay(req.Pay, req.Amount)
	b.call(fnBuyNFT, false, Str(req.TicketID))
}

func (b *builder) createPool(req Request) {
	chk := b.chk
	chk.path("token_a", req.TokenA)
	chk.path("token_b", req.TokenB)
	chk.positive("amount_a", req.AmountA)
	chk.positive("amount_b", req.AmountB)
	if req.TokenA != "" && req.TokenA == req.TokenB {
		chk.fail("token_b", req.TokenB, "same as token_a")
	}
	if chk.err != nil {
		return
	}

	b.pay(model.Token(req.TokenA), req.AmountA)
	b.pay(model.Token(req.TokenB), req.AmountB)
	b.call(fnCreatePool, true, Str(req.TokenA), Str(req.TokenB), Num(req.AmountA), Num(req.AmountB))
}

// PoolTokens splits a conventional "tokenA:tokenB" pool key.
func PoolTokens(poolKey string) (string, string, bool) {
	a, bTok, ok := strings.Cut(poolKey, ":")
	if !ok || a == "" || bTok == "" || strings.Contains(bTok, ":") {
		return "", "", false
	}
	return a, bTok, true
}

func (b *builder) addLiquidity(req Request) {
	chk := b.chk
	chk.poolKey("pool_key", req.PoolKey)
	tokenA, tokenB := req.TokenA, req.TokenB
	if a, bTok, ok := PoolTokens(req.PoolKey); ok {
		switch {
		case tokenA == "" && tokenB == "":
			tokenA, tokenB = a, bTok
		case tokenA != a || tokenB != bTok:
			chk.fail("token_a", tokenA+":"+tokenB, "does not match pool "+req.PoolKey)
		}
	}
	chk.path("token_a", tokenA)
	chk.path("token_b", tokenB)
	chk.positive("amount_a", req.AmountA)
	chk.positive("amount_b", req.AmountB)
	if tokenA != "" && tokenA == tokenB {
		chk.fail("token_b", tokenB, "same as token_a")
	}
	if chk.err != nil {
		return
	}

	b.pay(model.Token(tokenA), req.AmountA)
	b.pay(model.Token(tokenB), req.AmountB)
	b.call(fnAddLiquidity, true, Str(req.PoolKey), Num(req.AmountA), Num(req.AmountB))
}

func (b *builder) swap(req Request) {
	chk := b.chk
	chk.poolKey("pool_key", req.PoolKey)
	chk.asset("asset_in", req.AssetIn, false)
	chk.kind("asset_in", req.AssetIn, model.AssetToken)
	chk.positive("amount_in", req.AmountIn)
	if chk.err != nil {
		return
	}

	if !req.PreApproved {
		b.pay(req.AssetIn, req.AmountIn)
	}
	b.call(fnSwap, true, Str(req.PoolKey), Str(req.AssetIn.Path), Num(req.AmountIn), Num(req.MinAmountOut))
}

// approve grants the exchange a standing allowance with a direct call on
// the asset's own realm. It is the only operation that may approve more
// than the amount of a single action.
func (b *builder) approve(req Request) {
	chk := b.chk
	chk.asset("asset_in", req.AssetIn, false)
	chk.kind("asset_in", req.AssetIn, model.AssetToken, model.AssetNFT)
	if req.AssetIn.Kind == model.AssetToken && !req.Unlimited {
		chk.positive("amount", req.Amount)
	}
	if chk.err != nil {
		return
	}

	spender, err := identity.DerivePkgAddr(b.cfg.ExchangePath)
	if err != nil {
		chk.fail("spender", b.cfg.ExchangePath, err.Error())
		return
	}

	if req.AssetIn.Kind == model.AssetNFT {
		b.callOn(req.AssetIn.Path, fnSetApprovalForAll, false, Str(spender), Str("true"))
		return
	}
	amount := req.Amount
	if req.Unlimited {
		amount = math.MaxUint64
	}
	b.callOn(req.AssetIn.Path, fnApprove, false, Str(spender), Num(amount))
}
