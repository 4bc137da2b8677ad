package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gnodesk/internal/amm"
	"gnodesk/internal/chain"
	"gnodesk/internal/compose"
	"gnodesk/internal/identity"
	"gnodesk/internal/market"
	"gnodesk/internal/model"
	"gnodesk/internal/storage"
	"gnodesk/internal/storage/postgres"
)

func operationNames() []string {
	ops := compose.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = string(op)
	}
	return names
}

func addRequestFlags(fs *pflag.FlagSet) {
	fs.String("asset-in", "", "offered asset key (coin:<denom>, token:<path>, nft:<path>:<id>)")
	fs.String("asset-out", "", "requested asset key")
	fs.Uint64("amount-in", 0, "offered amount, in base units")
	fs.Uint64("min-out", 0, "minimum amount out, in base units")
	fs.Uint64("expiry-hours", 24, "ticket lifetime in hours")
	fs.String("ticket", "", "ticket id")
	fs.String("pay", "", "asset paid to fulfill or buy (default: the ticket's requested asset)")
	fs.Uint64("amount", 0, "amount paid, LP tokens withdrawn, or allowance granted")
	fs.String("pool", "", "pool key (tokenA:tokenB)")
	fs.String("token-a", "", "first pool token path")
	fs.String("token-b", "", "second pool token path")
	fs.Uint64("amount-a", 0, "first pool token amount")
	fs.Uint64("amount-b", 0, "second pool token amount")
	fs.Bool("pre-approved", false, "swap input already carries an allowance")
	fs.Bool("unlimited", false, "approve the maximum amount")
	fs.Uint64("slippage-bps", 0, "derive a swap's --min-out from the pool quote with this tolerance")
}

// resolver dials the node only when a request needs chain state.
type resolver struct {
	e      *env
	client *chain.Client
	svc    *market.Service
}

func (r *resolver) service() (*market.Service, error) {
	if r.svc != nil {
		return r.svc, nil
	}
	if r.client == nil {
		client, err := r.e.dial()
		if err != nil {
			return nil, err
		}
		r.client = client
	}
	svc, err := r.e.market(r.client, market.Options{})
	if err != nil {
		return nil, err
	}
	r.svc = svc
	return svc, nil
}

func (r *resolver) close() {
	if r.client != nil {
		r.client.Close()
	}
}

func assetFlag(fs *pflag.FlagSet, name string) (model.AssetRef, error) {
	raw, _ := fs.GetString(name)
	if raw == "" {
		return model.AssetRef{}, nil
	}
	asset, err := model.ParseAssetKey(raw)
	if err != nil {
		return model.AssetRef{}, fmt.Errorf("--%s: %w", name, err)
	}
	return asset, nil
}

func buildRequest(r *resolver, fs *pflag.FlagSet, opName string) (compose.Request, error) {
	op, err := compose.ParseOperation(opName)
	if err != nil {
		return compose.Request{}, err
	}
	req := compose.Request{Op: op}

	if req.AssetIn, err = assetFlag(fs, "asset-in"); err != nil {
		return req, err
	}
	if req.AssetOut, err = assetFlag(fs, "asset-out"); err != nil {
		return req, err
	}
	if req.Pay, err = assetFlag(fs, "pay"); err != nil {
		return req, err
	}
	req.AmountIn, _ = fs.GetUint64("amount-in")
	req.MinAmountOut, _ = fs.GetUint64("min-out")
	req.ExpiryHours, _ = fs.GetUint64("expiry-hours")
	req.TicketID, _ = fs.GetString("ticket")
	req.Amount, _ = fs.GetUint64("amount")
	req.PoolKey, _ = fs.GetString("pool")
	req.TokenA, _ = fs.GetString("token-a")
	req.TokenB, _ = fs.GetString("token-b")
	req.AmountA, _ = fs.GetUint64("amount-a")
	req.AmountB, _ = fs.GetUint64("amount-b")
	req.PreApproved, _ = fs.GetBool("pre-approved")
	req.Unlimited, _ = fs.GetBool("unlimited")

	switch op {
	case compose.OpFulfillTicket, compose.OpBuyNFT:
		if req.Pay.Kind == "" && req.TicketID != "" {
			if err := fillFromTicket(r, &req); err != nil {
				return req, err
			}
		}
	case compose.OpSwap:
		slippage, _ := fs.GetUint64("slippage-bps")
		if req.MinAmountOut == 0 && slippage > 0 {
			if err := fillMinOut(r, &req, slippage); err != nil {
				return req, err
			}
		}
	}
	return req, nil
}

func fillFromTicket(r *resolver, req *compose.Request) error {
	svc, err := r.service()
	if err != nil {
		return err
	}
	ticket, err := svc.Ticket(r.e.ctx, req.TicketID)
	if err != nil {
		return err
	}
	if status := ticket.EffectiveStatus(time.Now()); status != model.TicketOpen {
		return fmt.Errorf("ticket %s is %s", ticket.ID, status)
	}
	amount := req.Amount
	if req.Op == compose.OpBuyNFT {
		*req = compose.BuyRequest(ticket)
		return nil
	}
	if amount == 0 {
		amount = ticket.MinAmountOut
	}
	*req = compose.FulfillRequest(ticket, amount)
	return nil
}

func fillMinOut(r *resolver, req *compose.Request, slippageBps uint64) error {
	svc, err := r.service()
	if err != nil {
		return err
	}
	pools, err := svc.Pools(r.e.ctx)
	if err != nil {
		return err
	}
	for _, pool := range pools {
		if pool.Key != req.PoolKey {
			continue
		}
		q, err := amm.QuoteOut(pool, req.AssetIn.Path, req.AmountIn, r.e.cfg.FeeBps)
		if err != nil {
			return fmt.Errorf("quote %s: %w", pool.Key, err)
		}
		req.MinAmountOut = amm.MinOut(q.AmountOut, slippageBps)
		r.e.logger.Info("derived min out",
			zap.String("pool", pool.Key),
			zap.Uint64("expected", q.AmountOut),
			zap.Uint64("min_out", req.MinAmountOut),
			zap.Uint64("impact_bps", q.PriceImpactBps),
		)
		return nil
	}
	return fmt.Errorf("pool %s not found", req.PoolKey)
}

type composedView struct {
	Operation string        `json:"operation"`
	Shape     string        `json:"shape"`
	Steps     []stepView    `json:"steps"`
	Message   chain.Message `json:"message"`
	Source    string        `json:"source,omitempty"`
}

type stepView struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Amount uint64 `json:"amount,omitempty"`
}

func viewComposed(c compose.Composed) composedView {
	view := composedView{
		Operation: string(c.Plan.Op),
		Shape:     string(c.Plan.Shape),
		Message:   c.Message,
	}
	for _, step := range c.Plan.Steps {
		sv := stepView{Kind: string(step.Kind), Amount: step.Amount}
		switch step.Kind {
		case compose.StepCall:
			sv.Target = step.PkgPath + "." + step.Func
		default:
			sv.Target = step.Asset.Key()
		}
		view.Steps = append(view.Steps, sv)
	}
	if run, ok := c.Message.(chain.RunMessage); ok {
		view.Source = run.Source()
	}
	return view
}

func newComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "compose <operation>",
		Short:     "Compose a message without broadcasting it",
		Long:      "Operations: " + strings.Join(operationNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: operationNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			r := &resolver{e: e}
			defer r.close()

			req, err := buildRequest(r, cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			composer, err := compose.NewComposer(e.composeConfig(), identity.Static(e.cfg.Caller))
			if err != nil {
				return err
			}
			composed, err := composer.Compose(req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), viewComposed(composed))
		},
	}
	addRequestFlags(cmd.Flags())
	return cmd
}

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "submit <operation>",
		Short:     "Compose a message and broadcast it through the signer gateway",
		Long:      "Operations: " + strings.Join(operationNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: operationNames(),
		RunE:      runSubmit,
	}
	addRequestFlags(cmd.Flags())
	cmd.Flags().Uint64("fee-amount", 1000000, "gas fee amount")
	cmd.Flags().String("fee-denom", "ugnot", "gas fee denom")
	cmd.Flags().Int64("gas-wanted", 10000000, "gas limit")
	cmd.Flags().String("memo", "", "transaction memo (default gnodesk:<id>)")
	cmd.Flags().String("journal", "", "append submissions to this JSONL file")
	cmd.Flags().String("pg-dsn", "", "record submissions in Postgres")
	return cmd
}

func runSubmit(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if e.cfg.SignerURL == "" {
		return fmt.Errorf("signer url is required")
	}
	if err := identity.ValidateAddress(e.cfg.Caller); err != nil {
		return fmt.Errorf("caller: %w", err)
	}

	client, err := e.dial()
	if err != nil {
		return err
	}
	r := &resolver{e: e, client: client}
	defer r.close()

	req, err := buildRequest(r, cmd.Flags(), args[0])
	if err != nil {
		return err
	}

	journal, closeJournal, err := openJournal(e)
	if err != nil {
		return err
	}
	defer closeJournal()

	caller := identity.NewWatcher("")
	composer, err := compose.NewComposer(e.composeConfig(), caller)
	if err != nil {
		return err
	}
	memo, _ := cmd.Flags().GetString("memo")
	executor := compose.NewExecutor(composer, client, compose.FeeParams{
		Amount:    e.cfg.FeeAmount,
		Denom:     e.cfg.FeeDenom,
		GasWanted: e.cfg.GasWanted,
		Memo:      memo,
	}, journal, e.logger)

	updates, unsubscribe := caller.Subscribe()
	followed := make(chan struct{})
	go func() {
		defer close(followed)
		executor.FollowCaller(e.ctx, updates)
	}()
	defer func() {
		unsubscribe()
		<-followed
	}()
	if err := caller.Set(e.cfg.Caller); err != nil {
		return fmt.Errorf("caller: %w", err)
	}

	receipt, execErr := executor.Execute(e.ctx, req)
	if err := writeJSON(cmd.OutOrStdout(), receipt); err != nil {
		return err
	}
	return execErr
}

// openJournal prefers Postgres when a DSN is configured. The returned
// journal is nil when neither sink is set.
func openJournal(e *env) (compose.Journal, func(), error) {
	switch {
	case e.cfg.PGDSN != "":
		store, err := postgres.NewStore(e.ctx, e.cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(e.ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	case e.cfg.Journal != "":
		return storage.NewJsonlStorage(e.cfg.Journal), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
