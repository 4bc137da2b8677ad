package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gnodesk/internal/amm"
	"gnodesk/internal/config"
	"gnodesk/internal/identity"
	"gnodesk/internal/market"
	"gnodesk/internal/model"
)

// queryFunc runs one read against the market service.
type queryFunc func(e *env, cmd *cobra.Command, svc *market.Service) (any, error)

func runQuery(fn queryFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		client, err := e.dial()
		if err != nil {
			return err
		}
		defer client.Close()

		svc, err := e.market(client, market.Options{})
		if err != nil {
			return err
		}
		out, err := fn(e, cmd, svc)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}
}

type poolView struct {
	model.PoolRecord
	SpotPrice string       `json:"spot_price,omitempty"`
	Quote     *quoteView   `json:"quote,omitempty"`
	Deposit   *depositView `json:"deposit,omitempty"`
	Withdraw  *depositView `json:"withdraw,omitempty"`
}

// depositView pairs both pool sides with an LP amount.
type depositView struct {
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
	LP      uint64 `json:"lp"`
}

type quoteView struct {
	TokenIn        string `json:"token_in"`
	TokenOut       string `json:"token_out"`
	AmountIn       string `json:"amount_in"`
	AmountOut      string `json:"amount_out"`
	MinAmountOut   uint64 `json:"min_amount_out"`
	PriceImpactBps uint64 `json:"price_impact_bps"`
}

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List AMM pools with spot prices and optional swap and liquidity estimates",
		RunE: runQuery(func(e *env, cmd *cobra.Command, svc *market.Service) (any, error) {
			pools, err := svc.Pools(e.ctx)
			if err != nil {
				return nil, err
			}
			quoteIn, _ := cmd.Flags().GetString("quote-in")
			amountIn, _ := cmd.Flags().GetUint64("amount-in")
			slippage, _ := cmd.Flags().GetUint64("slippage-bps")
			depositA, _ := cmd.Flags().GetUint64("deposit-a")
			withdrawLP, _ := cmd.Flags().GetUint64("withdraw-lp")

			views := make([]poolView, 0, len(pools))
			for _, pool := range pools {
				view := poolView{PoolRecord: pool}
				if price, err := amm.SpotPrice(pool); err == nil {
					view.SpotPrice = price.String()
				}
				if quoteIn != "" && amountIn > 0 {
					q, err := amm.QuoteOut(pool, quoteIn, amountIn, e.cfg.FeeBps)
					if err == nil {
						view.Quote = &quoteView{
							TokenIn:        q.TokenIn.Path,
							TokenOut:       q.TokenOut.Path,
							AmountIn:       amm.FormatAmount(q.AmountIn, q.TokenIn.Decimals),
							AmountOut:      amm.FormatAmount(q.AmountOut, q.TokenOut.Decimals),
							MinAmountOut:   amm.MinOut(q.AmountOut, slippage),
							PriceImpactBps: q.PriceImpactBps,
						}
					} else {
						e.logger.Debug("no quote", zap.String("pool", pool.Key), zap.Error(err))
					}
				}
				if depositA > 0 {
					if lp, amountB, err := amm.LiquidityShare(pool, depositA); err == nil {
						view.Deposit = &depositView{AmountA: depositA, AmountB: amountB, LP: lp}
					}
				}
				if withdrawLP > 0 {
					if a, b, err := amm.WithdrawShare(pool, withdrawLP); err == nil {
						view.Withdraw = &depositView{AmountA: a, AmountB: b, LP: withdrawLP}
					}
				}
				views = append(views, view)
			}
			return views, nil
		}),
	}
	cmd.Flags().String("quote-in", "", "token path to quote a swap from")
	cmd.Flags().Uint64("amount-in", 0, "amount to quote, in base units")
	cmd.Flags().Uint64("slippage-bps", 50, "slippage tolerance for the quoted minimum")
	cmd.Flags().Uint64("fee-bps", 30, "pool fee used for estimates")
	cmd.Flags().Uint64("deposit-a", 0, "estimate LP minted and token B needed for this token A deposit")
	cmd.Flags().Uint64("withdraw-lp", 0, "estimate reserves returned for burning this many LP tokens")
	return cmd
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List tokens known to the exchange",
		RunE: runQuery(func(e *env, _ *cobra.Command, svc *market.Service) (any, error) {
			return svc.Tokens(e.ctx)
		}),
	}
}

func newTicketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List swap tickets and NFT listings",
		RunE: runQuery(func(e *env, cmd *cobra.Command, svc *market.Service) (any, error) {
			if id, _ := cmd.Flags().GetString("id"); id != "" {
				return svc.Ticket(e.ctx, id)
			}

			filter, err := ticketFilter(cmd)
			if err != nil {
				return nil, err
			}
			return svc.Tickets(e.ctx, filter)
		}),
	}
	cmd.Flags().String("id", "", "fetch a single ticket")
	cmd.Flags().String("status", "", "open, fulfilled, cancelled or expired")
	cmd.Flags().String("creator", "", "creator address")
	cmd.Flags().Bool("nft", false, "only NFT listings")
	cmd.Flags().String("asset", "", "asset key on either side (coin:ugnot, token:<path>, nft:<path>[:<id>])")
	cmd.Flags().String("at", "", "evaluate expiry at this time (unix seconds or RFC3339)")
	return cmd
}

func ticketFilter(cmd *cobra.Command) (market.TicketFilter, error) {
	var filter market.TicketFilter

	if raw, _ := cmd.Flags().GetString("status"); raw != "" {
		status, err := model.ParseTicketStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if raw, _ := cmd.Flags().GetString("asset"); raw != "" {
		asset, err := model.ParseAssetKey(raw)
		if err != nil {
			return filter, err
		}
		filter.AssetKey = asset.Key()
	}
	at, _ := cmd.Flags().GetString("at")
	ts, err := config.ParseTimestamp(at)
	if err != nil {
		return filter, fmt.Errorf("parse --at: %w", err)
	}
	filter.At = ts
	filter.Creator, _ = cmd.Flags().GetString("creator")
	filter.NFTOnly, _ = cmd.Flags().GetBool("nft")
	return filter, nil
}

func newNFTsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nfts",
		Short: "List NFTs held by owners",
		RunE: runQuery(func(e *env, cmd *cobra.Command, svc *market.Service) (any, error) {
			owners, err := owners(e, cmd)
			if err != nil {
				return nil, err
			}
			var out []model.NFTBalance
			for _, owner := range owners {
				items, err := svc.NFTBalances(e.ctx, owner)
				if err != nil {
					return nil, err
				}
				out = append(out, items...)
			}
			return out, nil
		}),
	}
	cmd.Flags().String("owner", "", "owner addresses, comma separated (default --caller)")
	return cmd
}

func newBalancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "List token balances of owners",
		RunE: runQuery(func(e *env, cmd *cobra.Command, svc *market.Service) (any, error) {
			owners, err := owners(e, cmd)
			if err != nil {
				return nil, err
			}
			var out []model.TokenBalance
			for _, owner := range owners {
				items, err := svc.TokenBalances(e.ctx, owner)
				if err != nil {
					return nil, err
				}
				out = append(out, items...)
			}
			return out, nil
		}),
	}
	cmd.Flags().String("owner", "", "owner addresses, comma separated (default --caller)")
	return cmd
}

func owners(e *env, cmd *cobra.Command) ([]string, error) {
	raw, _ := cmd.Flags().GetString("owner")
	list := config.SplitList(raw)
	if len(list) == 0 && e.cfg.Caller != "" {
		list = []string{e.cfg.Caller}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("--owner or --caller is required")
	}
	for _, owner := range list {
		if err := identity.ValidateAddress(owner); err != nil {
			return nil, fmt.Errorf("owner %s: %w", owner, err)
		}
	}
	return list, nil
}
