package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gnodesk/internal/chain"
	"gnodesk/internal/compose"
	"gnodesk/internal/config"
	"gnodesk/internal/market"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gnodesk",
		Short:        "Query and trade on a gno.land exchange realm",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("env-file", "", "dotenv file (default ./.env when present)")
	pf.String("node", "", "node JSON-RPC URL")
	pf.String("signer", "", "signer gateway JSON-RPC URL")
	pf.String("sign-method", "", "signer gateway method")
	pf.String("chain-id", "", "chain id")
	pf.String("caller", "", "caller address (g1...)")
	pf.String("exchange", "", "exchange realm path")
	pf.Int("max-retries", 3, "maximum retry attempts for queries")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newPoolsCmd(),
		newTokensCmd(),
		newTicketsCmd(),
		newNFTsCmd(),
		newBalancesCmd(),
		newComposeCmd(),
		newSubmitCmd(),
		newSyncCmd(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// env is what every command needs once flags are parsed.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	ctx    context.Context
	stop   context.CancelFunc
}

func setup(cmd *cobra.Command) (*env, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return newEnv(cfg)
}

func newEnv(cfg config.Config) (*env, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &env{cfg: cfg, logger: logger, ctx: ctx, stop: stop}, nil
}

func (e *env) close() {
	e.stop()
	_ = e.logger.Sync()
}

func (e *env) dial() (*chain.Client, error) {
	if e.cfg.NodeURL == "" {
		return nil, fmt.Errorf("node url is required")
	}
	client, err := chain.NewClient(e.ctx, chain.Options{
		NodeURL:    e.cfg.NodeURL,
		SignerURL:  e.cfg.SignerURL,
		SignMethod: e.cfg.SignMethod,
		ChainID:    e.cfg.ChainID,
		DefaultFee: chain.NewFee(e.cfg.FeeAmount, e.cfg.FeeDenom, e.cfg.GasWanted),
		Logger:     e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect node: %w", err)
	}
	return client, nil
}

func (e *env) market(eval chain.Evaluator, opts market.Options) (*market.Service, error) {
	opts.ExchangePath = e.cfg.ExchangePath
	opts.MaxRetries = e.cfg.MaxRetries
	opts.RetryBackoff = e.cfg.RetryBackoff
	opts.Logger = e.logger
	return market.NewService(eval, opts)
}

func (e *env) composeConfig() compose.Config {
	return compose.Config{
		ExchangePath:   e.cfg.ExchangePath,
		GRC20Registry:  e.cfg.GRC20Registry,
		GRC721Registry: e.cfg.GRC721Registry,
		GRC721Package:  e.cfg.GRC721Package,
		NativeDenom:    e.cfg.NativeDenom,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
