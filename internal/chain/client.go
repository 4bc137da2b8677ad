package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const (
	qevalPath         = "vm/qeval"
	defaultSignMethod = "gnosign_signAndBroadcast"
)

// Evaluator runs read-only expressions against a realm.
type Evaluator interface {
	Evaluate(ctx context.Context, pkgPath, expr string) (string, error)
}

// Broadcaster signs and submits a transaction.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx Tx) (Result, error)
}

// Options configures a Client.
type Options struct {
	NodeURL    string
	SignerURL  string
	SignMethod string
	ChainID    string
	DefaultFee Fee
	Logger     *zap.Logger
}

// Client talks JSON-RPC to a node for queries and to a signer gateway for
// broadcasts. Signing keys never pass through this process.
type Client struct {
	node   *rpc.Client
	signer *rpc.Client
	opts   Options
	logger *zap.Logger
}

// NewClient dials the node and, when configured, the signer gateway.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.NodeURL == "" {
		return nil, fmt.Errorf("node url is required")
	}
	if opts.SignMethod == "" {
		opts.SignMethod = defaultSignMethod
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	node, err := rpc.DialContext(ctx, opts.NodeURL)
	if err != nil {
		return nil, fmt.Errorf("dial node: %w", err)
	}

	c := &Client{node: node, opts: opts, logger: logger}
	if opts.SignerURL != "" {
		signer, err := rpc.DialContext(ctx, opts.SignerURL)
		if err != nil {
			node.Close()
			return nil, fmt.Errorf("dial signer: %w", err)
		}
		c.signer = signer
	}
	return c, nil
}

// Close closes the underlying RPC clients.
func (c *Client) Close() {
	if c.node != nil {
		c.node.Close()
	}
	if c.signer != nil {
		c.signer.Close()
	}
}

type abciQueryResult struct {
	Response struct {
		ResponseBase struct {
			Error json.RawMessage `json:"Error"`
			Data  []byte          `json:"Data"`
			Log   string          `json:"Log"`
		} `json:"ResponseBase"`
	} `json:"response"`
}

// Evaluate runs expr in pkgPath through vm/qeval and returns the unwrapped
// string result.
func (c *Client) Evaluate(ctx context.Context, pkgPath, expr string) (string, error) {
	query := []byte(pkgPath + "." + expr)

	var res abciQueryResult
	// []byte params are sent base64 encoded, which is what abci_query expects.
	if err := c.node.CallContext(ctx, &res, "abci_query", qevalPath, query, "0", false); err != nil {
		return "", &TransportError{Op: "abci_query", Err: err}
	}

	base := res.Response.ResponseBase
	if hasError(base.Error) {
		msg := base.Log
		if msg == "" {
			msg = string(base.Error)
		}
		return "", &EvalError{PkgPath: pkgPath, Expr: expr, Message: msg}
	}

	out, err := UnquoteResult(string(base.Data))
	if err != nil {
		return "", &EvalError{PkgPath: pkgPath, Expr: expr, Message: err.Error()}
	}
	c.logger.Debug("evaluated", zap.String("pkg", pkgPath), zap.String("expr", expr), zap.Int("bytes", len(out)))
	return out, nil
}

func hasError(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != "{}"
}

type signRequest struct {
	ChainID string `json:"chain_id"`
	Tx      Tx     `json:"tx"`
}

// Broadcast hands tx to the signer gateway, which signs it with the caller's
// key and broadcasts it. Zero fee fields are filled from the defaults.
func (c *Client) Broadcast(ctx context.Context, tx Tx) (Result, error) {
	if c.signer == nil {
		return Result{}, &TransportError{Op: "broadcast", Err: fmt.Errorf("signer url not configured")}
	}
	if tx.Fee.GasWanted == 0 {
		tx.Fee.GasWanted = c.opts.DefaultFee.GasWanted
	}
	if tx.Fee.GasFee == "" {
		tx.Fee.GasFee = c.opts.DefaultFee.GasFee
	}

	var res Result
	if err := c.signer.CallContext(ctx, &res, c.opts.SignMethod, signRequest{ChainID: c.opts.ChainID, Tx: tx}); err != nil {
		return Result{}, &TransportError{Op: c.opts.SignMethod, Err: err}
	}
	c.logger.Info("broadcast", zap.String("hash", res.Hash), zap.Uint32("code", res.Code))
	return res, nil
}

// UnquoteResult unwraps a single string result as printed by qeval, e.g.
// ("p1>ReserveA:1" string).
func UnquoteResult(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, " string)") {
		return "", fmt.Errorf("unexpected qeval result %q", truncate(s, 64))
	}
	quoted := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "("), " string)"))
	out, err := strconv.Unquote(quoted)
	if err != nil {
		return "", fmt.Errorf("unquote qeval result: %w", err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
