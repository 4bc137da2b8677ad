package chain

import "fmt"

// TransportError wraps a failure to reach the node or the signer. It is the
// only error class callers may retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Retryable() bool { return true }

// EvalError is returned when the node evaluated a query expression and
// reported an error for it.
type EvalError struct {
	PkgPath string
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("eval %s.%s: %s", e.PkgPath, e.Expr, e.Message)
}

// RejectedError carries a non-zero result code returned for a broadcast
// transaction.
type RejectedError struct {
	Code uint32
	Log  string
	Hash string
}

func (e *RejectedError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("tx %s rejected with code %d: %s", e.Hash, e.Code, e.Log)
	}
	return fmt.Sprintf("tx rejected with code %d: %s", e.Code, e.Log)
}
