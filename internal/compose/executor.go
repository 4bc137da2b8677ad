package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gnodesk/internal/chain"
	"gnodesk/internal/model"
	"gnodesk/internal/telemetry"
)

// FeeParams wraps a composed message before broadcast. Zero values leave
// the choice to the chain client.
type FeeParams struct {
	Amount    uint64
	Denom     string
	GasWanted int64
	Memo      string
}

// Journal persists the outcome of every execution.
type Journal interface {
	RecordSubmission(ctx context.Context, sub model.Submission) error
}

// Receipt reports one execution.
type Receipt struct {
	ID          string
	Op          Operation
	Shape       Shape
	State       State
	Transitions []State
	Plan        Plan
	Result      chain.Result
}

func (r *Receipt) moveTo(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Executor composes and broadcasts operations. It never retries: a run
// message resubmitted after an unclear outcome could grant twice.
type Executor struct {
	composer    *Composer
	broadcaster chain.Broadcaster
	fee         FeeParams
	journal     Journal
	logger      *zap.Logger
	now         func() time.Time
}

// NewExecutor wires an Executor. journal and logger may be nil.
func NewExecutor(composer *Composer, broadcaster chain.Broadcaster, fee FeeParams, journal Journal, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		composer:    composer,
		broadcaster: broadcaster,
		fee:         fee,
		journal:     journal,
		logger:      logger,
		now:         time.Now,
	}
}

// Execute runs req through Requested, Composed, Submitted and a terminal
// state. Errors are *CompositionError, *chain.RejectedError or
// *chain.TransportError; the receipt is returned in every case.
func (e *Executor) Execute(ctx context.Context, req Request) (Receipt, error) {
	receipt := Receipt{ID: uuid.NewString(), Op: req.Op}
	receipt.moveTo(StateRequested)

	if e.composer == nil || e.broadcaster == nil {
		receipt.moveTo(StateFailed)
		return receipt, fmt.Errorf("executor is not configured")
	}

	composed, err := e.composer.Compose(req)
	if err != nil {
		receipt.moveTo(StateFailed)
		telemetry.ObserveCompositionRejected(string(req.Op))
		e.logger.Warn("composition rejected", zap.String("id", receipt.ID), zap.String("op", string(req.Op)), zap.Error(err))
		return receipt, err
	}
	receipt.Plan = composed.Plan
	receipt.Shape = composed.Plan.Shape
	receipt.moveTo(StateComposed)
	telemetry.ObserveComposition(string(req.Op), string(receipt.Shape))

	memo := e.fee.Memo
	if memo == "" {
		memo = "gnodesk:" + receipt.ID
	}
	tx := chain.Tx{
		Msgs: []chain.Message{composed.Message},
		Fee:  chain.NewFee(e.fee.Amount, e.fee.Denom, e.fee.GasWanted),
		Memo: memo,
	}

	receipt.moveTo(StateSubmitted)
	submittedAt := e.now().UTC()
	e.logger.Info("submit",
		zap.String("id", receipt.ID),
		zap.String("op", string(req.Op)),
		zap.String("shape", string(receipt.Shape)),
		zap.String("send", composed.Plan.Send),
	)

	result, err := e.broadcaster.Broadcast(ctx, tx)
	switch {
	case err != nil:
		var transport *chain.TransportError
		if !errors.As(err, &transport) {
			err = &chain.TransportError{Op: "broadcast", Err: err}
		}
		receipt.moveTo(StateFailed)
		telemetry.ObserveSubmission(string(req.Op), telemetry.OutcomeTransport)
	case result.Code != 0:
		receipt.Result = result
		err = &chain.RejectedError{Code: result.Code, Log: result.Log, Hash: result.Hash}
		receipt.moveTo(StateFailed)
		telemetry.ObserveSubmission(string(req.Op), telemetry.OutcomeRejected)
	default:
		receipt.Result = result
		receipt.moveTo(StateSucceeded)
		telemetry.ObserveSubmission(string(req.Op), telemetry.OutcomeSucceeded)
	}

	if err != nil {
		e.logger.Warn("submission failed", zap.String("id", receipt.ID), zap.Error(err))
	} else {
		e.logger.Info("submission succeeded", zap.String("id", receipt.ID), zap.String("hash", result.Hash))
	}
	e.record(ctx, receipt, submittedAt, err)
	return receipt, err
}

// FollowCaller logs every switch of the active account until updates is
// closed or ctx ends. Plans read the caller when they are composed, so a
// switch only affects operations requested after it.
func (e *Executor) FollowCaller(ctx context.Context, updates <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case addr, ok := <-updates:
			if !ok {
				return
			}
			if addr == "" {
				e.logger.Info("account signed out")
				continue
			}
			e.logger.Info("caller changed", zap.String("caller", addr))
		}
	}
}

func (e *Executor) record(ctx context.Context, r Receipt, at time.Time, execErr error) {
	if e.journal == nil {
		return
	}
	sub := model.Submission{
		ID:          r.ID,
		Operation:   string(r.Op),
		Shape:       string(r.Shape),
		Caller:      r.Plan.Caller,
		Send:        r.Plan.Send,
		State:       string(r.State),
		Code:        r.Result.Code,
		Log:         r.Result.Log,
		TxHash:      r.Result.Hash,
		SubmittedAt: at,
	}
	if execErr != nil {
		sub.Error = execErr.Error()
	}
	if err := e.journal.RecordSubmission(ctx, sub); err != nil {
		e.logger.Warn("journal write failed", zap.String("id", r.ID), zap.Error(err))
	}
}
