// Package poller drives a transaction through validation on a bounded polling
// loop and reports a single terminal outcome.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"gorecovery/logger"
	"gorecovery/metrics"
	"gorecovery/txvalidator"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 60 * time.Second
)

var (
	ErrPollingTimeout = errors.New("transaction was not confirmed in time")
	ErrAlreadyStarted = errors.New("poller already started")
)

type State int32

const (
	Pending State = iota
	Confirmed
	Failed
	AlreadyProcessed
)

var stateNames = [...]string{
	Pending:          "pending",
	Confirmed:        "confirmed",
	Failed:           "failed",
	AlreadyProcessed: "already-processed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s State) Terminal() bool {
	return s != Pending
}

type Outcome struct {
	State  State
	Result *txvalidator.Result
	Err    error
}

// Source is what the poller needs from the validator.
type Source interface {
	Receipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	Validate(ctx context.Context, txHash common.Hash, wallet common.Address) (*txvalidator.Result, error)
}

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Poller is single use: Start it once, then either wait for the callback or
// Cancel it.
type Poller struct {
	src      Source
	interval time.Duration
	timeout  time.Duration

	started   atomic.Bool
	completed atomic.Bool
	state     atomic.Int32
	done      chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(src Source, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Poller{
		src:      src,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		done:     make(chan struct{}),
	}
}

func (p *Poller) State() State {
	return State(p.state.Load())
}

// Done is closed once the loop has exited, after any callback returned.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Start begins polling txHash. callback runs on the polling goroutine at most
// once, and never after Cancel or after ctx is cancelled.
func (p *Poller) Start(ctx context.Context, txHash common.Hash, wallet common.Address, callback func(Outcome)) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithTimeoutCause(ctx, p.timeout, ErrPollingTimeout)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	go p.run(loopCtx, cancel, txHash, wallet, callback)
	return nil
}

// Cancel stops polling without firing the callback. It may be called from any
// goroutine, before or after Start.
func (p *Poller) Cancel() {
	p.completed.Store(true)
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Poller) run(ctx context.Context, cancel context.CancelFunc, txHash common.Hash, wallet common.Address, callback func(Outcome)) {
	defer close(p.done)
	defer cancel()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), ErrPollingTimeout) {
				p.finish(txHash, Outcome{State: Failed, Err: ErrPollingTimeout}, callback)
			} else {
				p.completed.Store(true)
			}
			return
		case <-timer.C:
		}
		if p.completed.Load() {
			return
		}

		out := p.attempt(ctx, txHash, wallet)
		if out.State.Terminal() {
			p.finish(txHash, out, callback)
			return
		}
		timer.Reset(p.interval)
	}
}

func (p *Poller) attempt(ctx context.Context, txHash common.Hash, wallet common.Address) Outcome {
	receipt, err := p.src.Receipt(ctx, txHash)
	if err != nil {
		if !errors.Is(err, txvalidator.ErrReceiptNotFound) && ctx.Err() == nil {
			logger.Debug("receipt lookup failed", zap.String("txHash", txHash.Hex()), zap.Error(err))
		}
		return Outcome{State: Pending}
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return Outcome{State: Failed, Err: txvalidator.ErrTransactionFailed}
	}

	res, err := p.src.Validate(ctx, txHash, wallet)
	switch {
	case err == nil:
		return Outcome{State: Confirmed, Result: res}
	case ctx.Err() != nil,
		errors.Is(err, txvalidator.ErrReceiptNotFound),
		errors.Is(err, txvalidator.ErrTransactionNotFound):
		return Outcome{State: Pending}
	case errors.Is(err, txvalidator.ErrAlreadyProcessed):
		return Outcome{State: AlreadyProcessed, Err: err}
	}
	return Outcome{State: Failed, Err: err}
}

func (p *Poller) finish(txHash common.Hash, out Outcome, callback func(Outcome)) {
	if !p.completed.CompareAndSwap(false, true) {
		return
	}
	p.state.Store(int32(out.State))
	metrics.PollOutcomes.WithLabelValues(out.State.String()).Inc()
	logger.Info("transaction polling finished",
		zap.String("txHash", txHash.Hex()),
		zap.Stringer("state", out.State),
		zap.Error(out.Err))
	if callback != nil {
		callback(out)
	}
}

// Await polls txHash until it reaches a terminal state or ctx ends. A
// cancelled ctx yields a Pending outcome carrying the context error.
func Await(ctx context.Context, src Source, txHash common.Hash, wallet common.Address, opts Options) Outcome {
	result := make(chan Outcome, 1)
	p := New(src, opts)
	if err := p.Start(ctx, txHash, wallet, func(out Outcome) { result <- out }); err != nil {
		return Outcome{State: Failed, Err: err}
	}
	<-p.Done()

	select {
	case out := <-result:
		return out
	default:
		return Outcome{State: Pending, Err: ctx.Err()}
	}
}
