// Package engine contains the block scanner and the event matcher that turn
// confirmed token transfers into fiat payouts.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/eccentricexit/cipay-backend/internal/metrics"
	"github.com/eccentricexit/cipay-backend/pkg/ethereum"
	"github.com/eccentricexit/cipay-backend/pkg/payment"
)

// ChainReader defines the chain interactions the scanner needs.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterTransfers(ctx context.Context, token common.Address, fromBlock, toBlock uint64) ([]ethereum.TransferEvent, error)
}

// EventHandler consumes one transfer event. Handlers must be idempotent:
// the scanner may deliver the same event more than once.
type EventHandler interface {
	HandleTransfer(ctx context.Context, ev ethereum.TransferEvent) error
}

// Engine scans one token's transfers into the custodial wallet over a
// bounded, checkpointed block window. One engine runs per accepted token.
type Engine struct {
	token       common.Address
	symbol      string
	chain       ChainReader
	handler     EventHandler
	checkpoints payment.CheckpointStore
	logger      *zap.Logger

	pollPeriod time.Duration
	window     uint64

	stopRequested atomic.Bool
	running       atomic.Bool
}

// NewEngine creates a scanner for one token.
func NewEngine(
	token common.Address,
	symbol string,
	chain ChainReader,
	handler EventHandler,
	checkpoints payment.CheckpointStore,
	pollPeriod time.Duration,
	window uint64,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		token:       token,
		symbol:      symbol,
		chain:       chain,
		handler:     handler,
		checkpoints: checkpoints,
		pollPeriod:  pollPeriod,
		window:      window,
		logger:      logger.With(zap.String("token", token.Hex()), zap.String("symbol", symbol)),
	}
}

// checkpointID is the sync row key for this token.
func (e *Engine) checkpointID() string {
	return "syncblock-" + e.token.Hex()
}

// RequestStop asks the scan loop to exit after the current iteration.
func (e *Engine) RequestStop() {
	e.stopRequested.Store(true)
}

// IsRunning reports whether the scan loop is still active. Shutdown polls
// this until the engine quiesces.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Start runs the scan loop until RequestStop is called or ctx is canceled.
func (e *Engine) Start(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)

	e.logger.Info("Starting transfer scanner",
		zap.Uint64("window", e.window),
		zap.Duration("poll_period", e.pollPeriod))

	// The checkpoint load is part of the retried iteration: a store or RPC
	// outage during startup delays the scanner, it never kills it.
	var fromBlock uint64
	initialized := false

	for {
		if e.stopRequested.Load() {
			e.logger.Info("Stop requested, scanner exiting")
			return nil
		}
		select {
		case <-ctx.Done():
			e.logger.Info("Context canceled, scanner exiting")
			return ctx.Err()
		default:
		}

		if !initialized {
			lastBlock, err := e.loadOrInitCheckpoint(ctx)
			if err != nil {
				metrics.ScanErrors.WithLabelValues(e.token.Hex()).Inc()
				e.logger.Warn("Failed to load sync checkpoint, retrying", zap.Error(err))
			} else {
				fromBlock = lastBlock + 1
				initialized = true
				e.logger.Info("Scanner window initialized", zap.Uint64("from_block", fromBlock))
			}
		}

		if initialized {
			next, err := e.scanOnce(ctx, fromBlock)
			if err != nil {
				metrics.ScanErrors.WithLabelValues(e.token.Hex()).Inc()
				e.logger.Warn("Scan iteration failed", zap.Error(err))
			} else {
				fromBlock = next
			}
		}
		metrics.ScanIterations.WithLabelValues(e.token.Hex()).Inc()

		select {
		case <-ctx.Done():
			e.logger.Info("Context canceled, scanner exiting")
			return ctx.Err()
		case <-time.After(e.pollPeriod):
		}
	}
}

// loadOrInitCheckpoint returns the persisted last scanned block. A token
// with no checkpoint starts at the current head: historical blocks are never
// back-scanned on a cold start.
func (e *Engine) loadOrInitCheckpoint(ctx context.Context) (uint64, error) {
	cp, err := e.checkpoints.Checkpoint(ctx, e.checkpointID())
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp != nil {
		e.logger.Info("Loaded sync checkpoint", zap.Uint64("last_block", cp.LastBlock))
		return cp.LastBlock, nil
	}

	head, err := e.chain.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain head: %w", err)
	}
	if err := e.checkpoints.SaveCheckpoint(ctx, e.checkpointID(), head); err != nil {
		return 0, fmt.Errorf("failed to init checkpoint: %w", err)
	}
	e.logger.Info("Initialized sync checkpoint at chain head", zap.Uint64("head", head))
	return head, nil
}

// scanOnce processes one bounded window starting at fromBlock and returns
// the next window start.
func (e *Engine) scanOnce(ctx context.Context, fromBlock uint64) (uint64, error) {
	head, err := e.chain.BlockNumber(ctx)
	if err != nil {
		return fromBlock, fmt.Errorf("failed to get chain head: %w", err)
	}
	if head < fromBlock {
		// Nothing mined past the window start yet.
		return fromBlock, nil
	}

	toBlock := fromBlock + e.window
	scanTo := toBlock
	if head < scanTo {
		scanTo = head
	}

	events, err := e.chain.FilterTransfers(ctx, e.token, fromBlock, scanTo)
	if err != nil {
		return fromBlock, fmt.Errorf("failed to filter transfers: %w", err)
	}

	// Keep only events from the scanned contract, whatever the provider
	// actually returned. A spoofed or misrouted log never reaches the matcher
	// and never moves the window.
	kept := events[:0]
	for _, ev := range events {
		if ev.Token != e.token {
			e.logger.Warn("Dropping transfer event from unexpected contract",
				zap.String("address", ev.Token.Hex()),
				zap.String("tx_hash", ev.TxHash.Hex()))
			continue
		}
		kept = append(kept, ev)
	}
	events = kept

	if len(events) > 0 {
		metrics.TransferEventsSeen.WithLabelValues(e.token.Hex()).Add(float64(len(events)))
		e.dispatch(ctx, events)
	}

	// Advance the window. When the head is past the window the whole range
	// was covered; otherwise move just past the last seen event, or hold
	// and rescan the still-open window next iteration.
	next := fromBlock
	switch {
	case head > toBlock:
		next = toBlock + 1
	case len(events) > 0:
		next = maxEventBlock(events) + 1
	}

	if err := e.checkpoints.SaveCheckpoint(ctx, e.checkpointID(), next-1); err != nil {
		return fromBlock, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	metrics.LastScannedBlock.WithLabelValues(e.token.Hex()).Set(float64(next - 1))

	return next, nil
}

// dispatch fans events out to the handler, one goroutine per event. A
// failing event is logged and counted; it never blocks its siblings or the
// window advancement.
func (e *Engine) dispatch(ctx context.Context, events []ethereum.TransferEvent) {
	var wg sync.WaitGroup
	for _, ev := range events {
		wg.Add(1)
		go func(ev ethereum.TransferEvent) {
			defer wg.Done()
			if err := e.handler.HandleTransfer(ctx, ev); err != nil {
				e.logger.Error("Failed to handle transfer event",
					zap.Error(err),
					zap.String("tx_hash", ev.TxHash.Hex()),
					zap.Uint64("block", ev.BlockNumber))
			}
		}(ev)
	}
	wg.Wait()
}

func maxEventBlock(events []ethereum.TransferEvent) uint64 {
	max := events[0].BlockNumber
	for _, ev := range events[1:] {
		if ev.BlockNumber > max {
			max = ev.BlockNumber
		}
	}
	return max
}
