// Package control implements a two-level control loop: an outer
// Supervisor that owns zero-or-one active capture sessions and reacts to
// StartCapture/StopCapture commands, and an inner per-session
// coordinator that owns the flow table and is the table's only writer.
package control

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mccutchen/httpwatch/internal/decode"
	"github.com/mccutchen/httpwatch/internal/flow"
	"github.com/mccutchen/httpwatch/internal/source"
	"github.com/mccutchen/httpwatch/internal/transaction"
	"github.com/mccutchen/httpwatch/mempool"
)

// Command is sent on the Supervisor's bounded command channel.
type Command interface{ isCommand() }

// StartCapture asks the supervisor to open Interface and begin framing
// HTTP transactions for connections matching BPFFilter.
type StartCapture struct {
	Interface string
	BPFFilter string

	// IdleFlowTimeout retires a flow that has gone quiet without a second
	// FIN for this long. Zero disables idle eviction.
	IdleFlowTimeout time.Duration
}

func (StartCapture) isCommand() {}

// StopCapture asks the supervisor to tear down the active session, if
// any. It is a no-op if no session is running.
type StopCapture struct{}

func (StopCapture) isCommand() {}

// CommandChannelCapacity is small enough that a stuck consumer is
// immediately visible as backpressure, large enough that
// StartCapture/StopCapture issued back to back don't block the caller.
const CommandChannelCapacity = 5

// PacketChannelCapacity bounds the coordinator's idle-flow channel and is
// used by cmd/httpwatch for the transaction output channel. It equals the
// buffer that source.Frames gives the ingest-to-coordinator packet
// channel. This is deliberately small: capture applies backpressure to
// the kernel/libpcap ring buffer rather than growing unbounded memory
// when the coordinator falls behind.
const PacketChannelCapacity = 5

// Supervisor serializes StartCapture/StopCapture commands and owns at
// most one active session at a time.
type Supervisor struct {
	logger     *zap.Logger
	newTable   func() flow.Table
	bufferPool mempool.BufferPool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    <-chan struct{}
	session bool
}

// NewSupervisor builds a Supervisor. newTable lets the caller choose
// between the linear-scan and hash-keyed Table implementations; a nil
// newTable defaults to the linear table.
func NewSupervisor(logger *zap.Logger, pool mempool.BufferPool, newTable func() flow.Table) *Supervisor {
	if newTable == nil {
		newTable = func() flow.Table { return flow.NewLinearTable(pool) }
	}
	return &Supervisor{logger: logger, newTable: newTable, bufferPool: pool}
}

// Run consumes commands until cmds is closed or ctx is canceled,
// forwarding framed transactions to output. It returns once the active
// session (if any) has fully drained.
func (s *Supervisor) Run(ctx context.Context, cmds <-chan Command, output chan<- transaction.Transaction) {
	for {
		select {
		case <-ctx.Done():
			s.stopActive()
			return
		case cmd, ok := <-cmds:
			if !ok {
				s.stopActive()
				return
			}
			s.handle(ctx, cmd, output)
		}
	}
}

func (s *Supervisor) handle(ctx context.Context, cmd Command, output chan<- transaction.Transaction) {
	switch c := cmd.(type) {
	case StartCapture:
		s.logger.Info("command arrived", zap.String("command", "StartCapture"), zap.String("interface", c.Interface))
		s.startCapture(ctx, c, output)
	case StopCapture:
		s.logger.Info("command arrived", zap.String("command", "StopCapture"))
		s.stopActive()
	}
}

func (s *Supervisor) startCapture(parent context.Context, c StartCapture, output chan<- transaction.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session {
		s.logger.Warn("StartCapture received while a session is already active; restarting")
		s.stopActiveLocked()
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.session = true

	go func() {
		defer close(done)
		runSession(ctx, s.logger, c, s.newTable(), output)
	}()
}

func (s *Supervisor) stopActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopActiveLocked()
}

func (s *Supervisor) stopActiveLocked() {
	if !s.session {
		return
	}
	s.cancel()
	<-s.done
	s.session = false
}

// runSession is the inner coordinator: the sole writer of table for the
// lifetime of one capture session. It owns no locks because nothing else
// touches table concurrently.
func runSession(ctx context.Context, logger *zap.Logger, c StartCapture, table flow.Table, output chan<- transaction.Transaction) {
	src, err := source.OpenLive(ctx, c.Interface, c.BPFFilter)
	if err != nil {
		logger.Error("failed to open capture device", zap.String("interface", c.Interface), zap.Error(err))
		return
	}
	defer src.Close()

	frames := src.Frames(ctx)
	loopback := src.IsLoopback()

	// idleCh carries flows the evictor has decided have gone quiet. The
	// evictor's own callback runs on the cache's janitor goroutine, so it
	// only ever enqueues here; retirement itself happens below, keeping
	// this coordinator the table's sole writer. Left nil (never selected)
	// when idle eviction is disabled.
	var evictor *flow.IdleEvictor
	var idleCh chan *flow.Flow
	if c.IdleFlowTimeout > 0 {
		idleCh = make(chan *flow.Flow, PacketChannelCapacity)
		evictor = flow.NewIdleEvictor(c.IdleFlowTimeout, func(f *flow.Flow) {
			select {
			case idleCh <- f:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			emit(ctx, logger, table, frame, loopback, output, evictor)
		case f := <-idleCh:
			if !table.Retire(f) {
				continue
			}
			logger.Debug("retiring idle flow", zap.Uint64("flow_id", f.ID))
			sendTxns(ctx, transaction.Drain(f), output)
			f.Release()
		}
	}
}

func emit(ctx context.Context, logger *zap.Logger, table flow.Table, frame source.RawFrame, loopback bool, output chan<- transaction.Transaction, evictor *flow.IdleEvictor) {
	var pkt decode.FilteredPacket
	var decodeErr error
	if loopback {
		pkt, decodeErr = decode.Loopback(frame.Data, frame.Timestamp)
	} else {
		pkt, decodeErr = decode.Ethernet(frame.Data, frame.Timestamp)
	}
	if decodeErr != nil {
		logger.Debug("dropping unrecognized frame", zap.Error(decodeErr))
		return
	}

	f, side := table.Store(pkt.Source, pkt.Destination, pkt.Timestamp)
	f.Append(side, pkt.Payload)
	if evictor != nil {
		evictor.Touch(f)
	}

	if !pkt.FIN {
		return
	}
	if !f.RegisterFIN(side) {
		return
	}

	if evictor != nil {
		evictor.Forget(f)
	}
	table.Retire(f)
	txns := transaction.Drain(f)
	f.Release()
	sendTxns(ctx, txns, output)
}

func sendTxns(ctx context.Context, txns []transaction.Transaction, output chan<- transaction.Transaction) {
	for _, txn := range txns {
		select {
		case output <- txn:
		case <-ctx.Done():
			return
		}
	}
}
