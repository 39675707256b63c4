// Package runtime implements the three-actor concurrency model: a
// user-input Main, a network Sender, a network Receiver, coordinated
// through the shared queue.Queue and session.FSM, plus the SIGINT signal
// handler that forces a graceful shutdown.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ipk24chat/client/internal/input"
	"github.com/ipk24chat/client/internal/metrics"
	"github.com/ipk24chat/client/internal/queue"
	"github.com/ipk24chat/client/internal/session"
	"github.com/ipk24chat/client/internal/transport"
	"github.com/ipk24chat/client/internal/wire"
)

// Config carries the network-facing fields the runtime needs; transport
// construction itself is the external collaborator's job.
type Config struct {
	UDPTimeout    time.Duration
	UDPMaxRetries uint8

	// NowFunc supplies the current time to the Sender's retransmission
	// pacing. Tests can substitute a clock that jumps forward to make a
	// UDP timeout elapse without a real wall-clock wait; nil defaults to
	// time.Now.
	NowFunc func() time.Time
}

// Runtime owns every long-lived buffer, mutex, condition variable, and
// queue for one chat session. Run tears it down once the Sender and
// Receiver have exited; a Main actor still blocked on stdin is not waited
// for (see Run).
type Runtime struct {
	cfg Config
	tr  transport.Transport

	queue   *queue.Queue
	seenIDs *queue.Queue // UDP inbound-id dedup side-table
	fsm     *session.FSM
	details *session.Details

	log     *slog.Logger
	metrics *metrics.Metrics
	nowFunc func() time.Time

	stdout, stderr io.Writer
	outMu          sync.Mutex // serializes writes to stdout/stderr

	senderEmptyQueueCond *broadcast
	rec2senderCond       *broadcast
	mainCond             *broadcast

	lines *input.LineReader

	backoffPolicy backoff.BackOff // Sender's per-attempt confirmation wait

	pendingMu       sync.Mutex
	pendingResolved bool

	done     chan struct{}
	doneOnce sync.Once
}

// New builds a Runtime around an already-connected transport.
func New(cfg Config, tr transport.Transport, log *slog.Logger, m *metrics.Metrics, stdin io.Reader, stdout, stderr io.Writer) *Runtime {
	nowFunc := cfg.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Runtime{
		cfg:     cfg,
		tr:      tr,
		queue:   queue.New(),
		seenIDs: queue.New(),
		fsm:     session.NewFSM(),
		details: &session.Details{},
		log:     log,
		metrics: m,
		nowFunc: nowFunc,
		stdout:  stdout,
		stderr:  stderr,

		senderEmptyQueueCond: newBroadcast(),
		rec2senderCond:       newBroadcast(),
		mainCond:             newBroadcast(),

		lines: input.NewLineReader(stdin),

		backoffPolicy: backoff.NewConstantBackOff(cfg.UDPTimeout),

		done: make(chan struct{}),
	}
}

// frameFields is the union of wire.UDPFields/wire.TCPFields that assemble
// needs; it lets the three actors build an outbound frame without caring
// which transport is active.
type frameFields struct {
	Username    string
	DisplayName string
	Secret      string
	Channel     string
	Contents    string
	ReplyOK     bool
	RefMsgID    uint16
}

// assemble renders f as an outbound frame for kind on whichever transport
// is active, returning an owned wire.Buffer ready for queue.PushBack or
// queue.PushFront. The UDP msg-id bytes are left zero; the Sender stamps
// them immediately before transmission.
func (r *Runtime) assemble(kind wire.MessageKind, f frameFields) *wire.Buffer {
	if r.tr.Kind() == transport.TCP {
		b := wire.NewBuffer()
		b.Append(wire.AssembleTCP(kind, wire.TCPFields{
			Username:    f.Username,
			DisplayName: f.DisplayName,
			Secret:      f.Secret,
			Channel:     f.Channel,
			Contents:    f.Contents,
			ReplyOK:     f.ReplyOK,
		})...)
		return b
	}
	return wire.AssembleUDP(kind, 0, wire.UDPFields{
		Username:    f.Username,
		DisplayName: f.DisplayName,
		Secret:      f.Secret,
		Channel:     f.Channel,
		Contents:    f.Contents,
		ReplyOK:     f.ReplyOK,
		RefMsgID:    f.RefMsgID,
	})
}

// armPending marks a just-enqueued outbound message as awaiting a stable
// outcome: Main blocks on mainCond until the Sender/Receiver indicate the
// message has resolved one way or another.
func (r *Runtime) armPending() {
	r.pendingMu.Lock()
	r.pendingResolved = false
	r.pendingMu.Unlock()
}

// resolvePending marks the outcome reached and wakes Main.
func (r *Runtime) resolvePending() {
	r.pendingMu.Lock()
	r.pendingResolved = true
	r.pendingMu.Unlock()
	r.mainCond.Signal()
}

func (r *Runtime) pendingIsResolved() bool {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	return r.pendingResolved
}

// queueBye purges the outbound queue and enqueues a lone BYE, used for
// local /exit, remote BYE acknowledgement is not needed here (the BYE
// case already terminates), and the terminal leg of the ERR path below.
func (r *Runtime) queueBye() {
	r.queue.Lock()
	r.queue.Drain()
	frame := r.assemble(wire.KindBye, frameFields{})
	r.queue.PushBack(frame, wire.FlagBye, wire.KindBye)
	r.queue.Unlock()
	r.senderEmptyQueueCond.Signal()
}

// queueErrThenBye drains the queue and enqueues ERR followed by BYE, used
// when this side is the one detecting the protocol violation (timeout,
// UNKNOWN/CORRUPTED inbound frame).
func (r *Runtime) queueErrThenBye(reason string) {
	r.queue.Lock()
	r.queue.Drain()
	errFrame := r.assemble(wire.KindErr, frameFields{DisplayName: r.details.DisplayName(), Contents: reason})
	r.queue.PushBack(errFrame, wire.FlagErr, wire.KindErr)
	byeFrame := r.assemble(wire.KindBye, frameFields{})
	r.queue.PushBack(byeFrame, wire.FlagBye, wire.KindBye)
	r.queue.Unlock()
	r.senderEmptyQueueCond.Signal()
}

// sendConfirm priority-enqueues a CONFIRM echoing (high, low). The frame is
// fully assembled here (the id is the thing being confirmed, not a fresh
// one), so the Sender's finalize-for-wire step must skip CONFIRM entries.
func (r *Runtime) sendConfirm(high, low byte) {
	id := uint16(high)<<8 | uint16(low)
	frame := wire.AssembleUDP(wire.KindConfirm, id, wire.UDPFields{})
	r.queue.Lock()
	r.queue.PushFront(frame, wire.FlagConfirm, wire.KindConfirm)
	r.queue.Unlock()
	r.senderEmptyQueueCond.Signal()
}

func (r *Runtime) sendConfirmFor(rec *wire.ProtocolRecord) {
	r.sendConfirm(byte(rec.MsgID>>8), byte(rec.MsgID))
}

func isTimeout(err error) bool {
	ne, ok := err.(interface{ Timeout() bool })
	return ok && ne.Timeout()
}

// close is idempotent: SIGINT and end-of-session teardown may both race
// to call it.
func (r *Runtime) close() {
	r.doneOnce.Do(func() { close(r.done) })
}

func (r *Runtime) printStdout(format string, args ...any) {
	r.outMu.Lock()
	fmt.Fprintf(r.stdout, format, args...)
	r.outMu.Unlock()
}

func (r *Runtime) printStderr(format string, args ...any) {
	r.outMu.Lock()
	fmt.Fprintf(r.stderr, format, args...)
	r.outMu.Unlock()
}

// setState is the sole state-mutation entry point: it logs the
// transition and, on reaching the terminal state, closes r.done so every
// actor blocked in a broadcast.Wait (Main's awaitOutcome, the SIGINT
// handler's drain wait) observes the end without a dedicated signal.
func (r *Runtime) setState(s session.State) session.State {
	prev := r.fsm.SetState(s)
	if prev != s {
		r.log.Debug("fsm: transition", "from", prev.String(), "to", s.String())
		if r.metrics != nil {
			r.metrics.StateTransitions.WithLabelValues(prev.String(), s.String()).Inc()
		}
	}
	if s == session.StateEnd {
		r.close()
	}
	return prev
}

// Run wires the three actors and the SIGINT handler and blocks until the
// session reaches StateEnd or ctx is canceled. It always closes the
// transport before returning.
//
// Main's blocking stdin read has no cancellation primitive, so Run does
// not wait on it directly: once r.done closes (via setState(StateEnd) or
// the SIGINT handler), Run tears down Sender and Receiver, which are both
// ctx-driven and exit promptly; a Main goroutine still parked in a stdin
// read is abandoned, since the process exits once Run returns regardless.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.runSender(ctx)
	}()
	go func() {
		defer wg.Done()
		r.runReceiver(ctx)
	}()

	go func() {
		select {
		case <-sigCh:
			r.handleSigint()
		case <-r.done:
		case <-ctx.Done():
		}
	}()

	go r.runMain(ctx)

	select {
	case <-r.done:
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()
	return r.tr.Close()
}
