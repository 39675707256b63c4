package runtime

import (
	"context"
	"time"

	"github.com/ipk24chat/client/internal/session"
	"github.com/ipk24chat/client/internal/transport"
	"github.com/ipk24chat/client/internal/wire"
)

// runSender implements the Sender actor's loop. It returns once the FSM
// reaches StateEnd or ctx is canceled.
func (r *Runtime) runSender(ctx context.Context) {
	isUDP := r.tr.Kind() == transport.UDP

	for {
		if ctx.Err() != nil || r.fsm.GetState() == session.StateEnd {
			return
		}

		r.queue.Lock()
		timedOut, timedOutWasBye, timedOutWasErr := r.filterHeadLocked(isUDP)
		empty := r.queue.IsEmpty()
		headConfirmed := r.queue.HeadConfirmed()
		state := r.fsm.GetState()
		r.queue.Unlock()

		if timedOut {
			r.onUDPTimeout(timedOutWasBye, timedOutWasErr)
			continue
		}

		if empty {
			if state == session.StateEmptyQBye || state == session.StateSigintBye {
				r.setState(session.StateEnd)
				r.resolvePending()
				return
			}
			r.senderEmptyQueueCond.Wait(ctx, r.done)
			continue
		}

		if r.senderShouldHold(state) {
			r.rec2senderCond.Wait(ctx, r.done)
			continue
		}

		if headConfirmed {
			// AUTH delivered at the transport layer, still awaiting REPLY;
			// parked rather than resent.
			r.rec2senderCond.Wait(ctx, r.done)
			continue
		}

		if r.sendHead(isUDP) {
			continue
		}

		r.rec2senderCond.WaitTimeout(r.nextWait(isUDP), r.done)
	}
}

// nextWait returns how long the Sender should wait for a CONFIRM before
// re-checking the head: the backoff policy's per-attempt interval,
// shrunk to whatever of cfg.UDPTimeout is left since the head was last
// sent. nowFunc drives the second half, so a test clock that jumps ahead
// collapses this to zero instead of sleeping in real time.
func (r *Runtime) nextWait(isUDP bool) time.Duration {
	d := r.backoffPolicy.NextBackOff()
	if !isUDP {
		return d
	}
	r.queue.Lock()
	sentAt := r.queue.HeadSentAt()
	r.queue.Unlock()
	if sentAt.IsZero() {
		return d
	}
	if remaining := r.cfg.UDPTimeout - r.nowFunc().Sub(sentAt); remaining < d {
		d = remaining
	}
	if d < 0 {
		d = 0
	}
	return d
}

// filterHeadLocked applies the per-iteration head cleanup: pop entries
// that exhausted their retry budget, drop rejected entries, drop
// confirmed non-AUTH entries. Caller must hold the queue lock. Returns
// whether a retry-budget pop occurred and, if so, whether the popped
// entry was a BYE or an ERR.
func (r *Runtime) filterHeadLocked(isUDP bool) (timedOut, wasBye, wasErr bool) {
	for {
		e := r.queue.Peek()
		if e == nil {
			return false, false, false
		}
		if isUDP && e.SendCount > r.cfg.UDPMaxRetries {
			wasBye = e.Kind == wire.KindBye
			wasErr = e.Kind == wire.KindErr
			r.queue.PopFront()
			return true, wasBye, wasErr
		}
		if e.Flags == wire.FlagRejected {
			r.queue.PopFront()
			continue
		}
		if e.Confirmed && e.Kind != wire.KindAuth {
			r.queue.PopFront()
			continue
		}
		return false, false, false
	}
}

// senderShouldHold reports whether the FSM forbids sending the current
// head in state: while the session is not yet OPEN, only AUTH and
// CONFIRM frames may go out.
func (r *Runtime) senderShouldHold(state session.State) bool {
	switch state {
	case session.StateStart, session.StateAuthW82BeSent, session.StateAuthSent,
		session.StateW84Reply, session.StateW84ReplyConf:
		r.queue.Lock()
		kind := r.queue.HeadKind()
		r.queue.Unlock()
		return kind != wire.KindAuth && kind != wire.KindConfirm
	default:
		return false
	}
}

// sendHead stamps (UDP only), transmits, and either pops or marks-sent the
// current head. It returns true if the loop should re-iterate immediately
// rather than wait for a CONFIRM.
func (r *Runtime) sendHead(isUDP bool) (poppedOrFailed bool) {
	r.queue.Lock()
	kind := r.queue.HeadKind()
	if isUDP && kind != wire.KindConfirm {
		id := r.details.NextMsgID()
		r.queue.SetHeadMsgID(id)
	} else if !isUDP {
		r.details.NextMsgID() // local sequence only; TCP carries no wire id
	}
	e := r.queue.Peek()
	frame := append([]byte(nil), e.Buf.Bytes()...)
	flags := e.Flags
	r.queue.Unlock()

	if err := r.tr.Send(frame); err != nil {
		r.log.Error("sender: write failed", "kind", kind.String(), "err", err)
		return true
	}
	if r.metrics != nil {
		r.metrics.FramesSent.WithLabelValues(kind.String()).Inc()
	}

	r.queue.Lock()
	pop := !isUDP || flags == wire.FlagDoNotResend || flags == wire.FlagConfirm ||
		flags == wire.FlagNokReply || kind == wire.KindConfirm
	if pop {
		r.queue.PopFront()
	} else {
		r.queue.MarkSent(r.nowFunc())
		if r.metrics != nil && r.queue.Peek() != nil && r.queue.Peek().SendCount > 1 {
			r.metrics.Retransmissions.Inc()
		}
	}
	r.queue.Unlock()

	switch kind {
	case wire.KindAuth:
		if isUDP {
			r.fsm.CompareAndSetState(session.StateAuthW82BeSent, session.StateAuthSent)
		} else {
			r.fsm.CompareAndSetState(session.StateAuthW82BeSent, session.StateW84Reply)
		}
	case wire.KindJoin:
		r.fsm.CompareAndSetState(session.StateOpen, session.StateJoinAttempt)
	case wire.KindErr:
		// UDP only: marks the ERR as awaiting its own CONFIRM before the
		// queued BYE behind it is allowed to go out.
		if isUDP {
			r.fsm.CompareAndSetState(session.StateErr, session.StateErrW84Conf)
		}
	case wire.KindBye:
		switch r.fsm.GetState() {
		case session.StateErr, session.StateErrW84Conf:
			if isUDP {
				r.setState(session.StateEndW84Conf)
			} else {
				// TCP has no CONFIRM to wait for; the BYE landing is final.
				r.setState(session.StateEnd)
				r.resolvePending()
			}
		}
	}

	return pop
}

// onUDPTimeout runs when a head entry exhausted its retry budget.
//
// A timed-out BYE short-circuits straight to END. A timed-out ERR is
// simply popped: the BYE queued behind it by queueErrThenBye is already
// in place and must not be clobbered by re-running the ERR+BYE sequence,
// so this case falls through to the next Sender iteration without
// touching the queue or the FSM. Anything else is the first occurrence
// of a timeout and starts the ERR+BYE sequence.
func (r *Runtime) onUDPTimeout(wasBye, wasErr bool) {
	if wasBye {
		r.setState(session.StateEnd)
		r.resolvePending()
		return
	}
	if wasErr {
		return
	}
	r.printStderr("ERR: Request timed out.\n")
	if r.metrics != nil {
		r.metrics.ConfirmTimeouts.Inc()
	}
	r.queueErrThenBye("Request timed out.")
	r.setState(session.StateErr)
	r.resolvePending()
}
