package runtime

import (
	"context"
	"time"

	"github.com/ipk24chat/client/internal/session"
	"github.com/ipk24chat/client/internal/transport"
	"github.com/ipk24chat/client/internal/wire"
)

// runReceiver implements the Receiver actor's loop: a 1-second read
// deadline lets it notice the terminal state without a separate wakeup
// channel, in a poll-and-check-context shape.
func (r *Runtime) runReceiver(ctx context.Context) {
	isUDP := r.tr.Kind() == transport.UDP
	udpBuf := make([]byte, 65535)

	for {
		if ctx.Err() != nil || r.fsm.GetState() == session.StateEnd {
			return
		}

		if err := r.tr.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			r.log.Error("receiver: set read deadline", "err", err)
			return
		}

		var (
			rec *wire.ProtocolRecord
			err error
		)
		if isUDP {
			n, rerr := r.tr.RecvDatagram(udpBuf)
			if rerr != nil {
				if isTimeout(rerr) {
					continue
				}
				if ctx.Err() != nil || r.fsm.GetState() == session.StateEnd {
					return
				}
				r.log.Warn("receiver: datagram read failed", "err", rerr)
				continue
			}
			b := wire.NewBuffer()
			b.Append(udpBuf[:n]...)
			rec, err = wire.DisassembleUDP(b)
		} else {
			line, rerr := r.tr.ReadLine()
			if rerr != nil {
				if isTimeout(rerr) {
					continue
				}
				if ctx.Err() != nil || r.fsm.GetState() == session.StateEnd {
					return
				}
				r.log.Warn("receiver: line read failed", "err", rerr)
				return
			}
			rec, err = wire.DisassembleTCP(line)
		}
		if err != nil {
			r.log.Debug("receiver: malformed frame", "err", err)
		}

		r.handleInbound(rec, isUDP)
	}
}

// handleInbound runs the dedup check and dispatch-by-kind steps for one
// inbound frame.
func (r *Runtime) handleInbound(rec *wire.ProtocolRecord, isUDP bool) {
	if r.metrics != nil {
		r.metrics.FramesReceived.WithLabelValues(rec.Kind.String()).Inc()
	}

	if isUDP && rec.Kind != wire.KindConfirm {
		high, low := byte(rec.MsgID>>8), byte(rec.MsgID)
		r.seenIDs.Lock()
		dup := r.seenIDs.ContainsID(rec.Kind, high, low)
		if !dup {
			r.seenIDs.PushIDOnly(high, low, rec.Kind)
		}
		r.seenIDs.Unlock()
		if dup {
			r.sendConfirm(high, low)
			return
		}
	}

	if r.fsm.GetState() == session.StateStart && rec.Kind != wire.KindConfirm && rec.Kind != wire.KindReply {
		return
	}

	switch rec.Kind {
	case wire.KindConfirm:
		if isUDP {
			r.handleConfirm(rec)
		}
	case wire.KindReply:
		r.handleReply(rec, isUDP)
	case wire.KindMsg:
		r.printStdout("%s: %s\n", rec.DisplayName(), rec.Contents())
		if isUDP {
			r.sendConfirmFor(rec)
		}
	case wire.KindBye:
		if isUDP {
			r.sendConfirmFor(rec)
		}
		r.setState(session.StateEnd)
		r.senderEmptyQueueCond.Signal()
		r.resolvePending()
	case wire.KindErr:
		if isUDP {
			r.sendConfirmFor(rec)
		}
		r.printStderr("ERR FROM %s: %s\n", rec.DisplayName(), rec.Contents())
		r.queueBye()
		r.setState(session.StateErr)
		r.resolvePending()
	default: // KindUnknown, KindCorrupted
		if isUDP {
			r.sendConfirmFor(rec)
		}
		if r.metrics != nil {
			r.metrics.FramesMalformed.WithLabelValues(rec.Kind.String()).Inc()
		}
		r.queueErrThenBye("malformed frame received")
		r.setState(session.StateErr)
		r.resolvePending()
	}
}

// handleConfirm applies a CONFIRM to the current head.
func (r *Runtime) handleConfirm(rec *wire.ProtocolRecord) {
	r.queue.Lock()
	high, low, ok := r.queue.HeadID()
	headKind := r.queue.HeadKind()
	matchesHead := ok && uint16(high)<<8|uint16(low) == rec.MsgID
	isAuthHead := headKind == wire.KindAuth
	if matchesHead || isAuthHead {
		r.queue.MarkHeadConfirmed()
	}
	r.queue.Unlock()

	if !matchesHead && !isAuthHead {
		return
	}

	r.details.SetMsgCounter(rec.MsgID + 1)

	switch r.fsm.GetState() {
	case session.StateAuthSent:
		r.setState(session.StateW84Reply)
	case session.StateEndW84Conf:
		r.setState(session.StateEnd)
		r.resolvePending()
	default:
		// StateErrW84Conf falls here too: confirming the ERR itself
		// does not end the session, the queued BYE still has to go out.
		if headKind != wire.KindAuth {
			r.resolvePending()
		}
	}
	r.rec2senderCond.Signal()
}

// handleReply applies a REPLY: it concludes the AUTH or JOIN entry at the
// head (popping it either way) and moves the FSM accordingly.
func (r *Runtime) handleReply(rec *wire.ProtocolRecord, isUDP bool) {
	state := r.fsm.GetState()

	r.queue.Lock()
	headKind := r.queue.HeadKind()
	if headKind == wire.KindAuth || headKind == wire.KindJoin {
		r.queue.PopFront()
	}
	r.queue.Unlock()

	if isUDP {
		r.sendConfirmFor(rec)
	}

	switch state {
	case session.StateAuthW82BeSent, session.StateAuthSent, session.StateW84Reply:
		if rec.ReplyOK {
			r.setState(session.StateW84ReplyConf)
			r.printStderr("Success: %s\n", rec.Contents())
			r.setState(session.StateOpen)
		} else {
			r.printStderr("Failure: %s\n", rec.Contents())
			r.setState(session.StateStart)
		}
		r.resolvePending()
	case session.StateJoinAttempt:
		if rec.ReplyOK {
			r.printStderr("Success: %s\n", rec.Contents())
		} else {
			r.printStderr("Failure: %s\n", rec.Contents())
		}
		r.setState(session.StateOpen)
		r.resolvePending()
	}
	r.rec2senderCond.Signal()
}
