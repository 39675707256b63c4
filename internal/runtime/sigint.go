package runtime

import (
	"context"
	"time"

	"github.com/ipk24chat/client/internal/session"
)

// handleSigint sets StateSigintBye, purges the queue and enqueues a lone
// BYE (queueBye), then lets the Sender drive the session to the terminal
// state. Local /exit runs the same purge-then-BYE sequence; the two differ
// only in the state they set. Idempotent: re-entry after the state has
// already left StateSigintBye is a no-op.
func (r *Runtime) handleSigint() {
	if r.fsm.GetState() == session.StateEnd {
		return
	}

	r.log.Info("signal: SIGINT received, shutting down")
	r.setState(session.StateSigintBye)
	r.mainCond.Signal()

	r.queueBye()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for r.fsm.GetState() != session.StateEnd {
		if ctx.Err() != nil {
			r.setState(session.StateEnd)
			break
		}
		r.mainCond.Wait(ctx, r.done)
	}

	r.close()
}
