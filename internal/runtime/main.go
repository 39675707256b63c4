package runtime

import (
	"context"

	"github.com/ipk24chat/client/internal/input"
	"github.com/ipk24chat/client/internal/session"
	"github.com/ipk24chat/client/internal/wire"
)

const helpText = `Available commands:
  /auth {username} {secret} {display-name}   authenticate and open a session
  /join {channel-id}                          join a channel
  /rename {display-name}                      change your local display name
  /help                                       show this text
  /exit                                       leave gracefully
Anything else is sent as a chat message.
`

// guardText is the pre-auth guard message for commands that require an
// open session.
const guardText = "ERR: Not authenticated. Use /help for help.\n"

// runMain implements the Main actor's read-parse-dispatch loop.
func (r *Runtime) runMain(ctx context.Context) {
	for {
		if ctx.Err() != nil || r.fsm.GetState() == session.StateEnd {
			return
		}

		line, eof := r.lines.ReadLine()
		if line == "" && eof {
			r.exitGracefully(ctx)
			return
		}

		cmd := input.ParseUserCommand(line)
		switch cmd.Kind {
		case wire.CommandHelp:
			r.printStdout("%s", helpText)

		case wire.CommandMissing:
			r.printStderr("ERR: missing or malformed command arguments.\n")

		case wire.CommandExit:
			r.exitGracefully(ctx)
			return

		case wire.CommandRename:
			if reason := input.ValidateCommand(cmd); reason != "" {
				r.printStderr("ERR: %s\n", reason)
				continue
			}
			r.details.SetDisplayName(cmd.DisplayName)

		case wire.CommandAuth:
			if reason := input.ValidateCommand(cmd); reason != "" {
				r.printStderr("ERR: %s\n", reason)
				continue
			}
			r.sendAuth(ctx, cmd)

		case wire.CommandJoin:
			if r.fsm.GetState() != session.StateOpen {
				r.printStderr(guardText)
				continue
			}
			if reason := input.ValidateCommand(cmd); reason != "" {
				r.printStderr("ERR: %s\n", reason)
				continue
			}
			r.sendJoin(ctx, cmd)

		case wire.CommandMsg:
			if r.fsm.GetState() != session.StateOpen {
				r.printStderr(guardText)
				continue
			}
			if reason := input.ValidateCommand(cmd); reason != "" {
				r.printStderr("ERR: %s\n", reason)
				continue
			}
			r.sendChatMessage(ctx, cmd)
		}

		if eof {
			r.exitGracefully(ctx)
			return
		}
	}
}

func (r *Runtime) sendAuth(ctx context.Context, cmd input.Command) {
	frame := r.assemble(wire.KindAuth, frameFields{
		Username:    cmd.Username,
		Secret:      cmd.Secret,
		DisplayName: cmd.DisplayName,
	})
	r.details.SetDisplayName(cmd.DisplayName)

	r.armPending()
	r.queue.Lock()
	r.queue.PushBack(frame, wire.FlagAuth, wire.KindAuth)
	r.queue.Unlock()
	r.setState(session.StateAuthW82BeSent)
	r.senderEmptyQueueCond.Signal()

	r.awaitOutcome(ctx)
}

func (r *Runtime) sendJoin(ctx context.Context, cmd input.Command) {
	frame := r.assemble(wire.KindJoin, frameFields{
		Channel:     cmd.Channel,
		DisplayName: r.details.DisplayName(),
	})
	r.details.SetChannelID(cmd.Channel)

	r.armPending()
	r.queue.Lock()
	r.queue.PushBack(frame, wire.FlagNone, wire.KindJoin)
	r.queue.Unlock()
	r.senderEmptyQueueCond.Signal()

	r.awaitOutcome(ctx)
}

func (r *Runtime) sendChatMessage(ctx context.Context, cmd input.Command) {
	frame := r.assemble(wire.KindMsg, frameFields{
		DisplayName: r.details.DisplayName(),
		Contents:    cmd.Contents,
	})

	r.armPending()
	r.queue.Lock()
	r.queue.PushBack(frame, wire.FlagNone, wire.KindMsg)
	r.queue.Unlock()
	r.senderEmptyQueueCond.Signal()

	r.awaitOutcome(ctx)
}

// awaitOutcome blocks Main until the just-enqueued message reaches a
// stable outcome or the session ends.
func (r *Runtime) awaitOutcome(ctx context.Context) {
	for !r.pendingIsResolved() && r.fsm.GetState() != session.StateEnd {
		if ctx.Err() != nil {
			return
		}
		r.mainCond.Wait(ctx, r.done)
	}
}

// exitGracefully implements local /exit and end-of-input: drop the
// queue, enqueue BYE, wait for the terminal state. Frames still queued at
// that moment, including CONFIRMs not yet sent, are discarded, not sent.
func (r *Runtime) exitGracefully(ctx context.Context) {
	state := r.fsm.GetState()
	if state == session.StateEnd {
		return
	}
	r.queueBye()
	r.setState(session.StateEmptyQBye)
	r.senderEmptyQueueCond.Signal()

	for r.fsm.GetState() != session.StateEnd {
		if ctx.Err() != nil {
			return
		}
		r.mainCond.Wait(ctx, r.done)
	}
}
