// Package session implements the fixed session finite-state machine and
// the session-scoped details (display name, channel, message counter).
package session

import "sync"

// State is one of the fixed FSM states. The zero value is StateStart,
// the FSM's entry state.
type State uint8

const (
	StateStart State = iota
	StateAuthW82BeSent // auth queued, not yet on wire
	StateAuthSent      // auth transmitted, awaiting CONFIRM on UDP
	StateW84Reply      // auth confirmed (UDP) or sent (TCP); awaiting REPLY
	StateW84ReplyConf  // REPLY received; its CONFIRM is enqueued before Open
	StateOpen
	StateJoinAttempt // JOIN sent; awaiting REPLY
	StateEmptyQBye   // drain-then-exit after local /exit
	StateByeRecv     // server sent BYE; drain-and-exit
	StateErr         // local or remote protocol error -> send BYE
	StateErrW84Conf  // ERR path, UDP: ERR sent, awaiting its CONFIRM
	StateEndW84Conf  // BYE sent on UDP, awaiting CONFIRM
	StateSigintBye   // signal arrived; drop queue, send BYE
	StateEnd         // terminal
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateAuthW82BeSent:
		return "AUTH_W82_BE_SENT"
	case StateAuthSent:
		return "AUTH_SENT"
	case StateW84Reply:
		return "W84_REPLY"
	case StateW84ReplyConf:
		return "W84_REPLY_CONF"
	case StateOpen:
		return "OPEN"
	case StateJoinAttempt:
		return "JOIN_ATEMPT"
	case StateEmptyQBye:
		return "EMPTY_Q_BYE"
	case StateByeRecv:
		return "BYE_RECV"
	case StateErr:
		return "ERR"
	case StateErrW84Conf:
		return "ERR_W84_CONF"
	case StateEndW84Conf:
		return "END_W84_CONF"
	case StateSigintBye:
		return "SIGINT_BYE"
	case StateEnd:
		return "END"
	}
	return "UNKNOWN"
}

// FSM wraps State behind a mutex with get/set accessors. It is mutated
// only through these accessors, and its mutex is always acquired after
// the queue mutex, never the other way around.
type FSM struct {
	mu    sync.Mutex
	state State
}

// NewFSM returns an FSM in StateStart.
func NewFSM() *FSM { return &FSM{state: StateStart} }

// GetState returns the current state.
func (f *FSM) GetState() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetState overwrites the current state and returns the previous one.
func (f *FSM) SetState(s State) (prev State) {
	f.mu.Lock()
	prev = f.state
	f.state = s
	f.mu.Unlock()
	return prev
}

// CompareAndSetState sets the state to next only if the current state is
// want, returning whether the swap happened. Used by transitions that
// must not clobber a state change that raced in from another actor.
func (f *FSM) CompareAndSetState(want, next State) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != want {
		return false
	}
	f.state = next
	return true
}

// Details holds the mutable session-scoped fields. The display name and
// channel id are recorded when the AUTH or JOIN carrying them is queued,
// not when the server's REPLY accepts it.
type Details struct {
	mu          sync.Mutex
	displayName string
	channelID   string
	msgCounter  uint16
}

// DisplayName returns the current display name.
func (d *Details) DisplayName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.displayName
}

// SetDisplayName updates the display name. The Main actor calls it when it
// queues an AUTH (the value is kept even if the server rejects that AUTH)
// and on a local /rename, which never produces an on-wire frame.
func (d *Details) SetDisplayName(name string) {
	d.mu.Lock()
	d.displayName = name
	d.mu.Unlock()
}

// ChannelID returns the channel id of the most recently queued JOIN; it is
// kept even if the server rejects that JOIN.
func (d *Details) ChannelID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channelID
}

// SetChannelID updates the channel id.
func (d *Details) SetChannelID(id string) {
	d.mu.Lock()
	d.channelID = id
	d.mu.Unlock()
}

// NextMsgID returns the current msg_counter and increments it. Outbound
// UDP ids and the TCP-only local counter both use this single
// monotonically non-decreasing sequence.
func (d *Details) NextMsgID() uint16 {
	d.mu.Lock()
	id := d.msgCounter
	d.msgCounter++
	d.mu.Unlock()
	return id
}

// SetMsgCounter advances msg_counter to v if v is larger, and otherwise
// leaves it unchanged — used by the Receiver on UDP CONFIRM, which
// advances msg_counter to msg_id+1.
func (d *Details) SetMsgCounter(v uint16) {
	d.mu.Lock()
	if v > d.msgCounter {
		d.msgCounter = v
	}
	d.mu.Unlock()
}
