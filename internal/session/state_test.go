package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_Session_FSM_StartsInStateStart(t *testing.T) {
	f := NewFSM()
	require.Equal(t, StateStart, f.GetState())
}

func TestClient_Session_FSM_SetStateReturnsPrevious(t *testing.T) {
	f := NewFSM()
	prev := f.SetState(StateOpen)
	require.Equal(t, StateStart, prev)
	require.Equal(t, StateOpen, f.GetState())
}

func TestClient_Session_FSM_CompareAndSetStateOnlyOnMatch(t *testing.T) {
	f := NewFSM()
	f.SetState(StateAuthW82BeSent)

	require.False(t, f.CompareAndSetState(StateOpen, StateAuthSent))
	require.Equal(t, StateAuthW82BeSent, f.GetState())

	require.True(t, f.CompareAndSetState(StateAuthW82BeSent, StateAuthSent))
	require.Equal(t, StateAuthSent, f.GetState())
}

func TestClient_Session_State_StringNames(t *testing.T) {
	cases := map[State]string{
		StateStart:        "START",
		StateAuthW82BeSent: "AUTH_W82_BE_SENT",
		StateOpen:          "OPEN",
		StateJoinAttempt:   "JOIN_ATEMPT",
		StateEnd:           "END",
	}
	for state, want := range cases {
		require.Equal(t, want, state.String())
	}
	require.Equal(t, "UNKNOWN", State(0xFF).String())
}

func TestClient_Session_Details_DisplayNameAndChannel(t *testing.T) {
	d := &Details{}
	d.SetDisplayName("Alice")
	d.SetChannelID("general")
	require.Equal(t, "Alice", d.DisplayName())
	require.Equal(t, "general", d.ChannelID())
}

func TestClient_Session_Details_NextMsgIDIncrements(t *testing.T) {
	d := &Details{}
	require.EqualValues(t, 0, d.NextMsgID())
	require.EqualValues(t, 1, d.NextMsgID())
	require.EqualValues(t, 2, d.NextMsgID())
}

func TestClient_Session_Details_SetMsgCounterOnlyAdvances(t *testing.T) {
	d := &Details{}
	d.SetMsgCounter(10)
	require.EqualValues(t, 10, d.NextMsgID())

	d.SetMsgCounter(5) // stale CONFIRM, must not rewind
	require.EqualValues(t, 11, d.NextMsgID())
}
