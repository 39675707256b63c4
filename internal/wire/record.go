package wire

import "fmt"

// MessageKind is the wire-level message tag (one byte on the UDP variant).
type MessageKind uint8

const (
	KindConfirm MessageKind = 0x00
	KindReply   MessageKind = 0x01
	KindAuth    MessageKind = 0x02
	KindJoin    MessageKind = 0x03
	KindMsg     MessageKind = 0x04
	KindErr     MessageKind = 0xFE
	KindBye     MessageKind = 0xFF

	// KindUnknown and KindCorrupted exist only in memory; they are never
	// written to the wire and are produced solely by a failed disassembly.
	KindUnknown   MessageKind = 0xF0
	KindCorrupted MessageKind = 0xF1
)

func (k MessageKind) String() string {
	switch k {
	case KindConfirm:
		return "CONFIRM"
	case KindReply:
		return "REPLY"
	case KindAuth:
		return "AUTH"
	case KindJoin:
		return "JOIN"
	case KindMsg:
		return "MSG"
	case KindErr:
		return "ERR"
	case KindBye:
		return "BYE"
	case KindUnknown:
		return "UNKNOWN"
	case KindCorrupted:
		return "CORRUPTED"
	}
	return fmt.Sprintf("MessageKind(0x%02X)", uint8(k))
}

// CommandKind tags a locally-originated command before it is encoded onto
// the wire. It never appears in an inbound frame.
type CommandKind uint8

const (
	CommandNone CommandKind = iota
	CommandAuth
	CommandJoin
	CommandRename
	CommandHelp
	CommandConf
	CommandMsg
	CommandErr
	CommandExit
	// CommandMissing marks a recognized command whose required tokens
	// were absent (e.g. "/auth alice" with no secret/display name).
	CommandMissing
)

func (k CommandKind) String() string {
	switch k {
	case CommandNone:
		return "NONE"
	case CommandAuth:
		return "AUTH"
	case CommandJoin:
		return "JOIN"
	case CommandRename:
		return "RENAME"
	case CommandHelp:
		return "HELP"
	case CommandConf:
		return "CONF"
	case CommandMsg:
		return "MSG"
	case CommandErr:
		return "ERR"
	case CommandExit:
		return "EXIT"
	case CommandMissing:
		return "MISSING"
	}
	return fmt.Sprintf("CommandKind(%d)", uint8(k))
}

// MessageFlag enumerates a queued entry's resend/drop behavior, used by
// the FSM and Sender.
type MessageFlag uint8

const (
	FlagNone MessageFlag = iota
	FlagDoNotResend
	FlagAuth
	FlagRejected
	FlagConfirmed
	FlagErr
	FlagConfirm
	FlagBye
	FlagNokReply
)

// ProtocolRecord is a tagged record carrying a MessageKind (or, while being
// built locally, a CommandKind), a 16-bit message ID, and up to three named
// byte-slice fields. It never owns the bytes its slices reference; callers
// must keep the backing Buffer alive for as long as the record is used.
//
// Field naming is role-dependent. Use the accessor matching Kind/Command:
// for REPLY, only Field2 (contents) is used, while the result byte is held
// in ReplyOK and ref_msg_id behind RefMsgID(); for AUTH, Field0..2 are
// (username, display_name, secret); for JOIN, (channel, display_name); for
// MSG/ERR, (display_name, contents). CONFIRM and BYE carry no fields.
type ProtocolRecord struct {
	Kind    MessageKind
	Command CommandKind
	MsgID   uint16

	ReplyOK bool // REPLY only: true if the result byte indicated success

	Field0 BytesSlice
	Field1 BytesSlice
	Field2 BytesSlice

	refMsgID    uint16 // REPLY only: the message ID this reply refers to
	hasRefMsgID bool

	buf *Buffer // backing store for Field0..2; nil for records built without one
}

// Username returns Field0 resolved against the record's backing buffer.
// Valid for AUTH records.
func (r *ProtocolRecord) Username() string { return r.Field0.StringOf(r.buf) }

// Channel returns Field0 resolved against the record's backing buffer.
// Valid for JOIN records.
func (r *ProtocolRecord) Channel() string { return r.Field0.StringOf(r.buf) }

// DisplayName returns the display-name field resolved against the record's
// backing buffer. Valid for AUTH (Field1), JOIN (Field1), MSG/ERR (Field0).
func (r *ProtocolRecord) DisplayName() string {
	switch r.Kind {
	case KindMsg, KindErr:
		return r.Field0.StringOf(r.buf)
	default:
		return r.Field1.StringOf(r.buf)
	}
}

// Secret returns Field2 resolved against the record's backing buffer.
// Valid for AUTH records.
func (r *ProtocolRecord) Secret() string { return r.Field2.StringOf(r.buf) }

// Contents returns the human-readable payload resolved against the
// record's backing buffer. Valid for MSG/ERR (Field1) and REPLY (Field2).
func (r *ProtocolRecord) Contents() string {
	switch r.Kind {
	case KindReply:
		return r.Field2.StringOf(r.buf)
	default:
		return r.Field1.StringOf(r.buf)
	}
}

// RefMsgID returns the message ID a REPLY record refers to.
func (r *ProtocolRecord) RefMsgID() uint16 { return r.refMsgID }
