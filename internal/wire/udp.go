package wire

import "errors"

// Sentinel errors classifying why a received UDP frame failed to
// disassemble. Callers (the Receiver, and its metrics) use errors.Is
// against these instead of string matching.
var (
	ErrShortPacket    = errors.New("wire: packet shorter than header")
	ErrTruncatedField = errors.New("wire: field missing terminator before end of packet")
)

// UDPFields carries the kind-specific payload used to assemble an outbound
// UDP frame. Only the fields relevant to the target kind are read.
type UDPFields struct {
	Username    string // AUTH
	DisplayName string // AUTH, JOIN, MSG, ERR
	Secret      string // AUTH
	Channel     string // JOIN
	Contents    string // MSG, ERR, REPLY
	ReplyOK     bool   // REPLY
	RefMsgID    uint16 // REPLY
}

// AssembleUDP builds the wire bytes for one UDP frame: kind:u8 | msg_id:u16
// BE | body. For CONFIRM, msgID is the id being confirmed and is written
// immediately. For every other kind, the caller is expected to pass 0;
// the Sender stamps the real id in place just before transmission via
// Buffer.PatchUint16BE, so retransmissions of the same queued entry keep
// the same id.
func AssembleUDP(kind MessageKind, msgID uint16, f UDPFields) *Buffer {
	b := NewBuffer()
	b.Append(byte(kind), byte(msgID>>8), byte(msgID))

	switch kind {
	case KindConfirm, KindBye:
		// no body

	case KindReply:
		var result byte
		if f.ReplyOK {
			result = 1
		}
		b.Append(result, byte(f.RefMsgID>>8), byte(f.RefMsgID))
		b.AppendString(f.Contents)
		b.AppendZero()

	case KindAuth:
		b.AppendString(f.Username)
		b.AppendZero()
		b.AppendString(f.DisplayName)
		b.AppendZero()
		b.AppendString(f.Secret)
		b.AppendZero()

	case KindJoin:
		b.AppendString(f.Channel)
		b.AppendZero()
		b.AppendString(f.DisplayName)
		b.AppendZero()

	case KindMsg, KindErr:
		b.AppendString(f.DisplayName)
		b.AppendZero()
		b.AppendString(f.Contents)
		b.AppendZero()
	}

	return b
}

// DisassembleUDP parses one UDP datagram already copied into buf (buf owns
// the bytes so the returned record's slices stay valid). Unknown kinds or
// malformed bodies never abort: a malformed body yields a KindCorrupted
// record with a non-nil err, and an unknown kind byte yields a KindUnknown
// record with a nil err, so the caller can decide what to do.
func DisassembleUDP(buf *Buffer) (*ProtocolRecord, error) {
	raw := buf.Bytes()
	if len(raw) < 3 {
		return &ProtocolRecord{Kind: KindCorrupted, buf: buf}, ErrShortPacket
	}

	kind := MessageKind(raw[0])
	msgID := uint16(raw[1])<<8 | uint16(raw[2])
	r := &ProtocolRecord{Kind: kind, MsgID: msgID, buf: buf}

	off := 3
	field := func() (BytesSlice, bool) {
		s, next, ok := findZero(raw, off)
		off = next
		return s, ok
	}

	switch kind {
	case KindConfirm, KindBye:
		return r, nil

	case KindReply:
		if len(raw) < off+3 {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		r.ReplyOK = raw[off] != 0
		refID := uint16(raw[off+1])<<8 | uint16(raw[off+2])
		off += 3
		contents, ok := field()
		if !ok {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		r.Field2 = contents
		r.setRefMsgID(refID)
		return r, nil

	case KindAuth:
		username, ok := field()
		if !ok {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		display, ok := field()
		if !ok {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		secret, ok := field()
		if !ok {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		r.Field0, r.Field1, r.Field2 = username, display, secret
		return r, nil

	case KindJoin:
		channel, ok := field()
		if !ok {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		display, ok := field()
		if !ok {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		r.Field0, r.Field1 = channel, display
		return r, nil

	case KindMsg, KindErr:
		display, ok := field()
		if !ok {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		contents, ok := field()
		if !ok {
			r.Kind = KindCorrupted
			return r, ErrTruncatedField
		}
		r.Field0, r.Field1 = display, contents
		return r, nil

	default:
		r.Kind = KindUnknown
		return r, nil
	}
}

// setRefMsgID stashes a REPLY's ref_msg_id outside the slice-based fields,
// since it is a fixed 2-byte integer rather than a NUL-terminated region.
func (r *ProtocolRecord) setRefMsgID(id uint16) {
	r.refMsgID = id
	r.hasRefMsgID = true
}
