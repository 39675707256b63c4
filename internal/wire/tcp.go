package wire

import (
	"errors"
	"strings"
)

// ErrCorrupted marks a TCP line whose keyword ordering didn't match any
// known grammar. It is returned alongside a KindCorrupted record rather
// than aborting the disassembly.
var ErrCorrupted = errors.New("wire: corrupted TCP frame")

// TCPFields carries the kind-specific payload used to assemble an outbound
// TCP frame; see AssembleUDP's UDPFields for the analogous UDP type.
type TCPFields struct {
	Username    string
	DisplayName string
	Secret      string
	Channel     string
	Contents    string
	ReplyOK     bool
}

// AssembleTCP renders one ASCII, CRLF-terminated TCP frame for kind. TCP
// carries no message id on the wire; the caller still tracks
// msg_counter locally for logging/metrics.
func AssembleTCP(kind MessageKind, f TCPFields) []byte {
	var s string
	switch kind {
	case KindAuth:
		s = "AUTH " + f.Username + " AS " + f.DisplayName + " USING " + f.Secret
	case KindJoin:
		s = "JOIN " + f.Channel + " AS " + f.DisplayName
	case KindMsg:
		s = "MSG FROM " + f.DisplayName + " IS " + f.Contents
	case KindErr:
		s = "ERR FROM " + f.DisplayName + " IS " + f.Contents
	case KindReply:
		result := "NOK"
		if f.ReplyOK {
			result = "OK"
		}
		s = "REPLY " + result + " IS " + f.Contents
	case KindBye:
		s = "BYE"
	}
	return []byte(s + "\r\n")
}

// DisassembleTCP parses one already-unframed TCP line (CRLF stripped) into
// a ProtocolRecord. Any keyword-ordering mismatch yields a KindCorrupted
// record and ErrCorrupted; the codec never aborts the process.
func DisassembleTCP(line string) (*ProtocolRecord, error) {
	line = strings.TrimRight(line, "\r\n")
	buf := NewBuffer()
	buf.AppendString(line)
	r := &ProtocolRecord{buf: buf}

	corrupted := func() (*ProtocolRecord, error) {
		r.Kind = KindCorrupted
		return r, ErrCorrupted
	}

	kw, rest, ok := cutPrefixWord(line)
	if !ok {
		return corrupted()
	}

	switch strings.ToUpper(kw) {
	case "AUTH":
		user, rest, ok := cutFold(rest, " AS ")
		if !ok {
			return corrupted()
		}
		display, secret, ok := cutFold(rest, " USING ")
		if !ok {
			return corrupted()
		}
		r.Kind = KindAuth
		r.Field0 = sliceOf(line, user)
		r.Field1 = sliceOf(line, display)
		r.Field2 = sliceOf(line, secret)
		return r, nil

	case "JOIN":
		channel, display, ok := cutFold(rest, " AS ")
		if !ok {
			return corrupted()
		}
		r.Kind = KindJoin
		r.Field0 = sliceOf(line, channel)
		r.Field1 = sliceOf(line, display)
		return r, nil

	case "MSG", "ERR":
		fromRest, ok := cutFoldPrefix(rest, "FROM ")
		if !ok {
			return corrupted()
		}
		display, contents, ok := cutFold(fromRest, " IS ")
		if !ok {
			return corrupted()
		}
		if strings.ToUpper(kw) == "MSG" {
			r.Kind = KindMsg
		} else {
			r.Kind = KindErr
		}
		r.Field0 = sliceOf(line, display)
		r.Field1 = sliceOf(line, contents)
		return r, nil

	case "REPLY":
		result, contents, ok := cutFold(rest, " IS ")
		if !ok {
			return corrupted()
		}
		switch {
		case strings.EqualFold(result, "OK"):
			r.ReplyOK = true
		case strings.EqualFold(result, "NOK"):
			r.ReplyOK = false
		default:
			return corrupted()
		}
		r.Kind = KindReply
		r.Field2 = sliceOf(line, contents)
		return r, nil

	case "BYE":
		if rest != "" {
			return corrupted()
		}
		r.Kind = KindBye
		return r, nil
	}

	return corrupted()
}

// cutPrefixWord pulls the first whitespace-delimited token off s.
func cutPrefixWord(s string) (word, rest string, ok bool) {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, "", s != ""
	}
	return s[:i], s[i+1:], true
}

// cutFold splits s on the first case-insensitive occurrence of sep,
// returning the parts before and after. sep is expected to include its
// surrounding delimiters (e.g. " AS ").
func cutFold(s, sep string) (before, after string, ok bool) {
	up := strings.ToUpper(s)
	idx := strings.Index(up, strings.ToUpper(sep))
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

// cutFoldPrefix requires s to begin with prefix (case-insensitively) and
// returns the remainder.
func cutFoldPrefix(s, prefix string) (rest string, ok bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

// sliceOf computes a BytesSlice describing where `value` (a substring
// previously extracted from `line` by contiguous cuts) lives within the
// record's backing buffer, which holds an exact copy of line.
func sliceOf(line, value string) BytesSlice {
	off := strings.Index(line, value)
	if off < 0 {
		off = 0
	}
	return BytesSlice{Start: off, Len: len(value)}
}
