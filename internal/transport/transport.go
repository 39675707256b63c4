// Package transport provides the bound, connected socket handle the core
// consumes. Dialing/listening itself lives in cmd/ipk24chat-client; this
// package's job starts once a socket already exists.
package transport

import "time"

// Kind distinguishes the two wire variants this spec defines.
type Kind uint8

const (
	UDP Kind = iota
	TCP
)

func (k Kind) String() string {
	if k == TCP {
		return "tcp"
	}
	return "udp"
}

// Transport is the minimal socket surface the three-actor runtime needs.
// For UDP it is a connected datagram socket (one peer); for TCP it is a
// stream socket framed line-by-line by the implementation.
type Transport interface {
	Kind() Kind

	// Send writes one complete frame (a UDP datagram, or one CRLF-terminated
	// TCP line including the terminator) to the peer.
	Send(frame []byte) error

	// SetReadDeadline arms the next RecvDatagram/ReadLine call's timeout,
	// mirroring net.Conn's deadline API; the Receiver's poll loop uses it.
	// The Sender's per-attempt timeout does not go through it.
	SetReadDeadline(t time.Time) error

	// RecvDatagram reads one inbound UDP datagram into buf. Only valid
	// when Kind() == UDP.
	RecvDatagram(buf []byte) (n int, err error)

	// ReadLine reads one CRLF-terminated TCP line, with the terminator
	// stripped. Only valid when Kind() == TCP.
	ReadLine() (line string, err error)

	Close() error
}
