package transport

import (
	"net"
	"time"
)

// udpTransport wraps an already-connected *net.UDPConn (connect-UDP, so
// Write always targets the one configured peer and Read implicitly
// filters to datagrams from it on most platforms).
type udpTransport struct {
	conn *net.UDPConn
}

// NewUDP wraps conn as a UDP Transport. conn must already be connected to
// the server address (e.g. via net.DialUDP).
func NewUDP(conn *net.UDPConn) Transport {
	return &udpTransport{conn: conn}
}

func (u *udpTransport) Kind() Kind { return UDP }

func (u *udpTransport) Send(frame []byte) error {
	_, err := u.conn.Write(frame)
	return err
}

func (u *udpTransport) SetReadDeadline(t time.Time) error {
	return u.conn.SetReadDeadline(t)
}

func (u *udpTransport) RecvDatagram(buf []byte) (int, error) {
	return u.conn.Read(buf)
}

func (u *udpTransport) ReadLine() (string, error) {
	panic("transport: ReadLine called on a UDP transport")
}

func (u *udpTransport) Close() error { return u.conn.Close() }
