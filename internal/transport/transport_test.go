package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_Transport_UDP_SendAndRecv(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.DialUDP("udp", nil, serverConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer clientConn.Close()

	tr := NewUDP(clientConn)
	require.Equal(t, UDP, tr.Kind())

	require.NoError(t, tr.Send([]byte("hello")))

	buf := make([]byte, 64)
	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := serverConn.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}

func TestClient_Transport_UDP_ReadDeadlineTimesOut(t *testing.T) {
	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer serverConn.Close()

	clientConn, err := net.DialUDP("udp", nil, serverConn.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer clientConn.Close()

	tr := NewUDP(clientConn)
	require.NoError(t, tr.SetReadDeadline(time.Now().Add(50*time.Millisecond)))

	_, err = tr.RecvDatagram(make([]byte, 64))
	require.Error(t, err)
	ne, ok := err.(interface{ Timeout() bool })
	require.True(t, ok)
	require.True(t, ne.Timeout())
}

func TestClient_Transport_TCP_SendAndReadLine(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		conn, _ := ln.Accept()
		acceptCh <- conn
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	serverConn := <-acceptCh
	defer serverConn.Close()

	client := NewTCP(clientConn.(*net.TCPConn))
	require.Equal(t, TCP, client.Kind())
	require.NoError(t, client.Send([]byte("BYE\r\n")))

	server := NewTCP(serverConn.(*net.TCPConn))
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := server.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "BYE", line)
}
