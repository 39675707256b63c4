package runtime_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ipk24chat/client/internal/logging"
	"github.com/ipk24chat/client/internal/runtime"
	"github.com/ipk24chat/client/internal/transport"
	"github.com/ipk24chat/client/internal/wire"
)

// newUDPLoopback dials a connected UDP transport against an in-process
// loopback "server" socket.
func newUDPLoopback(t *testing.T) (client transport.Transport, server *net.UDPConn) {
	t.Helper()
	srv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	conn, err := net.DialUDP("udp", nil, srv.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	return transport.NewUDP(conn), srv
}

func TestClient_Runtime_UDP_AuthSuccessThenExit(t *testing.T) {
	client, srv := newUDPLoopback(t)

	stdinR, stdinW := io.Pipe()
	var stdout, stderr bytes.Buffer

	log := logging.New(io.Discard, false)
	cfg := runtime.Config{UDPTimeout: 100 * time.Millisecond, UDPMaxRetries: 5}
	rt := runtime.New(cfg, client, log, nil, stdinR, &stdout, &stderr)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		buf := make([]byte, 65535)
		for {
			srv.SetReadDeadline(time.Now().Add(3 * time.Second))
			n, addr, err := srv.ReadFromUDP(buf)
			if err != nil {
				return
			}
			raw := wire.NewBuffer()
			raw.Append(buf[:n]...)
			rec, _ := wire.DisassembleUDP(raw)

			switch rec.Kind {
			case wire.KindAuth:
				msgID := rec.MsgID
				confirm := wire.AssembleUDP(wire.KindConfirm, msgID, wire.UDPFields{})
				srv.WriteToUDP(confirm.Bytes(), addr)
				reply := wire.AssembleUDP(wire.KindReply, 0, wire.UDPFields{ReplyOK: true, RefMsgID: msgID, Contents: "welcome"})
				srv.WriteToUDP(reply.Bytes(), addr)
			case wire.KindBye:
				confirm := wire.AssembleUDP(wire.KindConfirm, rec.MsgID, wire.UDPFields{})
				srv.WriteToUDP(confirm.Bytes(), addr)
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- rt.Run(ctx) }()

	_, err := stdinW.Write([]byte("/auth alice s3cr3t Alice\n"))
	require.NoError(t, err)
	require.NoError(t, stdinW.Close())

	select {
	case err := <-runErrCh:
		require.NoError(t, err)
	case <-time.After(4 * time.Second):
		t.Fatal("timed out waiting for runtime to exit")
	}

	<-serverDone
	require.Contains(t, stderr.String(), "Success: welcome")
}

func TestClient_Runtime_UDP_AuthRejected(t *testing.T) {
	client, srv := newUDPLoopback(t)

	stdinR, stdinW := io.Pipe()
	var stdout, stderr bytes.Buffer

	log := logging.New(io.Discard, false)
	cfg := runtime.Config{UDPTimeout: 100 * time.Millisecond, UDPMaxRetries: 5}
	rt := runtime.New(cfg, client, log, nil, stdinR, &stdout, &stderr)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		buf := make([]byte, 65535)
		for {
			srv.SetReadDeadline(time.Now().Add(3 * time.Second))
			n, addr, err := srv.ReadFromUDP(buf)
			if err != nil {
				return
			}
			raw := wire.NewBuffer()
			raw.Append(buf[:n]...)
			rec, _ := wire.DisassembleUDP(raw)

			switch rec.Kind {
			case wire.KindAuth:
				msgID := rec.MsgID
				confirm := wire.AssembleUDP(wire.KindConfirm, msgID, wire.UDPFields{})
				srv.WriteToUDP(confirm.Bytes(), addr)
				reply := wire.AssembleUDP(wire.KindReply, 0, wire.UDPFields{ReplyOK: false, RefMsgID: msgID, Contents: "bad secret"})
				srv.WriteToUDP(reply.Bytes(), addr)
			case wire.KindBye:
				confirm := wire.AssembleUDP(wire.KindConfirm, rec.MsgID, wire.UDPFields{})
				srv.WriteToUDP(confirm.Bytes(), addr)
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- rt.Run(ctx) }()

	_, err := stdinW.Write([]byte("/auth alice s3cr3t Alice\n"))
	require.NoError(t, err)
	require.NoError(t, stdinW.Close())

	select {
	case err := <-runErrCh:
		require.NoError(t, err)
	case <-time.After(4 * time.Second):
		t.Fatal("timed out waiting for runtime to exit")
	}

	<-serverDone
	require.Contains(t, stderr.String(), "Failure: bad secret")
}

// TestClient_Runtime_UDP_AuthNeverConfirmedReachesEnd reproduces a server
// that never sends a CONFIRM for anything. Once udp_max_retries is
// exhausted on the AUTH, the Sender must queue ERR then BYE, time out the
// ERR exactly once without re-queuing another ERR+BYE pair behind it, and
// still drive the session to StateEnd via the BYE's own retry exhaustion.
func TestClient_Runtime_UDP_AuthNeverConfirmedReachesEnd(t *testing.T) {
	client, srv := newUDPLoopback(t)

	stdinR, stdinW := io.Pipe()
	var stdout, stderr bytes.Buffer

	log := logging.New(io.Discard, false)
	cfg := runtime.Config{UDPTimeout: 15 * time.Millisecond, UDPMaxRetries: 2}
	rt := runtime.New(cfg, client, log, nil, stdinR, &stdout, &stderr)

	// Drain everything the client sends and never answer: every queued
	// frame (AUTH, then ERR, then BYE) has to exhaust its retry budget on
	// its own.
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		buf := make([]byte, 65535)
		for {
			srv.SetReadDeadline(time.Now().Add(3 * time.Second))
			if _, _, err := srv.ReadFromUDP(buf); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- rt.Run(ctx) }()

	_, err := stdinW.Write([]byte("/auth alice s3cr3t Alice\n"))
	require.NoError(t, err)
	require.NoError(t, stdinW.Close())

	select {
	case err := <-runErrCh:
		require.NoError(t, err)
	case <-time.After(4 * time.Second):
		t.Fatal("timed out waiting for runtime to exit")
	}

	require.Equal(t, 1, strings.Count(stderr.String(), "ERR: Request timed out."),
		"the ERR timing out must not re-trigger another ERR+BYE round")
}

// TestClient_Runtime_UDP_NowFuncFastForwardsRetries uses a clock parked far
// past every deadline to collapse a nominally multi-second retry sequence
// into a near-instant one, the way a deterministic test of udp_max_retries
// exhaustion is meant to run without real sleeping.
func TestClient_Runtime_UDP_NowFuncFastForwardsRetries(t *testing.T) {
	client, srv := newUDPLoopback(t)

	stdinR, stdinW := io.Pipe()
	var stdout, stderr bytes.Buffer

	log := logging.New(io.Discard, false)
	// Each call jumps an hour further ahead, so the elapsed-since-SentAt
	// check in nextWait always sees a deadline that has long since passed.
	base := time.Now()
	var calls int64
	fastClock := func() time.Time {
		n := atomic.AddInt64(&calls, 1)
		return base.Add(time.Duration(n) * time.Hour)
	}
	cfg := runtime.Config{
		UDPTimeout:    2 * time.Second,
		UDPMaxRetries: 3,
		NowFunc:       fastClock,
	}
	rt := runtime.New(cfg, client, log, nil, stdinR, &stdout, &stderr)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		buf := make([]byte, 65535)
		for {
			srv.SetReadDeadline(time.Now().Add(3 * time.Second))
			if _, _, err := srv.ReadFromUDP(buf); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runErrCh := make(chan error, 1)
	start := time.Now()
	go func() { runErrCh <- rt.Run(ctx) }()

	_, err := stdinW.Write([]byte("/auth alice s3cr3t Alice\n"))
	require.NoError(t, err)
	require.NoError(t, stdinW.Close())

	select {
	case err := <-runErrCh:
		require.NoError(t, err)
	case <-time.After(4 * time.Second):
		t.Fatal("timed out waiting for runtime to exit")
	}

	// At UDPTimeout=2s with 3 retries across AUTH/ERR/BYE, unshrunk waits
	// would take well over ten seconds; the fast-forwarded clock should
	// let the whole exchange finish in a small fraction of that.
	require.Less(t, time.Since(start), 2*time.Second)
}
