// Command ipk24chat-client is the CLI entry point for the chat client:
// flag parsing, hostname resolution, and socket dial/connect happen here;
// the protocol core itself lives in internal/runtime.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ipk24chat/client/internal/logging"
	"github.com/ipk24chat/client/internal/metrics"
	"github.com/ipk24chat/client/internal/runtime"
	"github.com/ipk24chat/client/internal/transport"
)

const defaultPort = 4567

var (
	server        = flag.String("s", "", "server address (mandatory)")
	transportFlag = flag.String("t", "", "transport: udp or tcp (mandatory)")
	port          = flag.Uint("p", defaultPort, "server port")
	timeoutMs     = flag.Uint("d", 250, "UDP confirmation timeout in milliseconds")
	maxRetries    = flag.Uint("r", 3, "UDP max retransmissions")
	verbose       = flag.Bool("v", false, "enable verbose diagnostic logging")
	metricsAddr   = flag.String("metrics-addr", "", "address to expose prometheus metrics on (empty disables)")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log := logging.New(os.Stderr, *verbose)

	if *server == "" || (*transportFlag != "udp" && *transportFlag != "tcp") {
		flag.Usage()
		os.Exit(2)
	}

	var m *metrics.Metrics
	if *metricsAddr != "" {
		m = metrics.New()
		go serveMetrics(log, m, *metricsAddr)
	}

	tr, err := dial(*transportFlag, *server, uint16(*port))
	if err != nil {
		log.Error("failed to connect", "err", err)
		os.Exit(1)
	}

	cfg := runtime.Config{
		UDPTimeout:    time.Duration(*timeoutMs) * time.Millisecond,
		UDPMaxRetries: uint8(*maxRetries),
	}
	rt := runtime.New(cfg, tr, log, m, os.Stdin, os.Stdout, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Error("runtime error", "err", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "usage: %s -s HOST -t {udp|tcp} [-p PORT] [-d MS] [-r N] [-v] [-metrics-addr ADDR]\n", os.Args[0])
	flag.PrintDefaults()
}

// dial resolves and connects a transport handle for the chosen variant.
func dial(kind, host string, port uint16) (transport.Transport, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	switch kind {
	case "udp":
		raddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, fmt.Errorf("resolve udp address: %w", err)
		}
		conn, err := net.DialUDP("udp", nil, raddr)
		if err != nil {
			return nil, fmt.Errorf("dial udp: %w", err)
		}
		return transport.NewUDP(conn), nil
	case "tcp":
		raddr, err := net.ResolveTCPAddr("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("resolve tcp address: %w", err)
		}
		conn, err := net.DialTCP("tcp", nil, raddr)
		if err != nil {
			return nil, fmt.Errorf("dial tcp: %w", err)
		}
		return transport.NewTCP(conn), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

func serveMetrics(log *slog.Logger, m *metrics.Metrics, addr string) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("failed to start prometheus metrics listener", "err", err)
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	log.Info("prometheus metrics server started", "addr", listener.Addr().String())
	if err := http.Serve(listener, mux); err != nil {
		log.Error("prometheus metrics server stopped", "err", err)
	}
}
