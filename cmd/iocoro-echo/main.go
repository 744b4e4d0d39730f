// Command iocoro-echo runs a TCP echo server on the reactor runtime, with
// flag parsing and signal-driven shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ehrlich-b/go-iocoro"
	"github.com/ehrlich-b/go-iocoro/internal/logging"
)

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:9000", "address to listen on")
		verbose = flag.Bool("v", false, "verbose output")
		backend = flag.String("backend", "auto", "reactor backend: auto, epoll, or iouring")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	kind, err := parseBackend(*backend)
	if err != nil {
		logger.Error("invalid backend", "error", err)
		os.Exit(1)
	}

	r, err := iocoro.NewReactor(iocoro.ReactorConfig{Backend: kind})
	if err != nil {
		logger.Error("failed to create reactor", "error", err)
		os.Exit(1)
	}
	defer r.Close()

	acceptor, err := iocoro.ListenTCP(r, *addr)
	if err != nil {
		logger.Error("failed to listen", "addr", *addr, "error", err)
		os.Exit(1)
	}
	defer acceptor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("echo server listening", "addr", *addr)
	fmt.Printf("Listening on %s. Press Ctrl+C to stop.\n", *addr)

	iocoro.SpawnDetached(iocoro.WithExecutor(ctx, r.Executor()), func(ctx context.Context) {
		for {
			conn, err := acceptor.Accept(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("accept failed", "error", err)
				continue
			}
			iocoro.SpawnDetached(ctx, func(ctx context.Context) {
				serveEcho(ctx, conn, logger)
			})
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		r.Stop()
	}()

	r.Run()

	snap := r.Metrics().Snapshot()
	fmt.Printf("Accepted %d connections, read %d bytes, wrote %d bytes\n",
		snap.AcceptOps, snap.ReadBytes, snap.WriteBytes)
}

func serveEcho(ctx context.Context, conn *iocoro.StreamConn, logger *logging.Logger) {
	defer conn.Close()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(ctx, buf)
		if err != nil {
			if iocoro.KindOf(err) != iocoro.ErrEOF {
				logger.Debug("read error", "error", err)
			}
			return
		}
		if _, err := conn.WriteAll(ctx, buf[:n]); err != nil {
			logger.Debug("write error", "error", err)
			return
		}
	}
}

func parseBackend(s string) (iocoro.BackendKind, error) {
	switch s {
	case "auto", "":
		return iocoro.BackendAuto, nil
	case "epoll":
		return iocoro.BackendEpoll, nil
	case "iouring":
		return iocoro.BackendIOUring, nil
	default:
		return iocoro.BackendAuto, fmt.Errorf("unknown backend %q", s)
	}
}
