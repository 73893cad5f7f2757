// Command xmem-relay is a concrete instance of the "cheap side channel"
// spec.md §1 leaves external to the library: a tiny QUIC server/client
// pair that hands a meta-index from a producer process to a consumer
// process as a one-line JSON envelope, entirely out of band from the
// shared-memory pool itself.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	quic "github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/dayn9t/xmem/internal/cli"
	"github.com/dayn9t/xmem/internal/relaytls"
)

// envelope is the wire format relayed over a single QUIC stream: the pool
// a meta-index was allocated in, and the index itself.
type envelope struct {
	Pool  string `json:"pool"`
	Index uint32 `json:"index"`
}

func serve(ctx context.Context, addr string, log *cli.Logger) error {
	tlsConf, err := relaytls.GenerateSelfSignedTLS(addr)
	if err != nil {
		return fmt.Errorf("generate server tls: %w", err)
	}

	ln, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()
	log.Info("xmem-relay listening on %s", ln.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			conn, err := ln.Accept(gctx)
			if err != nil {
				return err
			}
			g.Go(func() error { return handleConn(gctx, conn, log) })
		}
	})

	err = g.Wait()
	if gctx.Err() != nil {
		return nil
	}
	return err
}

func handleConn(ctx context.Context, conn quic.Connection, log *cli.Logger) error {
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	var env envelope
	if err := json.NewDecoder(stream).Decode(&env); err != nil {
		log.Error("decode envelope from %s: %v", conn.RemoteAddr(), err)
		return nil
	}
	log.Info("relayed pool=%q index=%d from %s", env.Pool, env.Index, conn.RemoteAddr())
	fmt.Printf("{\"pool\":%q,\"index\":%d}\n", env.Pool, env.Index)
	return nil
}

func send(ctx context.Context, addr, pool string, index uint32, log *cli.Logger) error {
	conn, err := quic.DialAddr(ctx, addr, relaytls.InsecureClientTLS(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.CloseWithError(0, "")

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	w := bufio.NewWriter(stream)
	if err := json.NewEncoder(w).Encode(envelope{Pool: pool, Index: index}); err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush stream: %w", err)
	}
	log.Info("sent pool=%q index=%d to %s", pool, index, addr)
	return nil
}

func main() {
	var (
		showVersion bool
		jsonOutput  bool
		addr        string
		asServer    bool
		pool        string
		index       uint
		verbose     bool
	)

	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flag.StringVar(&addr, "addr", "127.0.0.1:4433", "address to listen on or dial")
	flag.BoolVar(&asServer, "serve", false, "run as the relay server instead of a sending client")
	flag.StringVar(&pool, "pool", "", "pool name to send, only used with --serve=false")
	flag.UintVar(&index, "index", 0, "meta-index to send, only used with --serve=false")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s --serve | --pool NAME --index N [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Relay an xmem meta-index between processes over QUIC.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		cli.PrintVersion("xmem-relay", jsonOutput)
		return
	}

	log := cli.NewLogger(verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if asServer {
		if err := serve(ctx, addr, log); err != nil {
			cli.ExitWithError("%v", err)
		}
		return
	}

	if pool == "" {
		cli.ExitWithError("--pool is required when not running --serve")
	}
	if err := send(ctx, addr, pool, uint32(index), log); err != nil {
		cli.ExitWithError("%v", err)
	}
}
