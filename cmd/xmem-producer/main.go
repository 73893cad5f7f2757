// Command xmem-producer creates (or opens) a named pool, acquires a host
// buffer, fills it with a repeating byte pattern, and prints the
// meta-index a peer process needs to consume it with xmem-consumer.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dayn9t/xmem"
	"github.com/dayn9t/xmem/internal/cli"
	xmemerrors "github.com/dayn9t/xmem/internal/errors"
)

func main() {
	var (
		showVersion bool
		jsonOutput  bool
		poolName    string
		capacity    int
		size        uint64
		fill        int
		create      bool
		detach      bool
		verbose     bool
	)

	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flag.StringVar(&poolName, "pool", "/xmem_demo", "pool name")
	flag.IntVar(&capacity, "capacity", xmem.DefaultCapacity, "pool capacity, only used with --create")
	flag.Uint64Var(&size, "size", 4096, "buffer size in bytes")
	flag.IntVar(&fill, "fill", 0xAB, "byte value to fill the buffer with, 0-255")
	flag.BoolVar(&create, "create", false, "create the pool instead of opening an existing one")
	flag.BoolVar(&detach, "detach", true, "detach the handle after filling it, so this process doesn't own releasing it")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Acquire and fill a host buffer in an xmem pool.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		cli.PrintVersion("xmem-producer", jsonOutput)
		return
	}

	log := cli.NewLogger(verbose)

	if size == 0 {
		cli.ExitWithError("%v", xmemerrors.InvalidSize(size, "--size"))
	}
	if fill < 0 || fill > 0xFF {
		cli.ExitWithError("%v", xmemerrors.InvalidSize(uint64(fill), "--fill"))
	}

	var pool *xmem.Pool
	var err error
	if create {
		log.Info("creating pool %q with capacity %d", poolName, capacity)
		pool, err = xmem.CreateWithCapacity(poolName, capacity)
	} else {
		log.Info("opening pool %q", poolName)
		pool, err = xmem.Open(poolName)
	}
	if err != nil {
		cli.ExitWithError("%v", xmemerrors.SystemFailure(poolName, err))
	}
	defer pool.Close()

	h, err := pool.AcquireHost(size)
	if err != nil {
		cli.ExitWithError("acquire buffer: %v", err)
	}

	buf, err := h.BytesMut()
	if err != nil {
		cli.ExitWithError("map buffer for write: %v", err)
	}
	for i := range buf {
		buf[i] = byte(fill)
	}
	log.Info("filled %d bytes at index %d with 0x%02x", len(buf), h.Index(), byte(fill))

	index := h.Index()
	if detach {
		if err := h.Detach(); err != nil {
			cli.ExitWithError("detach handle: %v", err)
		}
	} else {
		if err := h.Close(); err != nil {
			cli.ExitWithError("close handle: %v", err)
		}
	}

	if jsonOutput {
		fmt.Printf("{\"pool\":%q,\"index\":%d,\"size\":%d}\n", poolName, index, size)
	} else {
		fmt.Printf("%d\n", index)
	}
}
