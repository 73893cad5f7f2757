// Command xmem-consumer opens an existing pool, reads the buffer at a
// given meta-index, and prints a summary of its contents. It is the
// counterpart to xmem-producer: run the producer first, pass the index it
// prints as --index here.
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
		index       uint
		release     bool
		verbose     bool
	)

	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flag.StringVar(&poolName, "pool", "/xmem_demo", "pool name")
	flag.UintVar(&index, "index", 0, "meta-index of the buffer to read")
	flag.BoolVar(&release, "release", true, "decrement the buffer's reference count and try to recycle its slot after reading")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s --index N [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Read a buffer from an xmem pool by meta-index.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		cli.PrintVersion("xmem-consumer", jsonOutput)
		return
	}

	log := cli.NewLogger(verbose)

	pool, err := xmem.Open(poolName)
	if err != nil {
		cli.ExitWithError("%v", xmemerrors.SystemFailure(poolName, err))
	}
	defer pool.Close()

	if cap := uint32(pool.Capacity()); uint32(index) >= cap {
		cli.ExitWithError("%v", xmemerrors.IndexOutOfBounds(uint32(index), cap))
	}

	h, err := pool.Get(uint32(index))
	if err != nil {
		cli.ExitWithError("get index %d: %v", index, err)
	}

	buf, err := h.Bytes()
	if err != nil {
		cli.ExitWithError("map buffer for read: %v", err)
	}

	refs, _ := pool.RefCount(uint32(index))
	log.Info("read %d bytes at index %d, ref_count=%d", len(buf), index, refs)

	if jsonOutput {
		preview := buf
		if len(preview) > 16 {
			preview = preview[:16]
		}
		fmt.Printf("{\"pool\":%q,\"index\":%d,\"size\":%d,\"ref_count\":%d,\"first_bytes\":\"% x\"}\n",
			poolName, index, len(buf), refs, preview)
	} else {
		fmt.Printf("index=%d size=%d ref_count=%d\n", index, len(buf), refs)
	}

	if release {
		if err := h.Close(); err != nil {
			cli.ExitWithError("close handle: %v", err)
		}
		if freed, err := pool.TryRelease(uint32(index)); err != nil {
			cli.ExitWithError("try-release index %d: %v", index, err)
		} else if freed {
			log.Info("index %d recycled", index)
		}
	} else {
		if err := h.Detach(); err != nil {
			cli.ExitWithError("detach handle: %v", err)
		}
	}
}
