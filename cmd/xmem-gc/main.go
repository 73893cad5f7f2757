// Command xmem-gc is the administrative tool for spec.md's "never reclaims
// a buffer whose owning process crashed" tradeoff (spec.md §9): it lists
// shared-memory regions under xmem.ShmDir, reports buffer regions whose
// owning pool's metadata region is no longer present, and optionally
// unlinks them. It never runs automatically and never touches a region
// that still has a live metadata region, whatever that region's reference
// counts say.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dayn9t/xmem"
	"github.com/dayn9t/xmem/internal/cli"
	"github.com/dayn9t/xmem/internal/vfs"
)

// isXmemRegionPath reports whether path names one of xmem's own regions
// (a "<pool>_meta" metadata region or a "<pool>_buf_<n>" data region),
// filtering out the unrelated POSIX shared-memory segments other
// processes on the host also keep under xmem.ShmDir.
func isXmemRegionPath(path string) bool {
	name := filepath.Base(path)
	return xmem.IsMetaRegionName(name) || strings.Contains(name, "_buf_")
}

func scanOrphans() (orphans []string, err error) {
	names, err := xmem.ListRegions()
	if err != nil {
		return nil, err
	}

	pools := make(map[string]bool)
	var buffers []string
	for _, n := range names {
		if xmem.IsMetaRegionName(n) {
			pools[xmem.PoolNameFromMetaRegion(n)] = true
		} else if strings.Contains(n, "_buf_") {
			buffers = append(buffers, n)
		}
	}

	for _, b := range buffers {
		prefix := b[:strings.LastIndex(b, "_buf_")]
		if !pools[prefix] {
			orphans = append(orphans, b)
		}
	}
	return orphans, nil
}

// reportOwnership opens each live pool's metadata region just long enough to
// ask IsOwner, so an operator running xmem-gc can tell which pools this very
// process created versus ones it merely sees from a shared /dev/shm.
func reportOwnership(log *cli.Logger) {
	names, err := xmem.ListRegions()
	if err != nil {
		log.Error("list regions: %v", err)
		return
	}
	for _, n := range names {
		if !xmem.IsMetaRegionName(n) {
			continue
		}
		poolName := "/" + xmem.PoolNameFromMetaRegion(n)
		p, err := xmem.Open(poolName)
		if err != nil {
			log.Warn("open %q: %v", poolName, err)
			continue
		}
		log.Info("pool %s: owner=%v", poolName, p.IsOwner())
		p.Close()
	}
}

func main() {
	var (
		showVersion bool
		jsonOutput  bool
		watch       bool
		unlink      bool
		ownership   bool
		verbose     bool
	)

	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flag.BoolVar(&watch, "watch", false, "keep watching for further changes instead of scanning once")
	flag.BoolVar(&unlink, "unlink", false, "unlink orphaned buffer regions found during the scan")
	flag.BoolVar(&ownership, "ownership", false, "also report which live pools this process itself created")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Report (and optionally unlink) orphaned xmem buffer regions.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		cli.PrintVersion("xmem-gc", jsonOutput)
		return
	}

	log := cli.NewLogger(verbose)

	report := func() {
		orphans, err := scanOrphans()
		if err != nil {
			cli.ExitWithError("%v", err)
		}
		if len(orphans) == 0 {
			log.Info("no orphaned regions found")
		}
		for _, o := range orphans {
			if jsonOutput {
				fmt.Printf("{\"orphan\":%q}\n", o)
			} else {
				fmt.Println(o)
			}
			if unlink {
				if err := xmem.UnlinkRegionByName(o); err != nil {
					log.Error("unlink %q: %v", o, err)
				} else {
					log.Info("unlinked %q", o)
				}
			}
		}
	}

	report()
	if ownership {
		reportOwnership(log)
	}

	if !watch {
		return
	}

	w, err := vfs.NewWatcher(isXmemRegionPath)
	if err != nil {
		cli.ExitWithError("start watcher: %v", err)
	}
	defer w.Close()

	if err := w.Add(xmem.ShmDir); err != nil {
		cli.ExitWithError("watch %q: %v", xmem.ShmDir, err)
	}
	log.Info("watching %s for changes", xmem.ShmDir)

	for {
		select {
		case ev := <-w.Events():
			log.Info("event: %s op=%d", ev.Path, ev.Op)
			report()
		case err := <-w.Errors():
			log.Error("watcher: %v", err)
		}
	}
}
