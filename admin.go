package xmem

import (
	"os"
	"strings"
)

// ShmDir is the directory xmem's named regions live under (spec.md §9:
// "an external, OS-level name"). Exported for administrative tooling such
// as cmd/xmem-gc that needs to enumerate regions outside of any one pool.
const ShmDir = shmDir

// ListRegions returns the names (without the shmDir prefix) of every
// non-directory entry currently present in ShmDir, for tools that need to
// audit what the OS thinks exists independent of any pool's in-memory
// state. The list is not filtered: it includes segments that are not
// xmem's, so callers pick out xmem regions themselves (IsMetaRegionName,
// the "_buf_" infix).
func ListRegions() ([]string, error) {
	entries, err := os.ReadDir(ShmDir)
	if err != nil {
		return nil, sharedMemoryErr("list %q: %v", ShmDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// IsMetaRegionName reports whether name is a pool's metadata region name
// (as produced by metaRegionName), as opposed to one of its buffers.
func IsMetaRegionName(name string) bool { return strings.HasSuffix(name, "_meta") }

// PoolNameFromMetaRegion strips the "_meta" suffix IsMetaRegionName
// confirmed is present, recovering the pool name that was passed to Create.
func PoolNameFromMetaRegion(metaName string) string {
	return strings.TrimSuffix(metaName, "_meta")
}

// UnlinkRegionByName removes a named region from the OS directly. It exists
// for administrative tools only: normal pool operation never unlinks a
// buffer's region on release (spec.md §3, §9), so this is the one
// supported way an operator cleans up a region left behind by a crashed
// process.
func UnlinkRegionByName(name string) error { return unlinkRegion(name) }
