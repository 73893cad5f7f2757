package xmem

import (
	"strings"

	"golang.org/x/sys/unix"
)

// shmDir is the Linux tmpfs mount backing POSIX shared memory; shm_open(3)
// implementations resolve named regions here. A region named "/p1_meta"
// maps to shmDir+"/p1_meta".
const shmDir = "/dev/shm"

// regionPath turns a pool-supplied region name (conventionally starting
// with "/", per spec.md §6) into a path under shmDir.
func regionPath(name string) string {
	return shmDir + "/" + strings.TrimPrefix(name, "/")
}

// region is the Shared Region Adapter: a byte array of known length shared
// across processes under a name. It is the one "bare OS shared-memory
// primitive" spec.md §1 calls an external collaborator; region wraps it in
// real golang.org/x/sys/unix calls rather than inventing a fake one.
type region struct {
	name  string
	data  []byte
	owner bool
}

// createRegion atomically creates a new named region of size bytes,
// zero-initialized, and fails if the name already exists at the OS level.
func createRegion(name string, size int) (*region, error) {
	path := regionPath(name)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, sharedMemoryErr("create %q: %v", name, err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Unlink(path)
		return nil, sharedMemoryErr("truncate %q: %v", name, err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Unlink(path)
		return nil, sharedMemoryErr("mmap %q: %v", name, err)
	}

	// O_CREAT+Ftruncate on a fresh tmpfs file is already zero-filled by the
	// kernel; the explicit clear documents the contract spec.md §4.1 requires
	// and stays correct if that kernel guarantee is ever relied on elsewhere.
	for i := range data {
		data[i] = 0
	}

	return &region{name: name, data: data, owner: true}, nil
}

// openRegion attaches to an existing region and returns its full mapped length.
func openRegion(name string) (*region, error) {
	path := regionPath(name)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, sharedMemoryErr("open %q: %v", name, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, sharedMemoryErr("stat %q: %v", name, err)
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, sharedMemoryErr("mmap %q: %v", name, err)
	}

	return &region{name: name, data: data, owner: false}, nil
}

// basePtr exposes a pointer to the first byte of the region; callers place
// the Header/Record structs over it via unsafe.Pointer (see meta.go).
func (r *region) basePtr() *byte {
	if len(r.data) == 0 {
		return nil
	}
	return &r.data[0]
}

func (r *region) len() int { return len(r.data) }

// isOwner reports whether this process created (rather than opened) the
// region. Only used by administrative tooling (cmd/xmem-gc); core pool
// logic never branches on it.
func (r *region) isOwner() bool { return r.owner }

// drop unmaps the region in this process. Unlinking the OS name is
// deliberately a separate, explicit step (see unlinkRegion) so that peers
// still holding the mapping are unaffected.
func (r *region) drop() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if err != nil {
		return sharedMemoryErr("munmap %q: %v", r.name, err)
	}
	return nil
}

// unlinkRegion removes a named region from the OS. It is not called by any
// core operation — release never unlinks a buffer's backing region (spec.md
// §3, §9) — and exists for external collaborators such as cmd/xmem-gc.
func unlinkRegion(name string) error {
	if err := unix.Unlink(regionPath(name)); err != nil {
		return sharedMemoryErr("unlink %q: %v", name, err)
	}
	return nil
}
