package xmem

import (
	"fmt"
	"time"
)

// DefaultCapacity is the metadata region capacity BufferPool uses when the
// caller doesn't specify one (spec.md §4.6).
const DefaultCapacity = 1024

// Pool is the Buffer Pool of spec.md §4.6: the top-level object composing
// the Metadata Region, the storage backends and the Handle type. It
// implements acquire/open/preallocate/blocking-acquire/release.
type Pool struct {
	name string
	meta *metaRegion

	// cudaDriver backs AcquireDevice and device Get calls; every constructor
	// sets it to defaultCudaDriver. The device tests do not go through this
	// field: they hand a mock driver to allocDeviceBuffer/importDeviceBuffer.
	cudaDriver cudaDriver
}

func metaRegionName(poolName string) string { return poolName + "_meta" }

// Create creates a new pool under name with DefaultCapacity slots.
func Create(name string) (*Pool, error) {
	return CreateWithCapacity(name, DefaultCapacity)
}

// CreateWithCapacity creates a new pool with the given maximum number of
// buffers. It fails if a pool with this name already exists at the OS
// level (spec.md §5: "two processes calling create with the same name
// race; whichever loses gets a shared memory error").
func CreateWithCapacity(name string, capacity int) (*Pool, error) {
	meta, err := createMetaRegion(metaRegionName(name), capacity)
	if err != nil {
		return nil, err
	}
	return &Pool{name: name, meta: meta, cudaDriver: defaultCudaDriver}, nil
}

// Open attaches to an existing pool by name. It fails on a magic/version
// mismatch it cannot read at all (spec.md §4.3); a version-1 region opens
// successfully but rejects Alloc/Free (DESIGN.md, Open Question 2).
func Open(name string) (*Pool, error) {
	meta, err := openMetaRegion(metaRegionName(name))
	if err != nil {
		return nil, err
	}
	return &Pool{name: name, meta: meta, cudaDriver: defaultCudaDriver}, nil
}

// Name returns the pool's name.
func (p *Pool) Name() string { return p.name }

// Capacity returns the pool's maximum number of buffers.
func (p *Pool) Capacity() int { return p.meta.cap() }

// Close unmaps the pool's metadata region in this process. It does not
// unlink any OS name and does not touch any buffer's backing data region
// (spec.md §4.1, §9).
func (p *Pool) Close() error { return p.meta.close() }

// IsOwner reports whether this process created (rather than opened) the
// pool's metadata region. Core pool logic never branches on this; it exists
// for diagnostic tooling such as cmd/xmem-gc, which wants to tell apart
// regions it created itself from ones left behind by other processes.
func (p *Pool) IsOwner() bool { return p.meta.reg.isOwner() }

func isFullErr(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindSharedMemory && e.Message == "full"
}

// AcquireHost allocates a slot, creates its backing host data region, and
// returns a read-write Handle with an initial reference count of 1.
func (p *Pool) AcquireHost(size uint64) (*Handle, error) {
	index, err := p.meta.alloc()
	if err != nil {
		return nil, err
	}

	hb, err := createHostBuffer(p.name, index, size)
	if err != nil {
		return nil, err
	}

	rec, err := p.meta.get(index)
	if err != nil {
		return nil, err
	}
	rec.storeID(index)
	rec.storeRefCount(1)
	rec.storeStorageKind(StorageHost)
	rec.storeDeviceID(0)
	rec.storeSize(size)

	return newHandle(index, ReadWrite, rec, hb), nil
}

// AcquireHostBlocking retries AcquireHost on a "full pool" condition,
// sleeping 1ms between attempts, until it succeeds or timeout elapses
// (spec.md §4.6, §5). Any other error is returned immediately.
func (p *Pool) AcquireHostBlocking(size uint64, timeout time.Duration) (*Handle, error) {
	deadline := time.Now().Add(timeout)

	p.meta.incWaiters(1)
	defer p.meta.incWaiters(-1)

	for {
		h, err := p.AcquireHost(size)
		if err == nil {
			return h, nil
		}
		if !isFullErr(err) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

// AcquireDevice allocates a slot and GPU memory on deviceID, exporting the
// device's IPC handle into the metadata record so any peer can import it
// via Get using only the meta-index (spec.md §4.4(b), §4.6).
func (p *Pool) AcquireDevice(size uint64, deviceID int32) (*Handle, error) {
	index, err := p.meta.alloc()
	if err != nil {
		return nil, err
	}

	db, err := allocDeviceBuffer(p.cudaDriver, deviceID, size)
	if err != nil {
		return nil, err
	}

	rec, err := p.meta.get(index)
	if err != nil {
		return nil, err
	}
	rec.storeID(index)
	rec.storeRefCount(1)
	rec.storeStorageKind(StorageDevice)
	rec.storeDeviceID(uint32(deviceID))
	rec.storeSize(size)
	rec.ipcHandle = db.handle

	return newHandle(index, ReadWrite, rec, db), nil
}

func (p *Pool) getWithMode(index uint32, mode AccessMode) (*Handle, error) {
	rec, err := p.meta.get(index)
	if err != nil {
		return nil, err
	}
	rec.addRefCount(1)

	switch rec.loadStorageKind() {
	case StorageHost:
		hb, err := openHostBuffer(p.name, index, rec.loadSize())
		if err != nil {
			rec.addRefCount(-1)
			return nil, err
		}
		return newHandle(index, mode, rec, hb), nil
	case StorageDevice:
		db, err := importDeviceBuffer(p.cudaDriver, int32(rec.loadDeviceID()), rec.ipcHandle, rec.loadSize())
		if err != nil {
			rec.addRefCount(-1)
			return nil, err
		}
		return newHandle(index, mode, rec, db), nil
	default:
		rec.addRefCount(-1)
		return nil, sharedMemoryErr("invalid storage kind")
	}
}

// Get opens an existing buffer in read-only mode, incrementing its
// reference count.
func (p *Pool) Get(index uint32) (*Handle, error) { return p.getWithMode(index, ReadOnly) }

// GetMut opens an existing buffer in read-write mode, incrementing its
// reference count.
func (p *Pool) GetMut(index uint32) (*Handle, error) { return p.getWithMode(index, ReadWrite) }

// AddRef increments a slot's reference count directly, for language
// bindings that manage lifetimes themselves (spec.md §4.6). It returns the
// new count.
func (p *Pool) AddRef(index uint32) (int32, error) {
	rec, err := p.meta.get(index)
	if err != nil {
		return 0, err
	}
	return rec.addRefCount(1), nil
}

// Release decrements a slot's reference count directly. It returns the new
// count; it does not recycle the slot even if the count reaches zero — see
// TryRelease.
func (p *Pool) Release(index uint32) (int32, error) {
	rec, err := p.meta.get(index)
	if err != nil {
		return 0, err
	}
	return rec.addRefCount(-1), nil
}

// RefCount returns a slot's current reference count.
func (p *Pool) RefCount(index uint32) (int32, error) {
	rec, err := p.meta.get(index)
	if err != nil {
		return 0, err
	}
	return rec.loadRefCount(), nil
}

// SetRefCount overwrites a slot's reference count directly.
func (p *Pool) SetRefCount(index uint32, count int32) error {
	rec, err := p.meta.get(index)
	if err != nil {
		return err
	}
	rec.storeRefCount(count)
	return nil
}

// releaseBuffer frees the metadata slot back to the free list. The buffer's
// backing data region is not unlinked: it is reusable when this index is
// allocated again (spec.md §3, §9).
func (p *Pool) releaseBuffer(index uint32) error {
	return p.meta.free(index)
}

// TryRelease frees the metadata slot at index if its reference count has
// reached zero or below, returning true if it did so. It is the only way a
// slot is ever recycled — reaching ref_count==0 alone does not free it
// (spec.md §4.6, §9).
func (p *Pool) TryRelease(index uint32) (bool, error) {
	rec, err := p.meta.get(index)
	if err != nil {
		return false, err
	}
	if rec.loadRefCount() <= 0 {
		if err := p.releaseBuffer(index); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// PreallocateHost performs n acquisitions of size-byte host buffers,
// detaching each handle so ref_count stays at 1, and returns their
// meta-indices. Useful for warming a pool (spec.md §4.6).
func (p *Pool) PreallocateHost(size uint64, n int) ([]uint32, error) {
	indices := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		h, err := p.AcquireHost(size)
		if err != nil {
			return indices, fmt.Errorf("preallocate %d/%d: %w", i, n, err)
		}
		indices = append(indices, h.Index())
		if err := h.Detach(); err != nil {
			return indices, err
		}
	}
	return indices, nil
}

// PreallocateDevice is PreallocateHost's device-backed counterpart (spec.md
// §4.4(b) generalized per SPEC_FULL.md §4): it performs n AcquireDevice
// calls on deviceID, detaching each so ref_count stays at 1.
func (p *Pool) PreallocateDevice(size uint64, n int, deviceID int32) ([]uint32, error) {
	indices := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		h, err := p.AcquireDevice(size, deviceID)
		if err != nil {
			return indices, fmt.Errorf("preallocate %d/%d: %w", i, n, err)
		}
		indices = append(indices, h.Index())
		if err := h.Detach(); err != nil {
			return indices, err
		}
	}
	return indices, nil
}

// Allocated returns the current count of allocated slots (a statistic; not
// part of any invariant check).
func (p *Pool) Allocated() uint32 { return p.meta.allocatedCount() }

// Waiters returns the current count of goroutines blocked in
// AcquireHostBlocking (a statistic).
func (p *Pool) Waiters() uint32 { return p.meta.waitersCount() }
