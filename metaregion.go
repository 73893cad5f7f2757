package xmem

import (
	"sync/atomic"
	"unsafe"
)

var (
	headerSize = unsafe.Sizeof(header{})
	recordSize = unsafe.Sizeof(record{})
)

func calcRegionSize(capacity int) int {
	return int(headerSize) + capacity*int(recordSize)
}

// metaRegion is the Metadata Region of spec.md §4.3: a single shared region
// formatted as header + fixed array of records, offering alloc/free/get.
type metaRegion struct {
	reg      *region
	capacity int

	// legacyReadOnly is true when this region was opened at format version 1
	// (no free list — see DESIGN.md, Open Question 2). alloc/free refuse to
	// mutate such a region; get still works.
	legacyReadOnly bool
}

func (m *metaRegion) headerPtr() *header {
	return (*header)(unsafe.Pointer(m.reg.basePtr()))
}

func (m *metaRegion) recordPtr(index uint32) *record {
	base := uintptr(unsafe.Pointer(m.reg.basePtr()))
	off := headerSize + uintptr(index)*recordSize
	return (*record)(unsafe.Pointer(base + off))
}

// createMetaRegion formats a brand-new metadata region under name, always
// at currentVersion.
func createMetaRegion(name string, capacity int) (*metaRegion, error) {
	reg, err := createRegion(name, calcRegionSize(capacity))
	if err != nil {
		return nil, err
	}

	h := (*header)(unsafe.Pointer(reg.basePtr()))
	h.magic = magic
	h.version = currentVersion
	h.capacity = uint32(capacity)
	atomic.StoreUint32(&h.nextID, 0)
	atomic.StoreUint32(&h.allocated, 0)
	atomic.StoreUint32(&h.freeHead, emptyFreeHead)
	atomic.StoreUint32(&h.waiters, 0)

	return &metaRegion{reg: reg, capacity: capacity}, nil
}

// openMetaRegion attaches to an existing metadata region, rejecting an
// unrecognized magic or an unsupported version. Version 1 (no free list) is
// accepted in a read-only compatibility mode; see DESIGN.md.
func openMetaRegion(name string) (*metaRegion, error) {
	reg, err := openRegion(name)
	if err != nil {
		return nil, err
	}

	h := (*header)(unsafe.Pointer(reg.basePtr()))
	if h.magic != magic {
		return nil, sharedMemoryErr("invalid magic number")
	}

	switch h.version {
	case currentVersion:
		return &metaRegion{reg: reg, capacity: int(h.capacity)}, nil
	case version1:
		return &metaRegion{reg: reg, capacity: int(h.capacity), legacyReadOnly: true}, nil
	default:
		return nil, sharedMemoryErr("version mismatch: expected %d, got %d", currentVersion, h.version)
	}
}

func (m *metaRegion) close() error { return m.reg.drop() }

func (m *metaRegion) cap() int { return m.capacity }

// alloc reserves a metadata slot: first by popping the lock-free LIFO free
// list (Treiber stack), then by bumping the monotonic cursor. See spec.md
// §4.3 for the exact protocol this implements.
func (m *metaRegion) alloc() (uint32, error) {
	if m.legacyReadOnly {
		return 0, sharedMemoryErr("version 1 region does not support recycling")
	}

	h := m.headerPtr()

	for {
		head := atomic.LoadUint32(&h.freeHead)
		if head == emptyFreeHead {
			break
		}
		next := m.recordPtr(head).loadNextFree()
		if atomic.CompareAndSwapUint32(&h.freeHead, head, next) {
			atomic.AddUint32(&h.allocated, 1)
			return head, nil
		}
	}

	old := atomic.AddUint32(&h.nextID, 1) - 1
	if old >= uint32(m.capacity) {
		atomic.AddUint32(&h.nextID, ^uint32(0)) // restore: fetch_sub(1)
		return 0, sharedMemoryErr("full")
	}
	atomic.AddUint32(&h.allocated, 1)
	return old, nil
}

// free pushes index back onto the free list for future alloc calls to
// recycle. It does not touch the buffer's backing data region.
func (m *metaRegion) free(index uint32) error {
	if index >= uint32(m.capacity) {
		return bufferNotFoundErr(index)
	}
	if m.legacyReadOnly {
		return sharedMemoryErr("version 1 region does not support recycling")
	}

	h := m.headerPtr()
	rec := m.recordPtr(index)

	for {
		head := atomic.LoadUint32(&h.freeHead)
		rec.storeNextFree(head)
		if atomic.CompareAndSwapUint32(&h.freeHead, head, index) {
			break
		}
	}
	atomic.AddUint32(&h.allocated, ^uint32(0)) // allocated--
	return nil
}

// get returns the record at offset index, bounds-checked. There is no
// separate "get_mut": unlike the original Rust &/&mut distinction, a raw Go
// pointer into shared memory carries no compiler-enforced mutability, so a
// single accessor suffices here; read-vs-write is enforced one layer up, on
// the Handle's AccessMode (spec.md §4.5).
func (m *metaRegion) get(index uint32) (*record, error) {
	if index >= uint32(m.capacity) {
		return nil, bufferNotFoundErr(index)
	}
	return m.recordPtr(index), nil
}

func (m *metaRegion) allocatedCount() uint32 {
	return atomic.LoadUint32(&m.headerPtr().allocated)
}

func (m *metaRegion) incWaiters(delta int32) {
	h := m.headerPtr()
	if delta >= 0 {
		atomic.AddUint32(&h.waiters, uint32(delta))
	} else {
		atomic.AddUint32(&h.waiters, ^uint32(-delta-1))
	}
}

func (m *metaRegion) waitersCount() uint32 {
	return atomic.LoadUint32(&m.headerPtr().waiters)
}
