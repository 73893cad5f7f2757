package xmem

import "sync/atomic"

// MaxNDim bounds the shape/stride hint arrays carried in every record.
const MaxNDim = 8

// DeviceIPCHandleSize is the width of the opaque GPU IPC handle blob.
const DeviceIPCHandleSize = 64

const labelSize = 32

// reservedRecordSize matches the 64-byte reserved tail of the original
// format's record layout (spec.md §3).
const reservedRecordSize = 64

// magic identifies the xmem metadata region format (ASCII "XMEM").
const magic = 0x584D454D

// Metadata region format versions. version2 adds allocated/free_head/waiters
// (and therefore LIFO recycling) over version1, which only ever bump-allocates.
const (
	version1 uint32 = 1
	version2 uint32 = 2

	currentVersion = version2
)

// emptyFreeHead is the free_head sentinel meaning "free list is empty".
const emptyFreeHead uint32 = 0xFFFFFFFF

// headerSize (in bytes) must land on an 8-byte boundary: every record that
// follows it in the region has uint64 atomic fields (shape/strides/size/
// timestamp/seq), and 64-bit atomics require 8-byte alignment — on ARM64
// (and on 32-bit platforms generally) an unaligned atomic instruction
// faults rather than just running slow. header's own fields are all
// uint32, so Go only pads its size to a multiple of 4; the explicit
// reserved tail below rounds it up to a 64-byte cache line instead, which
// is also the "reserved padding to a fixed multiple" spec.md §3 calls for
// and leaves room to grow the header without reformatting existing regions.
type header struct {
	magic     uint32
	version   uint32
	capacity  uint32
	nextID    uint32
	allocated uint32
	freeHead  uint32
	waiters   uint32
	reserved  [9]uint32
}

// record is one fixed-layout metadata slot (spec.md §3), identical in every
// process mapping the region. storage_kind/device_id/dtype/ndim are widened
// from the spec's conceptual 8-bit fields to uint32 because sync/atomic has
// no byte-wide primitive (see DESIGN.md, Open Question 1); content_type and
// producer follow a single-writer convention and are not accessed
// atomically, per spec.md §4.2.
type record struct {
	id          uint32
	refCount    int32
	storageKind uint32
	deviceID    uint32
	dtype       uint32
	ndim        uint32
	shape       [MaxNDim]uint64
	strides     [MaxNDim]uint64
	size        uint64
	timestamp   uint64
	seq         uint64
	contentType [labelSize]byte
	producer    [labelSize]byte
	ipcHandle   [DeviceIPCHandleSize]byte
	// reserved mirrors the original format's trailing reserved block
	// (spec.md §3, "Reserved tail for future extension"); untouched by any
	// current operation.
	reserved [reservedRecordSize]byte
	nextFree uint32
}

func (r *record) loadID() uint32          { return atomic.LoadUint32(&r.id) }
func (r *record) storeID(v uint32)        { atomic.StoreUint32(&r.id, v) }
func (r *record) loadRefCount() int32     { return atomic.LoadInt32(&r.refCount) }
func (r *record) storeRefCount(v int32)   { atomic.StoreInt32(&r.refCount, v) }
func (r *record) addRefCount(d int32) int32 {
	return atomic.AddInt32(&r.refCount, d)
}

func (r *record) loadStorageKind() StorageKind {
	return StorageKind(atomic.LoadUint32(&r.storageKind))
}
func (r *record) storeStorageKind(v StorageKind) {
	atomic.StoreUint32(&r.storageKind, uint32(v))
}

func (r *record) loadDeviceID() uint32   { return atomic.LoadUint32(&r.deviceID) }
func (r *record) storeDeviceID(v uint32) { atomic.StoreUint32(&r.deviceID, v) }

func (r *record) loadDType() DType        { return DType(atomic.LoadUint32(&r.dtype)) }
func (r *record) storeDType(v DType)      { atomic.StoreUint32(&r.dtype, uint32(v)) }
func (r *record) loadNDim() uint32        { return atomic.LoadUint32(&r.ndim) }
func (r *record) storeNDim(v uint32)      { atomic.StoreUint32(&r.ndim, v) }

func (r *record) loadShape(i int) uint64    { return atomic.LoadUint64(&r.shape[i]) }
func (r *record) storeShape(i int, v uint64) { atomic.StoreUint64(&r.shape[i], v) }

func (r *record) loadStride(i int) uint64    { return atomic.LoadUint64(&r.strides[i]) }
func (r *record) storeStride(i int, v uint64) { atomic.StoreUint64(&r.strides[i], v) }

func (r *record) loadSize() uint64   { return atomic.LoadUint64(&r.size) }
func (r *record) storeSize(v uint64) { atomic.StoreUint64(&r.size, v) }

func (r *record) loadTimestamp() uint64   { return atomic.LoadUint64(&r.timestamp) }
func (r *record) storeTimestamp(v uint64) { atomic.StoreUint64(&r.timestamp, v) }

func (r *record) loadSeq() uint64   { return atomic.LoadUint64(&r.seq) }
func (r *record) storeSeq(v uint64) { atomic.StoreUint64(&r.seq, v) }

func (r *record) loadNextFree() uint32      { return atomic.LoadUint32(&r.nextFree) }
func (r *record) storeNextFree(v uint32)    { atomic.StoreUint32(&r.nextFree, v) }
func (r *record) casNextFree(old, new uint32) bool {
	return atomic.CompareAndSwapUint32(&r.nextFree, old, new)
}

// setLabel writes a NUL-terminated label into a fixed-size field, truncating
// if necessary. Single-writer convention: callers must only do this once, at
// allocation time (spec.md §4.2).
func setLabel(dst *[labelSize]byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := copy(dst[:len(dst)-1], s)
	_ = n
}

func labelString(src *[labelSize]byte) string {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}
