package xmem

// bufferPayload is satisfied by both hostBuffer and deviceBuffer: the
// locally-mapped/imported backing data a Handle owns.
type bufferPayload interface {
	storageKind() StorageKind
	byteLen() int
	close() error
}

// Handle is a scoped accessor tying a metadata index to a mapped/imported
// data region and an access mode (spec.md §4.5). Go has no destructors, so
// the RAII "drop" of the original design is this type's explicit Close
// method — callers are expected to `defer h.Close()` the way they would
// `defer f.Close()` on an *os.File.
type Handle struct {
	index uint32
	mode  AccessMode
	meta  *record
	data  bufferPayload

	// detached records that Detach (not Close) released the local mapping,
	// so Close must not also decrement the reference count.
	detached bool
	closed   bool
}

func newHandle(index uint32, mode AccessMode, meta *record, data bufferPayload) *Handle {
	return &Handle{index: index, mode: mode, meta: meta, data: data}
}

// Index returns the meta-index this handle was acquired or opened with.
func (h *Handle) Index() uint32 { return h.index }

// Mode returns the handle's access mode.
func (h *Handle) Mode() AccessMode { return h.mode }

// IsValid reports whether the handle still owns its backing data: false
// once Close or Detach has run.
func (h *Handle) IsValid() bool { return !h.closed && h.data != nil }

// Size returns the buffer's payload size in bytes, as recorded in metadata.
func (h *Handle) Size() uint64 { return h.meta.loadSize() }

// Bytes returns a read view of a host buffer's contents. Device buffers
// report KindTypeMismatch: a device pointer is not a meaningful Go slice.
func (h *Handle) Bytes() ([]byte, error) {
	if h.closed {
		return nil, ErrAlreadyDetached
	}
	hb, ok := h.data.(*hostBuffer)
	if !ok {
		return nil, typeMismatchErr("host", "device")
	}
	n := int(h.meta.loadSize())
	if n > len(hb.slice()) {
		n = len(hb.slice())
	}
	return hb.slice()[:n], nil
}

// BytesMut returns a mutable view of a host buffer's contents. It fails
// with KindReadOnly if the handle's mode is ReadOnly.
func (h *Handle) BytesMut() ([]byte, error) {
	if h.mode == ReadOnly {
		return nil, ErrReadOnly
	}
	return h.Bytes()
}

// DevicePtr returns the raw device pointer of a device buffer. Host buffers
// report KindTypeMismatch.
func (h *Handle) DevicePtr() (uint64, error) {
	if h.closed {
		return 0, ErrAlreadyDetached
	}
	db, ok := h.data.(*deviceBuffer)
	if !ok {
		return 0, typeMismatchErr("device", "host")
	}
	return db.ptr, nil
}

// DevicePtrMut is DevicePtr, additionally failing with KindReadOnly if the
// handle's mode is ReadOnly.
func (h *Handle) DevicePtrMut() (uint64, error) {
	if h.mode == ReadOnly {
		return 0, ErrReadOnly
	}
	return h.DevicePtr()
}

// Detach consumes the handle without decrementing the reference count: the
// escape hatch for transferring buffer ownership to another process (spec.md
// §4.5). It still tears down this handle's own local mapping/import — a
// peer obtains its own via Pool.Get — it just skips the ref_count decrement.
func (h *Handle) Detach() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.detached = true
	if h.data == nil {
		return nil
	}
	err := h.data.close()
	h.data = nil
	return err
}

// Close releases the handle's local mapping/import and, unless the handle
// was already Detached, atomically decrements the slot's reference count.
// Errors from closing the local payload (e.g. a failed CUDA IPC close) are
// reported here but never block the reference-count decrement, matching
// spec.md §7's "errors during handle drop are swallowed" for the case where
// a caller chooses not to check Close's return value.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	var err error
	if h.data != nil {
		err = h.data.close()
		h.data = nil
	}
	if !h.detached {
		h.meta.addRefCount(-1)
	}
	return err
}
