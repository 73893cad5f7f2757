package xmem

import "testing"

func TestHandle_DetachSkipsRefCountDecrement(t *testing.T) {
	p := newTestPool(t, 2)

	h, err := p.AcquireHost(16)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	index := h.Index()

	if err := h.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if h.IsValid() {
		t.Error("IsValid() = true after Detach")
	}

	refs, err := p.RefCount(index)
	if err != nil {
		t.Fatalf("RefCount: %v", err)
	}
	if refs != 1 {
		t.Errorf("RefCount() after Detach = %d, want 1 (unchanged)", refs)
	}

	// Detach is idempotent.
	if err := h.Detach(); err != nil {
		t.Errorf("second Detach: %v", err)
	}
}

func TestHandle_CloseDecrementsRefCount(t *testing.T) {
	p := newTestPool(t, 2)

	h, err := p.AcquireHost(16)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	index := h.Index()

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	refs, err := p.RefCount(index)
	if err != nil {
		t.Fatalf("RefCount: %v", err)
	}
	if refs != 0 {
		t.Errorf("RefCount() after Close = %d, want 0", refs)
	}

	// Close is idempotent and must not decrement twice.
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	refs, _ = p.RefCount(index)
	if refs != 0 {
		t.Errorf("RefCount() after second Close = %d, want 0 (no double-decrement)", refs)
	}
}

func TestHandle_BytesAfterCloseFails(t *testing.T) {
	p := newTestPool(t, 2)

	h, err := p.AcquireHost(16)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := h.Bytes(); err != ErrAlreadyDetached {
		t.Errorf("Bytes() after Close = %v, want ErrAlreadyDetached", err)
	}
}

func TestHandle_DeviceAccessorsOnHostBufferMismatch(t *testing.T) {
	p := newTestPool(t, 2)

	h, err := p.AcquireHost(16)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	defer h.Close()

	if _, err := h.DevicePtr(); err == nil {
		t.Fatal("DevicePtr() on a host handle: got nil error, want KindTypeMismatch")
	} else if xerr, ok := err.(*Error); !ok || xerr.Kind != KindTypeMismatch {
		t.Errorf("DevicePtr() error = %v, want KindTypeMismatch", err)
	}
}

func TestHandle_IndexAndModeAndSize(t *testing.T) {
	p := newTestPool(t, 2)

	h, err := p.AcquireHost(128)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	defer h.Close()

	if h.Mode() != ReadWrite {
		t.Errorf("Mode() = %v, want ReadWrite", h.Mode())
	}
	if h.Size() != 128 {
		t.Errorf("Size() = %d, want 128", h.Size())
	}
	if !h.IsValid() {
		t.Error("IsValid() = false for a freshly acquired handle")
	}
}

func TestError_IsMatchesByKindOnly(t *testing.T) {
	err := bufferNotFoundErr(42)
	if err.Error() == "" {
		t.Fatal("Error() returned empty string")
	}
	if !errorsIsBufferNotFound(err) {
		t.Error("errors.Is(err, ErrBufferNotFound) = false")
	}
}

// errorsIsBufferNotFound checks err against ErrBufferNotFound via *Error.Is
// directly, without pulling in the stdlib errors package for one call.
func errorsIsBufferNotFound(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Is(ErrBufferNotFound)
}
