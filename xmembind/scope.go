// Package xmembind provides a context-manager-style wrapper over xmem.Pool
// for embedding Go callers, generalizing the ergonomics the Rust project's
// xmem-python bindings give Python callers: acquire a handle, record the
// index, then detach so the wrapper — not the caller's handle — owns the
// release (spec.md §6).
package xmembind

import "github.com/dayn9t/xmem"

// Scope holds a shared reference to the pool it was opened or created
// around, for as long as any of its vended indices might still be in use.
type Scope struct {
	pool *xmem.Pool
}

// CreateScope creates a new pool and wraps it in a Scope.
func CreateScope(name string, capacity int) (*Scope, error) {
	pool, err := xmem.CreateWithCapacity(name, capacity)
	if err != nil {
		return nil, err
	}
	return &Scope{pool: pool}, nil
}

// OpenScope opens an existing pool and wraps it in a Scope.
func OpenScope(name string) (*Scope, error) {
	pool, err := xmem.Open(name)
	if err != nil {
		return nil, err
	}
	return &Scope{pool: pool}, nil
}

// Pool exposes the underlying pool for callers that need the full API.
func (s *Scope) Pool() *xmem.Pool { return s.pool }

// Produce acquires a size-byte host buffer, lets fn fill it, then detaches
// the handle so the Scope's caller — which now holds only the returned
// meta-index — owns deciding when to release it. This is the pattern every
// xmem language binding follows when handing a buffer to its host language.
func (s *Scope) Produce(size uint64, fn func([]byte) error) (uint32, error) {
	h, err := s.pool.AcquireHost(size)
	if err != nil {
		return 0, err
	}

	if fn != nil {
		buf, err := h.BytesMut()
		if err != nil {
			_ = h.Close()
			return 0, err
		}
		if err := fn(buf); err != nil {
			_ = h.Close()
			return 0, err
		}
	}

	index := h.Index()
	if err := h.Detach(); err != nil {
		return index, err
	}
	return index, nil
}

// Consume opens an existing buffer read-only, passes its bytes to fn, and
// always releases the handle afterward — the Go equivalent of entering and
// exiting a context manager around a single read.
func (s *Scope) Consume(index uint32, fn func([]byte) error) error {
	h, err := s.pool.Get(index)
	if err != nil {
		return err
	}
	defer h.Close()

	buf, err := h.Bytes()
	if err != nil {
		return err
	}
	return fn(buf)
}

// Close releases this process's mapping of the pool's metadata region. It
// does not release any individual buffer's reference count.
func (s *Scope) Close() error { return s.pool.Close() }
