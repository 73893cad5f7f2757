package xmem

import (
	"fmt"
	"os"
	"testing"
	"time"
)

func newTestPool(t *testing.T, capacity int) *Pool {
	t.Helper()
	name := fmt.Sprintf("/xmem_pool_test_%d_%s", os.Getpid(), t.Name())
	p, err := CreateWithCapacity(name, capacity)
	if err != nil {
		t.Fatalf("CreateWithCapacity: %v", err)
	}
	t.Cleanup(func() {
		p.Close()
		unlinkRegion(metaRegionName(name))
	})
	return p
}

func TestPool_CreateOpenRoundTrip(t *testing.T) {
	name := fmt.Sprintf("/xmem_pool_open_test_%d", os.Getpid())
	p, err := CreateWithCapacity(name, 8)
	if err != nil {
		t.Fatalf("CreateWithCapacity: %v", err)
	}
	defer func() {
		p.Close()
		unlinkRegion(metaRegionName(name))
	}()

	if p.Name() != name {
		t.Errorf("Name() = %q, want %q", p.Name(), name)
	}
	if p.Capacity() != 8 {
		t.Errorf("Capacity() = %d, want 8", p.Capacity())
	}
	if !p.IsOwner() {
		t.Error("IsOwner() = false for a pool this process created")
	}

	opened, err := Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer opened.Close()

	if opened.Capacity() != 8 {
		t.Errorf("opened.Capacity() = %d, want 8", opened.Capacity())
	}
	if opened.IsOwner() {
		t.Error("IsOwner() = true for a pool this process only opened")
	}
}

func TestPool_AcquireHostWriteReadRelease(t *testing.T) {
	p := newTestPool(t, 4)

	h, err := p.AcquireHost(64)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	buf, err := h.BytesMut()
	if err != nil {
		t.Fatalf("BytesMut: %v", err)
	}
	copy(buf, []byte("hello xmem"))
	index := h.Index()

	if err := h.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}

	peer, err := p.Get(index)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer peer.Close()

	got, err := peer.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(got[:10]) != "hello xmem" {
		t.Errorf("Bytes() = %q, want %q", got[:10], "hello xmem")
	}

	if _, err := peer.BytesMut(); err != ErrReadOnly {
		t.Errorf("BytesMut() on a Pool.Get handle = %v, want ErrReadOnly", err)
	}

	refs, err := p.RefCount(index)
	if err != nil {
		t.Fatalf("RefCount: %v", err)
	}
	if refs != 2 {
		t.Errorf("RefCount() = %d, want 2 (Detach left it at 1, Get incremented it)", refs)
	}
}

func TestPool_GetReadOnlyRejectsWrite(t *testing.T) {
	p := newTestPool(t, 4)

	h, err := p.AcquireHost(16)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	index := h.Index()
	if err := h.Detach(); err != nil {
		t.Fatalf("Detach: %v", err)
	}

	ro, err := p.Get(index)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer ro.Close()

	if _, err := ro.BytesMut(); err != ErrReadOnly {
		t.Errorf("BytesMut() on a Get handle = %v, want ErrReadOnly", err)
	}
}

func TestPool_TryReleaseRecyclesOnlyAtZero(t *testing.T) {
	p := newTestPool(t, 1)

	h, err := p.AcquireHost(8)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	index := h.Index()

	if _, err := p.AddRef(index); err != nil {
		t.Fatalf("AddRef: %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	freed, err := p.TryRelease(index)
	if err != nil {
		t.Fatalf("TryRelease: %v", err)
	}
	if freed {
		t.Fatal("TryRelease freed the slot while ref_count was still 1")
	}

	if _, err := p.Release(index); err != nil {
		t.Fatalf("Release: %v", err)
	}

	freed, err = p.TryRelease(index)
	if err != nil {
		t.Fatalf("TryRelease: %v", err)
	}
	if !freed {
		t.Fatal("TryRelease did not free the slot once ref_count reached 0")
	}

	if _, err := p.AcquireHost(8); err != nil {
		t.Fatalf("AcquireHost after recycle: %v", err)
	}
}

func TestPool_AcquireHostBlockingTimesOutWhenFull(t *testing.T) {
	p := newTestPool(t, 1)

	h, err := p.AcquireHost(8)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	defer h.Close()

	_, err = p.AcquireHostBlocking(8, 20*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("AcquireHostBlocking on a full pool = %v, want ErrTimeout", err)
	}
}

func TestPool_AcquireHostBlockingSucceedsOnceFreed(t *testing.T) {
	p := newTestPool(t, 1)

	h, err := p.AcquireHost(8)
	if err != nil {
		t.Fatalf("AcquireHost: %v", err)
	}
	index := h.Index()

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Close()
		p.TryRelease(index)
	}()

	h2, err := p.AcquireHostBlocking(8, time.Second)
	if err != nil {
		t.Fatalf("AcquireHostBlocking: %v", err)
	}
	h2.Close()
	p.TryRelease(h2.Index())
}

func TestPool_PreallocateHost(t *testing.T) {
	p := newTestPool(t, 4)

	indices, err := p.PreallocateHost(32, 3)
	if err != nil {
		t.Fatalf("PreallocateHost: %v", err)
	}
	if len(indices) != 3 {
		t.Fatalf("len(indices) = %d, want 3", len(indices))
	}
	if p.Allocated() != 3 {
		t.Errorf("Allocated() = %d, want 3", p.Allocated())
	}
	for _, idx := range indices {
		if refs, err := p.RefCount(idx); err != nil || refs != 1 {
			t.Errorf("RefCount(%d) = %d, %v; want 1, nil", idx, refs, err)
		}
	}
}

func TestPool_GetUnknownIndexFails(t *testing.T) {
	p := newTestPool(t, 2)

	if _, err := p.Get(5); err == nil {
		t.Fatal("Get(5) on a 2-capacity pool: got nil error, want an out-of-bounds error")
	}
}
