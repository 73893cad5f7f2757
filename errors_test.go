package xmem

import (
	"errors"
	"testing"
)

func TestError_ErrorsIsAcrossInstances(t *testing.T) {
	a := bufferNotFoundErr(1)
	b := bufferNotFoundErr(2)

	if !errors.Is(a, ErrBufferNotFound) {
		t.Error("errors.Is(a, ErrBufferNotFound) = false")
	}
	if !errors.Is(b, ErrBufferNotFound) {
		t.Error("errors.Is(b, ErrBufferNotFound) = false")
	}
	if errors.Is(a, ErrTimeout) {
		t.Error("errors.Is(a, ErrTimeout) = true, want false")
	}
}

func TestError_MessageFormatting(t *testing.T) {
	err := typeMismatchErr("host", "device")
	want := "buffer type mismatch: expected host, got device"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	nf := bufferNotFoundErr(7)
	want = "buffer not found: index 7"
	if nf.Error() != want {
		t.Errorf("Error() = %q, want %q", nf.Error(), want)
	}
}

func TestKind_String(t *testing.T) {
	if KindSharedMemory.String() != "shared memory" {
		t.Errorf("KindSharedMemory.String() = %q", KindSharedMemory.String())
	}
	if Kind(999).String() != "unknown" {
		t.Errorf("Kind(999).String() = %q, want %q", Kind(999).String(), "unknown")
	}
}
