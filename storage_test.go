package xmem

import "testing"

func TestDType_Size(t *testing.T) {
	cases := []struct {
		dt   DType
		want int
	}{
		{DTypeUint8, 1},
		{DTypeInt8, 1},
		{DTypeUint16, 2},
		{DTypeFloat16, 2},
		{DTypeUint32, 4},
		{DTypeFloat32, 4},
		{DTypeUint64, 8},
		{DTypeFloat64, 8},
		{DType(255), 0},
	}

	for _, tc := range cases {
		if got := tc.dt.Size(); got != tc.want {
			t.Errorf("DType(%d).Size() = %d, want %d", tc.dt, got, tc.want)
		}
	}
}

func TestStorageKind_String(t *testing.T) {
	if StorageHost.String() != "host" {
		t.Errorf("StorageHost.String() = %q, want %q", StorageHost.String(), "host")
	}
	if StorageDevice.String() != "device" {
		t.Errorf("StorageDevice.String() = %q, want %q", StorageDevice.String(), "device")
	}
	if StorageKind(99).String() != "unknown" {
		t.Errorf("StorageKind(99).String() = %q, want %q", StorageKind(99).String(), "unknown")
	}
}

func TestAccessMode_String(t *testing.T) {
	if ReadOnly.String() != "read-only" {
		t.Errorf("ReadOnly.String() = %q, want %q", ReadOnly.String(), "read-only")
	}
	if ReadWrite.String() != "read-write" {
		t.Errorf("ReadWrite.String() = %q, want %q", ReadWrite.String(), "read-write")
	}
}
