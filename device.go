package xmem

// cudaDriver is the GPU driver IPC primitive spec.md §6 treats as an
// external collaborator: device memory allocation plus IPC handle
// export/import/close. Abstracted behind an interface so the allocator-vs-
// importer teardown logic in deviceBuffer.close can be tested with a
// hand-written go.uber.org/mock-style fake on any machine, CUDA hardware or
// not.
type cudaDriver interface {
	// AllocZeroed allocates size zero-initialized bytes on deviceID.
	AllocZeroed(deviceID int32, size uint64) (ptr uint64, err error)
	// GetIPCHandle exports an IPC handle for a pointer owned by this process.
	GetIPCHandle(ptr uint64) (handle [DeviceIPCHandleSize]byte, err error)
	// OpenIPCHandle imports a peer's IPC handle, with a "lazy peer access" hint.
	OpenIPCHandle(deviceID int32, handle [DeviceIPCHandleSize]byte) (ptr uint64, err error)
	// CloseIPCHandle releases an imported pointer without freeing the
	// underlying allocation (the allocator process still owns it).
	CloseIPCHandle(ptr uint64) error
	// Free releases an allocation this process owns.
	Free(ptr uint64) error
}

// deviceBuffer is the Device Storage Backend (spec.md §4.4(b)). It must
// distinguish the allocator, which frees on teardown, from the importer,
// which only closes its IPC handle — freeing an imported pointer corrupts
// the driver state.
type deviceBuffer struct {
	driver   cudaDriver
	deviceID int32
	ptr      uint64
	sz       uint64
	handle   [DeviceIPCHandleSize]byte
	imported bool
}

func allocDeviceBuffer(driver cudaDriver, deviceID int32, size uint64) (*deviceBuffer, error) {
	ptr, err := driver.AllocZeroed(deviceID, size)
	if err != nil {
		return nil, cudaErr("alloc: %v", err)
	}
	handle, err := driver.GetIPCHandle(ptr)
	if err != nil {
		_ = driver.Free(ptr)
		return nil, cudaErr("get ipc handle: %v", err)
	}
	return &deviceBuffer{driver: driver, deviceID: deviceID, ptr: ptr, sz: size, handle: handle}, nil
}

func importDeviceBuffer(driver cudaDriver, deviceID int32, handle [DeviceIPCHandleSize]byte, size uint64) (*deviceBuffer, error) {
	ptr, err := driver.OpenIPCHandle(deviceID, handle)
	if err != nil {
		return nil, cudaErr("open ipc handle: %v", err)
	}
	return &deviceBuffer{driver: driver, deviceID: deviceID, ptr: ptr, sz: size, handle: handle, imported: true}, nil
}

func (d *deviceBuffer) storageKind() StorageKind { return StorageDevice }
func (d *deviceBuffer) byteLen() int             { return int(d.sz) }

// close tears down the device allocation. Errors from the driver are
// swallowed by the caller (spec.md §7: "errors during handle drop ... are
// swallowed"); close itself still reports them so callers that do want to
// observe a close failure (e.g. tests) can.
func (d *deviceBuffer) close() error {
	if d.imported {
		if err := d.driver.CloseIPCHandle(d.ptr); err != nil {
			return cudaErr("close ipc handle: %v", err)
		}
		return nil
	}
	if err := d.driver.Free(d.ptr); err != nil {
		return cudaErr("free: %v", err)
	}
	return nil
}
