//go:build cuda

package xmem

// #cgo LDFLAGS: -lcuda
// #include <cuda.h>
//
// static CUresult xmem_init(void) { return cuInit(0); }
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

var cudaInitOnce sync.Once
var cudaInitErr error

func ensureCudaInit() error {
	cudaInitOnce.Do(func() {
		if res := C.xmem_init(); res != C.CUDA_SUCCESS {
			cudaInitErr = fmt.Errorf("cuInit failed: %d", int(res))
		}
	})
	return cudaInitErr
}

// realCudaDriver calls the CUDA driver API directly via cgo. It backs
// defaultCudaDriver when this module is built with -tags cuda.
type realCudaDriver struct{}

func (realCudaDriver) AllocZeroed(deviceID int32, size uint64) (uint64, error) {
	if err := ensureCudaInit(); err != nil {
		return 0, err
	}

	var dev C.CUdevice
	if res := C.cuDeviceGet(&dev, C.int(deviceID)); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("cuDeviceGet failed: %d", int(res))
	}

	var ctx C.CUcontext
	if res := C.cuDevicePrimaryCtxRetain(&ctx, dev); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("cuDevicePrimaryCtxRetain failed: %d", int(res))
	}
	if res := C.cuCtxSetCurrent(ctx); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("cuCtxSetCurrent failed: %d", int(res))
	}

	var devPtr C.CUdeviceptr
	if res := C.cuMemAlloc(&devPtr, C.size_t(size)); res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("cuMemAlloc failed: %d", int(res))
	}
	if res := C.cuMemsetD8(devPtr, 0, C.size_t(size)); res != C.CUDA_SUCCESS {
		C.cuMemFree(devPtr)
		return 0, fmt.Errorf("cuMemsetD8 failed: %d", int(res))
	}

	return uint64(devPtr), nil
}

func (realCudaDriver) GetIPCHandle(ptr uint64) ([DeviceIPCHandleSize]byte, error) {
	var handle [DeviceIPCHandleSize]byte
	var cHandle C.CUipcMemHandle
	if res := C.cuIpcGetMemHandle(&cHandle, C.CUdeviceptr(ptr)); res != C.CUDA_SUCCESS {
		return handle, fmt.Errorf("cuIpcGetMemHandle failed: %d", int(res))
	}
	copy(handle[:], C.GoBytes(unsafe.Pointer(&cHandle.reserved[0]), C.int(len(handle))))
	return handle, nil
}

func (realCudaDriver) OpenIPCHandle(deviceID int32, handle [DeviceIPCHandleSize]byte) (uint64, error) {
	if err := ensureCudaInit(); err != nil {
		return 0, err
	}

	var cHandle C.CUipcMemHandle
	for i := 0; i < len(handle) && i < len(cHandle.reserved); i++ {
		cHandle.reserved[i] = C.char(handle[i])
	}

	var devPtr C.CUdeviceptr
	res := C.cuIpcOpenMemHandle(&devPtr, cHandle, C.CU_IPC_MEM_LAZY_ENABLE_PEER_ACCESS)
	if res != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("cuIpcOpenMemHandle failed: %d", int(res))
	}
	return uint64(devPtr), nil
}

func (realCudaDriver) CloseIPCHandle(ptr uint64) error {
	if res := C.cuIpcCloseMemHandle(C.CUdeviceptr(ptr)); res != C.CUDA_SUCCESS {
		return fmt.Errorf("cuIpcCloseMemHandle failed: %d", int(res))
	}
	return nil
}

func (realCudaDriver) Free(ptr uint64) error {
	if res := C.cuMemFree(C.CUdeviceptr(ptr)); res != C.CUDA_SUCCESS {
		return fmt.Errorf("cuMemFree failed: %d", int(res))
	}
	return nil
}

var defaultCudaDriver cudaDriver = realCudaDriver{}
