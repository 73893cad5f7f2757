//go:build !cuda

package xmem

// stubCudaDriver backs defaultCudaDriver when this module is built without
// the cuda build tag. Every method reports KindCuda so callers see the same
// error shape they would from a real driver failure, not a panic or a
// silently-wrong success.
type stubCudaDriver struct{}

func (stubCudaDriver) AllocZeroed(int32, uint64) (uint64, error) {
	return 0, cudaErr("device support not built (rebuild with -tags cuda)")
}

func (stubCudaDriver) GetIPCHandle(uint64) ([DeviceIPCHandleSize]byte, error) {
	var h [DeviceIPCHandleSize]byte
	return h, cudaErr("device support not built (rebuild with -tags cuda)")
}

func (stubCudaDriver) OpenIPCHandle(int32, [DeviceIPCHandleSize]byte) (uint64, error) {
	return 0, cudaErr("device support not built (rebuild with -tags cuda)")
}

func (stubCudaDriver) CloseIPCHandle(uint64) error {
	return cudaErr("device support not built (rebuild with -tags cuda)")
}

func (stubCudaDriver) Free(uint64) error {
	return cudaErr("device support not built (rebuild with -tags cuda)")
}

var defaultCudaDriver cudaDriver = stubCudaDriver{}
