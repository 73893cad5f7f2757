package xmem

import (
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockCudaDriver is a gomock-style mock of cudaDriver, hand-written in the
// shape mockgen would generate, since this module has no CUDA toolchain
// available to drive mockgen against a cgo-gated interface.
type MockCudaDriver struct {
	ctrl     *gomock.Controller
	recorder *MockCudaDriverRecorder
}

type MockCudaDriverRecorder struct {
	mock *MockCudaDriver
}

func NewMockCudaDriver(ctrl *gomock.Controller) *MockCudaDriver {
	m := &MockCudaDriver{ctrl: ctrl}
	m.recorder = &MockCudaDriverRecorder{mock: m}
	return m
}

func (m *MockCudaDriver) EXPECT() *MockCudaDriverRecorder { return m.recorder }

func (m *MockCudaDriver) AllocZeroed(deviceID int32, size uint64) (uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AllocZeroed", deviceID, size)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockCudaDriverRecorder) AllocZeroed(deviceID, size interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AllocZeroed", reflect.TypeOf((*MockCudaDriver)(nil).AllocZeroed), deviceID, size)
}

func (m *MockCudaDriver) GetIPCHandle(ptr uint64) ([DeviceIPCHandleSize]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetIPCHandle", ptr)
	ret0, _ := ret[0].([DeviceIPCHandleSize]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockCudaDriverRecorder) GetIPCHandle(ptr interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetIPCHandle", reflect.TypeOf((*MockCudaDriver)(nil).GetIPCHandle), ptr)
}

func (m *MockCudaDriver) OpenIPCHandle(deviceID int32, handle [DeviceIPCHandleSize]byte) (uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OpenIPCHandle", deviceID, handle)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockCudaDriverRecorder) OpenIPCHandle(deviceID, handle interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OpenIPCHandle", reflect.TypeOf((*MockCudaDriver)(nil).OpenIPCHandle), deviceID, handle)
}

func (m *MockCudaDriver) CloseIPCHandle(ptr uint64) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CloseIPCHandle", ptr)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockCudaDriverRecorder) CloseIPCHandle(ptr interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CloseIPCHandle", reflect.TypeOf((*MockCudaDriver)(nil).CloseIPCHandle), ptr)
}

func (m *MockCudaDriver) Free(ptr uint64) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Free", ptr)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockCudaDriverRecorder) Free(ptr interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Free", reflect.TypeOf((*MockCudaDriver)(nil).Free), ptr)
}
