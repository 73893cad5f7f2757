package xmem

import "fmt"

// hostBuffer is the Host Storage Backend (spec.md §4.4(a)): one shared
// region per buffer, named "<pool>_buf_<index>".
type hostBuffer struct {
	reg *region
}

func bufferRegionName(poolName string, index uint32) string {
	return fmt.Sprintf("%s_buf_%d", poolName, index)
}

func createHostBuffer(poolName string, index uint32, size uint64) (*hostBuffer, error) {
	name := bufferRegionName(poolName, index)
	reg, err := createRegion(name, int(size))
	if err != nil {
		// A recycled index finds the data region of its previous allocation
		// still in place (release never unlinks it). That region is reused,
		// previous contents included, when it is at least size bytes long.
		existing, oerr := openRegion(name)
		if oerr != nil {
			return nil, err
		}
		if uint64(existing.len()) < size {
			_ = existing.drop()
			return nil, err
		}
		reg = existing
	}
	return &hostBuffer{reg: reg}, nil
}

func openHostBuffer(poolName string, index uint32, size uint64) (*hostBuffer, error) {
	reg, err := openRegion(bufferRegionName(poolName, index))
	if err != nil {
		return nil, err
	}
	return &hostBuffer{reg: reg}, nil
}

func (h *hostBuffer) storageKind() StorageKind { return StorageHost }
func (h *hostBuffer) byteLen() int             { return h.reg.len() }

func (h *hostBuffer) slice() []byte { return h.reg.data }

func (h *hostBuffer) close() error { return h.reg.drop() }
