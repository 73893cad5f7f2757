// Package xmem implements a cross-process shared-memory buffer pool: one
// process creates a named pool and acquires a buffer, peer processes open
// the same pool by name and map the same physical bytes, and each buffer is
// addressed by a small stable meta-index cheap enough to ship over a
// socket, pipe or queue.
//
// xmem synchronizes only the metadata plane (allocation, reference counts,
// the free list) through atomic operations on a shared metadata region; it
// never synchronizes buffer contents, and it never reclaims a buffer whose
// last owning process crashed before releasing it. See DESIGN.md for the
// implementation's grounding and SPEC_FULL.md for the full requirements.
package xmem
