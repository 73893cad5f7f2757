// Package vfs watches /dev/shm for the create/remove events that let
// cmd/xmem-gc report shared-memory regions no running pool still owns. It
// generalizes the teacher's internal/runtime/vfs fsnotify watcher, trimmed
// to the single concern xmem-gc needs: the polling SimpleWatcher and the
// generic FileSystem abstraction that file served had no counterpart in
// this domain, so only the fsnotify-backed Watcher survives here.
package vfs

import "github.com/fsnotify/fsnotify"

// WatchOp indicates a change operation observed on a path.
type WatchOp uint32

const (
	OpCreate WatchOp = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event describes a change to a path under a watched directory.
type Event struct {
	Path string
	Op   WatchOp
}

// Watcher is a platform watcher over one or more directories.
type Watcher interface {
	Events() <-chan Event
	Errors() <-chan error
	Add(name string) error
	Remove(name string) error
	Close() error
}

// FSNotifyWatcher implements Watcher over github.com/fsnotify/fsnotify.
type FSNotifyWatcher struct {
	w      *fsnotify.Watcher
	evC    chan Event
	erC    chan error
	filter func(path string) bool
}

// NewWatcher creates an FSNotifyWatcher and starts its translation loop. A
// caller watching a directory shared with unrelated processes (xmem-gc
// watches /dev/shm, which holds every POSIX shared-memory segment on the
// host, not just xmem's) can pass a filter to drop events for paths it has
// no business reacting to; a nil filter forwards everything.
func NewWatcher(filter func(path string) bool) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &FSNotifyWatcher{w: w, evC: make(chan Event, 128), erC: make(chan error, 1), filter: filter}
	go fw.loop()
	return fw, nil
}

func (fw *FSNotifyWatcher) loop() {
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if fw.filter != nil && !fw.filter(ev.Name) {
				continue
			}
			var op WatchOp
			if ev.Op&fsnotify.Create != 0 {
				op |= OpCreate
			}
			if ev.Op&fsnotify.Write != 0 {
				op |= OpWrite
			}
			if ev.Op&fsnotify.Remove != 0 {
				op |= OpRemove
			}
			if ev.Op&fsnotify.Rename != 0 {
				op |= OpRename
			}
			if ev.Op&fsnotify.Chmod != 0 {
				op |= OpChmod
			}
			fw.evC <- Event{Path: ev.Name, Op: op}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			fw.erC <- err
		}
	}
}

func (fw *FSNotifyWatcher) Events() <-chan Event     { return fw.evC }
func (fw *FSNotifyWatcher) Errors() <-chan error     { return fw.erC }
func (fw *FSNotifyWatcher) Add(name string) error    { return fw.w.Add(name) }
func (fw *FSNotifyWatcher) Remove(name string) error { return fw.w.Remove(name) }
func (fw *FSNotifyWatcher) Close() error             { return fw.w.Close() }
