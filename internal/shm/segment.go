// Package shm implements the mmap-backed shared-memory segments and the
// SysV semaphore pair the bridge wire protocol uses to hand audio
// blocks between the engine process and a bridged plugin sub-process
// (spec §6). It reaches for golang.org/x/sys/unix the same way
// doismellburning-samoyed's cm108/ptt helpers do for raw file-descriptor
// and ioctl-level work, rather than hand-rolling cgo shm bindings.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
)

// Segment is one mmap'd, named region backing either the bridge's audio
// page or its event page.
type Segment struct {
	path string
	file *os.File
	data []byte
}

// Create allocates (or truncates) a segment of size bytes at path and
// maps it read-write. The caller owns unlinking it via Unlink.
func Create(path string, size int) (*Segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, carlaerr.Wrap(carlaerr.Driver, fmt.Sprintf("shm: create %s", path), err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, carlaerr.Wrap(carlaerr.Driver, fmt.Sprintf("shm: truncate %s", path), err)
	}
	return mapFile(path, f, size)
}

// Open maps an existing segment at path, sized size bytes, for a bridge
// child to attach to after its parent created it.
func Open(path string, size int) (*Segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, carlaerr.Wrap(carlaerr.Driver, fmt.Sprintf("shm: open %s", path), err)
	}
	return mapFile(path, f, size)
}

func mapFile(path string, f *os.File, size int) (*Segment, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, carlaerr.Wrap(carlaerr.Driver, fmt.Sprintf("shm: mmap %s", path), err)
	}
	return &Segment{path: path, file: f, data: data}, nil
}

// Bytes returns the mapped region. Callers on both sides of the bridge
// read/write through this slice directly; the two-semaphore handshake
// (see Semaphores) is what keeps the accesses from racing.
func (s *Segment) Bytes() []byte { return s.data }

// Path returns the filesystem path the segment is backed by, passed to
// the child process so it can Open the same segment.
func (s *Segment) Path() string { return s.path }

// Close unmaps the segment and closes its backing file descriptor.
func (s *Segment) Close() error {
	var firstErr error
	if err := unix.Munmap(s.data); err != nil {
		firstErr = carlaerr.Wrap(carlaerr.Driver, "shm: munmap", err)
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = carlaerr.Wrap(carlaerr.Driver, "shm: close", err)
	}
	return firstErr
}

// Unlink removes the backing file. Only the segment's creator should
// call this, and only after both sides have Closed their mapping.
func (s *Segment) Unlink() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return carlaerr.Wrap(carlaerr.Driver, "shm: unlink", err)
	}
	return nil
}
