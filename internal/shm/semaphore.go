package shm

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/carla-project/carla-engine/pkg/carlaerr"
)

// SemaphorePair is the bridge's two-semaphore handshake (spec §6): the
// parent posts ServerReady to tell the child a block is waiting, the
// child posts ClientReady once it has processed it. Exactly one side
// ever posts each semaphore, so no count beyond 0/1 is ever needed.
type SemaphorePair struct {
	serverID int
	clientID int
	owner    bool
}

// CreatePair allocates a fresh SysV semaphore set keyed by key, owned by
// the bridge parent.
func CreatePair(key int) (*SemaphorePair, error) {
	serverID, err := unix.Semget(key, 1, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
	if err != nil {
		return nil, carlaerr.Wrap(carlaerr.Driver, fmt.Sprintf("shm: semget server key=%d", key), err)
	}
	clientID, err := unix.Semget(key+1, 1, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
	if err != nil {
		return nil, carlaerr.Wrap(carlaerr.Driver, fmt.Sprintf("shm: semget client key=%d", key+1), err)
	}
	return &SemaphorePair{serverID: serverID, clientID: clientID, owner: true}, nil
}

// OpenPair attaches to a semaphore set the parent already created,
// called from the bridge child after reading key from its Handshake.
func OpenPair(key int) (*SemaphorePair, error) {
	serverID, err := unix.Semget(key, 1, 0o600)
	if err != nil {
		return nil, carlaerr.Wrap(carlaerr.Driver, fmt.Sprintf("shm: semget attach server key=%d", key), err)
	}
	clientID, err := unix.Semget(key+1, 1, 0o600)
	if err != nil {
		return nil, carlaerr.Wrap(carlaerr.Driver, fmt.Sprintf("shm: semget attach client key=%d", key+1), err)
	}
	return &SemaphorePair{serverID: serverID, clientID: clientID}, nil
}

func post(id int) error {
	op := []unix.Sembuf{{SemNum: 0, SemOp: 1}}
	return unix.Semop(id, op, nil)
}

func wait(id int) error {
	op := []unix.Sembuf{{SemNum: 0, SemOp: -1}}
	return unix.Semop(id, op, nil)
}

// PostServer signals the child that a new block is ready in the audio page.
func (p *SemaphorePair) PostServer() error {
	if err := post(p.serverID); err != nil {
		return carlaerr.Wrap(carlaerr.RtDrainTimeout, "shm: post server semaphore", err)
	}
	return nil
}

// WaitServer blocks until the parent has posted a new block (called
// from the bridge child).
func (p *SemaphorePair) WaitServer() error {
	if err := wait(p.serverID); err != nil {
		return carlaerr.Wrap(carlaerr.RtDrainTimeout, "shm: wait server semaphore", err)
	}
	return nil
}

// PostClient signals the parent that the child finished processing the block.
func (p *SemaphorePair) PostClient() error {
	if err := post(p.clientID); err != nil {
		return carlaerr.Wrap(carlaerr.RtDrainTimeout, "shm: post client semaphore", err)
	}
	return nil
}

// WaitClient blocks until the child has posted completion (called from
// the bridge parent inside RequestProcess).
func (p *SemaphorePair) WaitClient() error {
	if err := wait(p.clientID); err != nil {
		return carlaerr.Wrap(carlaerr.RtDrainTimeout, "shm: wait client semaphore", err)
	}
	return nil
}

// Close releases the semaphore set. Only the owning (parent) side
// should call this, once the child has exited.
func (p *SemaphorePair) Close() error {
	if !p.owner {
		return nil
	}
	if _, err := unix.SemctlInt(p.serverID, 0, unix.IPC_RMID, 0); err != nil {
		return carlaerr.Wrap(carlaerr.Driver, "shm: remove server semaphore", err)
	}
	if _, err := unix.SemctlInt(p.clientID, 0, unix.IPC_RMID, 0); err != nil {
		return carlaerr.Wrap(carlaerr.Driver, "shm: remove client semaphore", err)
	}
	return nil
}
