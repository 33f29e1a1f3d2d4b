//go:build debug
// +build debug

package thread

import (
	"fmt"
	"runtime"
)

// checker validates which goroutine is allowed to call which part of
// the engine's API, matching the CLAP-derived main-thread/audio-thread
// split (spec §5): state mutation must happen off the audio thread,
// parameter reads must happen on it.
type checker struct {
	mainGoroutine uint64
	audioThreads  map[uint64]bool
}

func newChecker() *checker {
	return &checker{audioThreads: make(map[uint64]bool)}
}

func (c *checker) setMainThread() {
	c.mainGoroutine = goroutineID()
}

func (c *checker) markAudioThread() {
	c.audioThreads[goroutineID()] = true
}

func (c *checker) unmarkAudioThread() {
	delete(c.audioThreads, goroutineID())
}

func (c *checker) assertMainThread(op string) {
	if id := goroutineID(); id != c.mainGoroutine {
		panic(fmt.Sprintf("thread violation: %s called from goroutine %d, expected main goroutine %d", op, id, c.mainGoroutine))
	}
}

func (c *checker) assertAudioThread(op string) {
	if id := goroutineID(); !c.audioThreads[id] {
		panic(fmt.Sprintf("thread violation: %s called from non-audio goroutine %d", op, id))
	}
}

func (c *checker) assertNotAudioThread(op string) {
	if id := goroutineID(); c.audioThreads[id] {
		panic(fmt.Sprintf("thread violation: %s called from audio goroutine %d (not allowed)", op, id))
	}
}

// goroutineID extracts the running goroutine's ID from its own stack
// trace header ("goroutine <id> [...]"); there is no public runtime API
// for this, so debug builds accept the string-parse cost.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	for i := 10; i < n-1; i++ {
		if buf[i] != ' ' {
			continue
		}
		var id uint64
		for j := i + 1; j < n; j++ {
			if buf[j] < '0' || buf[j] > '9' {
				break
			}
			id = id*10 + uint64(buf[j]-'0')
		}
		return id
	}
	return 0
}

var global = newChecker()

// SetMainThread marks the calling goroutine as the main thread.
func SetMainThread() { global.setMainThread() }

// MarkAudioThread marks the calling goroutine as an audio thread.
func MarkAudioThread() { global.markAudioThread() }

// UnmarkAudioThread removes the calling goroutine's audio-thread marking.
func UnmarkAudioThread() { global.unmarkAudioThread() }

// AssertMainThread panics if the caller isn't the main thread.
func AssertMainThread(operation string) { global.assertMainThread(operation) }

// AssertAudioThread panics if the caller isn't a marked audio thread.
func AssertAudioThread(operation string) { global.assertAudioThread(operation) }

// AssertNotAudioThread panics if the caller is a marked audio thread.
func AssertNotAudioThread(operation string) { global.assertNotAudioThread(operation) }
