package event

import "sync/atomic"

// MaxEventsPerBlock is the capacity every pooled slice is pre-allocated
// to. It equals port.MaxEventsPerBlock, which this package cannot import
// (pkg/port imports pkg/event).
const MaxEventsPerBlock = 2048

// Pool hands out pre-allocated []EngineEvent slices so the rack and
// patchbay processors never allocate on the RT thread while assembling a
// block's input event slice. Where the teacher kept one sync.Pool per
// concrete event struct (ParamValueEvent, NoteEvent, ...), EngineEvent is
// a single tagged type, so one pool of reusable slices covers every kind.
type Pool struct {
	free chan []EngineEvent

	hits      uint64
	misses    uint64
	highWater uint64
	inUse     uint64
}

// NewPool creates a pool of slices, each pre-allocated to MaxEventsPerBlock
// capacity, with depth pre-populated entries ready to hand out immediately.
func NewPool(depth int) *Pool {
	p := &Pool{free: make(chan []EngineEvent, depth)}
	for i := 0; i < depth; i++ {
		p.free <- make([]EngineEvent, 0, MaxEventsPerBlock)
	}
	return p
}

// Get returns an empty, zero-length slice ready to be appended to.
func (p *Pool) Get() []EngineEvent {
	select {
	case s := <-p.free:
		atomic.AddUint64(&p.hits, 1)
		p.bumpInUse(1)
		return s[:0]
	default:
		atomic.AddUint64(&p.misses, 1)
		p.bumpInUse(1)
		return make([]EngineEvent, 0, MaxEventsPerBlock)
	}
}

// Put returns a slice to the pool for reuse. Slices above
// MaxEventsPerBlock capacity are dropped rather than retained, so one
// oversized block can't permanently bloat the pool.
func (p *Pool) Put(s []EngineEvent) {
	p.bumpInUse(^uint64(0)) // -1
	if cap(s) > MaxEventsPerBlock {
		return
	}
	select {
	case p.free <- s[:0]:
	default:
		// Pool is at capacity; let this slice be collected.
	}
}

func (p *Pool) bumpInUse(delta uint64) {
	cur := atomic.AddUint64(&p.inUse, delta)
	for {
		high := atomic.LoadUint64(&p.highWater)
		if cur <= high || atomic.CompareAndSwapUint64(&p.highWater, high, cur) {
			return
		}
	}
}

// Diagnostics reports pool hit/miss counters for the performance package.
func (p *Pool) Diagnostics() (hits, misses, highWater, inUse uint64) {
	return atomic.LoadUint64(&p.hits), atomic.LoadUint64(&p.misses),
		atomic.LoadUint64(&p.highWater), atomic.LoadUint64(&p.inUse)
}
