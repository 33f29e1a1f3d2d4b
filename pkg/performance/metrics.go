package performance

import (
	"sync/atomic"
	"time"
)

// PerformanceMetrics tracks block timing and voice/event counters for
// one engine's process loop, refreshed on every Process call.
type PerformanceMetrics struct {
	lastProcessNs  int64
	maxProcessNs   int64
	totalProcessNs int64
	blockCount     uint64

	bufferUnderruns uint64
	gcPausesInBlock uint64

	maxVoices     int32
	currentVoices int32
	voiceSteals   uint64

	eventsTotal      uint64
	maxEventsInBlock uint64
	eventsThisBlock  uint64

	sampleRate uint32
	frameCount uint32
}

// NewPerformanceMetrics creates a tracker sized for one (sampleRate,
// frameCount) block configuration; a changed buffer size or sample rate
// means a new tracker, since the underrun deadline depends on both.
func NewPerformanceMetrics(sampleRate, frameCount uint32) *PerformanceMetrics {
	return &PerformanceMetrics{sampleRate: sampleRate, frameCount: frameCount}
}

// StartProcess marks the start of a block; pair with EndProcess.
func (pm *PerformanceMetrics) StartProcess() time.Time {
	return time.Now()
}

// EndProcess records the block's duration and flags an underrun if it
// ran past 80% of the block's real-time deadline.
func (pm *PerformanceMetrics) EndProcess(start time.Time) {
	elapsed := time.Since(start).Nanoseconds()

	atomic.StoreInt64(&pm.lastProcessNs, elapsed)
	for {
		max := atomic.LoadInt64(&pm.maxProcessNs)
		if elapsed <= max || atomic.CompareAndSwapInt64(&pm.maxProcessNs, max, elapsed) {
			break
		}
	}
	atomic.AddInt64(&pm.totalProcessNs, elapsed)
	atomic.AddUint64(&pm.blockCount, 1)

	deadline := int64(pm.frameCount) * int64(time.Second) / int64(pm.sampleRate)
	if elapsed > deadline*80/100 {
		atomic.AddUint64(&pm.bufferUnderruns, 1)
	}

	events := atomic.LoadUint64(&pm.eventsThisBlock)
	for {
		max := atomic.LoadUint64(&pm.maxEventsInBlock)
		if events <= max || atomic.CompareAndSwapUint64(&pm.maxEventsInBlock, max, events) {
			break
		}
	}
	atomic.StoreUint64(&pm.eventsThisBlock, 0)
}

// RecordEvent counts one event delivered in the current block.
func (pm *PerformanceMetrics) RecordEvent() {
	atomic.AddUint64(&pm.eventsTotal, 1)
	atomic.AddUint64(&pm.eventsThisBlock, 1)
}

// RecordGCPause counts a GC pause observed during processing.
func (pm *PerformanceMetrics) RecordGCPause() {
	atomic.AddUint64(&pm.gcPausesInBlock, 1)
}

// UpdateVoiceCount records the current voice count and rolls the max
// forward if exceeded.
func (pm *PerformanceMetrics) UpdateVoiceCount(count int32) {
	atomic.StoreInt32(&pm.currentVoices, count)
	for {
		max := atomic.LoadInt32(&pm.maxVoices)
		if count <= max || atomic.CompareAndSwapInt32(&pm.maxVoices, max, count) {
			break
		}
	}
}

// RecordVoiceSteal counts one voice-stealing event.
func (pm *PerformanceMetrics) RecordVoiceSteal() {
	atomic.AddUint64(&pm.voiceSteals, 1)
}

// GetStats snapshots every counter into a PerformanceStats value.
func (pm *PerformanceMetrics) GetStats() PerformanceStats {
	blocks := atomic.LoadUint64(&pm.blockCount)
	total := atomic.LoadInt64(&pm.totalProcessNs)

	var avg int64
	if blocks > 0 {
		avg = total / int64(blocks)
	}

	return PerformanceStats{
		ProcessTime:        time.Duration(atomic.LoadInt64(&pm.lastProcessNs)),
		MaxProcessTime:     time.Duration(atomic.LoadInt64(&pm.maxProcessNs)),
		AvgProcessTime:     time.Duration(avg),
		ProcessCallCount:   blocks,
		BufferUnderruns:    atomic.LoadUint64(&pm.bufferUnderruns),
		GCPausesDuringProc: atomic.LoadUint64(&pm.gcPausesInBlock),
		MaxVoicesUsed:      atomic.LoadInt32(&pm.maxVoices),
		CurrentVoicesUsed:  atomic.LoadInt32(&pm.currentVoices),
		VoiceStealEvents:   atomic.LoadUint64(&pm.voiceSteals),
		EventsProcessed:    atomic.LoadUint64(&pm.eventsTotal),
		MaxEventsPerBuffer: atomic.LoadUint64(&pm.maxEventsInBlock),
	}
}

// Reset zeroes every counter.
func (pm *PerformanceMetrics) Reset() {
	atomic.StoreInt64(&pm.lastProcessNs, 0)
	atomic.StoreInt64(&pm.maxProcessNs, 0)
	atomic.StoreInt64(&pm.totalProcessNs, 0)
	atomic.StoreUint64(&pm.blockCount, 0)
	atomic.StoreUint64(&pm.bufferUnderruns, 0)
	atomic.StoreUint64(&pm.gcPausesInBlock, 0)
	atomic.StoreInt32(&pm.maxVoices, 0)
	atomic.StoreInt32(&pm.currentVoices, 0)
	atomic.StoreUint64(&pm.voiceSteals, 0)
	atomic.StoreUint64(&pm.eventsTotal, 0)
	atomic.StoreUint64(&pm.maxEventsInBlock, 0)
	atomic.StoreUint64(&pm.eventsThisBlock, 0)
}

// PerformanceStats is a point-in-time snapshot from PerformanceMetrics.
type PerformanceStats struct {
	ProcessTime      time.Duration
	MaxProcessTime   time.Duration
	AvgProcessTime   time.Duration
	ProcessCallCount uint64

	BufferUnderruns    uint64
	GCPausesDuringProc uint64

	MaxVoicesUsed     int32
	CurrentVoicesUsed int32
	VoiceStealEvents  uint64

	EventsProcessed    uint64
	MaxEventsPerBuffer uint64
}
