//go:build debug
// +build debug

package performance

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// EnableAllocationTracking lowers the GC target percentage so heap
// growth (and therefore GC pause frequency) becomes easier to observe
// while chasing an RT-safety regression.
func EnableAllocationTracking() {
	debug.SetGCPercent(10)
	fmt.Println("carla-engine: allocation tracking enabled (debug build)")
}

// CheckGCPauses reports whether a GC pause ended within the last
// millisecond, a rough proxy for "did GC just touch the audio thread".
func CheckGCPauses() bool {
	var stats debug.GCStats
	debug.ReadGCStats(&stats)
	return len(stats.PauseEnd) > 0 && time.Since(stats.PauseEnd[0]) < time.Millisecond
}

// GetAllocationStats returns the runtime's own memory statistics.
func GetAllocationStats() runtime.MemStats {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats
}

// FormatAllocInfo renders a recorded allocation with its call stack,
// for logging a flagged over-budget buffer.
func FormatAllocInfo(info AllocInfo) string {
	frames := runtime.CallersFrames(info.Stack[:])
	out := fmt.Sprintf("allocation: %d bytes at %s\nstack:\n", info.Size, time.Unix(0, int64(info.Timestamp)))
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}
		out += fmt.Sprintf("  %s:%d in %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return out
}
