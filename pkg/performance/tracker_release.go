//go:build !debug
// +build !debug

package performance

import "runtime"

// EnableAllocationTracking is a no-op outside debug builds; GC tuning
// for allocation visibility isn't worth the throughput cost in release.
func EnableAllocationTracking() {}

// CheckGCPauses always reports false outside debug builds.
func CheckGCPauses() bool { return false }

// GetAllocationStats returns a zero value outside debug builds.
func GetAllocationStats() runtime.MemStats { return runtime.MemStats{} }

// FormatAllocInfo returns an empty string outside debug builds.
func FormatAllocInfo(info AllocInfo) string { return "" }
