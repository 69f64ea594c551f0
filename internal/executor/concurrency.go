// internal/executor/concurrency.go
package executor

import (
	"runtime"
)

// maxCoreWorkers caps the auto-tuned core size.
const maxCoreWorkers = 50

// OptimalConcurrency picks a core worker count from CPU count and free memory
func OptimalConcurrency() int {
	numCPU := runtime.NumCPU()

	// Work is I/O bound, oversubscribe the CPUs
	optimal := min(numCPU*3, maxCoreWorkers)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	availMB := (m.Sys - m.Alloc) / 1024 / 1024

	// Assume ~50MB per in-flight browser page
	if byMemory := int(availMB / 50); byMemory > 0 && byMemory < optimal {
		optimal = byMemory
	}
	return max(optimal, 1)
}

// MaxFor returns the burst worker ceiling for a core size.
func MaxFor(core int) int {
	return core * 2
}
