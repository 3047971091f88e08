package metrics_config

import (
	"runtime"

	metrics "github.com/prometheus/client_golang/prometheus"
)

type runtimeStats struct {
	GCAllocBytes uint64
	GCFreedBytes uint64
	NumGC        uint32

	MemTotal     uint64
	HeapObjects  uint64
	HeapFree     uint64
	HeapReleased uint64
	HeapUnused   uint64

	Goroutines uint64
}

func readRuntimeStats() *runtimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var unused uint64
	if mem.HeapInuse > mem.HeapAlloc {
		unused = mem.HeapInuse - mem.HeapAlloc
	}
	return &runtimeStats{
		GCAllocBytes: mem.TotalAlloc,
		GCFreedBytes: mem.TotalAlloc - mem.HeapAlloc,
		NumGC:        mem.NumGC,
		MemTotal:     mem.Sys,
		HeapObjects:  mem.HeapObjects,
		HeapFree:     mem.HeapIdle - mem.HeapReleased,
		HeapReleased: mem.HeapReleased,
		HeapUnused:   unused,
		Goroutines:   uint64(runtime.NumGoroutine()),
	}
}

func defineRuntimeMetrics() *metrics.GaugeVec {
	runtimeGauge := metrics.NewGaugeVec(
		metrics.GaugeOpts{
			Name: "runtime_stats",
			Help: "Go runtime memory and scheduler statistics",
		},
		[]string{"stat"},
	)
	metrics.MustRegister(runtimeGauge)
	return runtimeGauge
}

func collectRuntimeMetrics(runtimeGaugeVec *metrics.GaugeVec, stats *runtimeStats) {
	runtimeGaugeVec.WithLabelValues("gc_alloc_bytes").Set(float64(stats.GCAllocBytes))
	runtimeGaugeVec.WithLabelValues("gc_freed_bytes").Set(float64(stats.GCFreedBytes))
	runtimeGaugeVec.WithLabelValues("gc_count").Set(float64(stats.NumGC))
	runtimeGaugeVec.WithLabelValues("mem_total").Set(float64(stats.MemTotal))
	runtimeGaugeVec.WithLabelValues("heap_objects").Set(float64(stats.HeapObjects))
	runtimeGaugeVec.WithLabelValues("heap_free").Set(float64(stats.HeapFree))
	runtimeGaugeVec.WithLabelValues("heap_released").Set(float64(stats.HeapReleased))
	runtimeGaugeVec.WithLabelValues("heap_unused").Set(float64(stats.HeapUnused))
	runtimeGaugeVec.WithLabelValues("goroutines").Set(float64(stats.Goroutines))
}
