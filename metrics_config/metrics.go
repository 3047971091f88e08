package metrics_config

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	metrics "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/dominant-strategies/go-tributary/log"
)

// enabled gates the process metrics and the HTTP endpoint. Domain gauges are
// always registered so that packages can update them unconditionally.
var enabled = false

func EnableMetrics() {
	enabled = true
}

func MetricsEnabled() bool {
	return enabled
}

// StartProcessMetrics registers the process gauges and serves every
// registered metric on port under /metrics.
func StartProcessMetrics(port string) {
	// Short circuit if the metrics system is disabled
	if !enabled {
		return
	}

	// System usage metrics.
	gaugesMap := make(map[string]*prometheus.GaugeVec)

	gaugesMap["cpu"] = defineCPUMetrics()
	gaugesMap["mem"] = defineMemMetrics()
	gaugesMap["disk"] = defineDiskMetrics()
	gaugesMap["net"] = defineNetMetrics()
	gaugesMap["runtime"] = defineRuntimeMetrics()

	go initializeHttpMetrics(port, gaugesMap)
}

func NewGaugeVec(name string, help string) *prometheus.GaugeVec {
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, []string{"label"})
	prometheus.MustRegister(gaugeVec)
	return gaugeVec
}

func NewGauge(name string, help string) prometheus.Gauge {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(gauge)
	return gauge
}

func NewCounter(name string, help string) prometheus.Counter {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(counter)
	return counter
}

func NewHistogram(name string, help string) prometheus.Histogram {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(histogram)
	return histogram
}

func initializeHttpMetrics(port string, metricsMap map[string]*prometheus.GaugeVec) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			updateMetrics(metricsMap)
			promhttp.Handler().ServeHTTP(w, r)
		}),
	))
	log.Global.WithField("port", port).Info("Starting metrics server")
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Global.WithField("err", err).Error("Metrics server stopped")
	}
}

func defineCPUMetrics() *metrics.GaugeVec {
	cpuUsageGauge := metrics.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cpu_usage",
			Help: "The average CPU usage over the last second",
		},
		[]string{"cpu_type"},
	)
	metrics.MustRegister(cpuUsageGauge)
	return cpuUsageGauge
}

func defineMemMetrics() *metrics.GaugeVec {
	memGauge := metrics.NewGaugeVec(
		metrics.GaugeOpts{
			Name: "mem_usage",
			Help: "The current memory usage",
		},
		[]string{"mem_type"},
	)
	metrics.MustRegister(memGauge)
	return memGauge
}

func defineDiskMetrics() *metrics.GaugeVec {
	diskGauge := metrics.NewGaugeVec(
		metrics.GaugeOpts{
			Name: "disk_usage",
			Help: "The current disk usage",
		},
		[]string{"usage_type"},
	)
	metrics.MustRegister(diskGauge)
	return diskGauge
}

func defineNetMetrics() *metrics.GaugeVec {
	netGauge := metrics.NewGaugeVec(
		metrics.GaugeOpts{
			Name: "net_usage",
			Help: "The current network usage",
		},
		[]string{"net_type"},
	)
	metrics.MustRegister(netGauge)
	return netGauge
}

func updateMetrics(metricsMap map[string]*prometheus.GaugeVec) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		log.Global.WithField("err", err).Error("Failed to get process")
		return
	}

	collectCPUMetrics(metricsMap["cpu"], proc)
	collectMemoryMetrics(metricsMap["mem"], proc)
	collectDiskMetrics(metricsMap["disk"])
	collectNetworkingMetrics(metricsMap["net"], proc)
	collectRuntimeMetrics(metricsMap["runtime"], readRuntimeStats())
}

func collectCPUMetrics(cpuGaugeVec *metrics.GaugeVec, proc *process.Process) {
	percent, err := proc.CPUPercent()
	if err != nil {
		log.Global.WithField("err", err).Error("Failed to get CPU percent")
	} else {
		cpuGaugeVec.WithLabelValues("Go-tributary").Set(percent)
	}

	usage, err := cpu.Percent(0, false)
	if err != nil {
		log.Global.WithField("err", err).Error("Failed to get CPU percent")
	} else if len(usage) > 0 {
		cpuGaugeVec.WithLabelValues("System").Set(usage[0])
	}

	cpuStats, err := cpu.Times(false)
	if err != nil {
		log.Global.WithField("err", err).Error("Failed to get CPU stats")
	} else if len(cpuStats) > 0 {
		iowaits := cpuStats[0].Iowait / 1 * 100 // convert to percent
		cpuGaugeVec.WithLabelValues("Iowait").Set(iowaits)
	}

	threads, err := proc.NumThreads()
	if err != nil {
		log.Global.WithField("err", err).Error("Failed to get threads")
	} else {
		cpuGaugeVec.WithLabelValues("Threads").Set(float64(threads))
	}
}

func collectMemoryMetrics(memGaugeVec *metrics.GaugeVec, proc *process.Process) {
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		log.Global.WithField("err", err).Error("Error while getting memory info")
	} else {
		memGaugeVec.WithLabelValues("Used").Set(float64(memInfo.RSS))
		memGaugeVec.WithLabelValues("Swap").Set(float64(memInfo.Swap))
		memGaugeVec.WithLabelValues("Stack").Set(float64(memInfo.Stack))
	}
}

func collectDiskMetrics(diskGaugeVec *metrics.GaugeVec) {
	counters, err := disk.IOCounters()
	if err != nil {
		log.Global.WithField("err", err).Error("Error while getting disk info")
		return
	}
	var inProgress uint64
	for _, c := range counters {
		inProgress += c.IopsInProgress
	}
	diskGaugeVec.WithLabelValues("Iops").Set(float64(inProgress))
}

func collectNetworkingMetrics(netGaugeVec *metrics.GaugeVec, proc *process.Process) {
	tcpConnections, err := net.ConnectionsPid("tcp", proc.Pid)
	if err != nil {
		log.Global.WithField("err", err).Error("Error while getting networking info")
	} else {
		netGaugeVec.WithLabelValues("tcp").Set(float64(len(tcpConnections)))
	}

	udpConnections, err := net.ConnectionsPid("udp", proc.Pid)
	if err != nil {
		log.Global.WithField("err", err).Error("Error while getting networking info")
	} else {
		netGaugeVec.WithLabelValues("udp").Set(float64(len(udpConnections)))
	}
}
