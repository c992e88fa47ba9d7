package metrics

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemCollector samples host CPU and memory usage into gauges
type SystemCollector struct {
	cpuUsage    *prometheus.GaugeVec
	memoryUsage *prometheus.GaugeVec
	goroutines  prometheus.Gauge
}

// NewSystemCollector creates the system gauges and registers them on reg
func NewSystemCollector(namespace string, reg prometheus.Registerer) *SystemCollector {
	sc := &SystemCollector{
		cpuUsage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "cpu_usage_percent",
			Help:      "Current CPU usage percentage",
		}, []string{"core"}),
		memoryUsage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "memory_usage_bytes",
			Help:      "Current memory usage in bytes",
		}, []string{"type"}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "goroutines",
			Help:      "Number of goroutines that currently exist",
		}),
	}
	reg.MustRegister(sc.cpuUsage, sc.memoryUsage, sc.goroutines)
	return sc
}

// Run samples every interval until ctx is cancelled
func (sc *SystemCollector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sc.Collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.Collect()
		}
	}
}

// Collect takes one sample
func (sc *SystemCollector) Collect() {
	if percentages, err := cpu.Percent(0, true); err == nil {
		for i, p := range percentages {
			sc.cpuUsage.WithLabelValues(fmt.Sprintf("cpu%d", i)).Set(p)
		}
	} else {
		log.Debug().Err(err).Msg("cpu sample failed")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		sc.memoryUsage.WithLabelValues("total").Set(float64(vm.Total))
		sc.memoryUsage.WithLabelValues("available").Set(float64(vm.Available))
		sc.memoryUsage.WithLabelValues("used").Set(float64(vm.Used))
	} else {
		log.Debug().Err(err).Msg("memory sample failed")
	}

	sc.goroutines.Set(float64(runtime.NumGoroutine()))
}
