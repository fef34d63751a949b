// Package monitoring samples host resource usage into Prometheus gauges so
// long upload runs can be correlated with CPU, memory, and disk pressure.
package monitoring

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const sampleInterval = 10 * time.Second

type Collector struct {
	cpuPercent  prometheus.Gauge
	memUsed     prometheus.Gauge
	memTotal    prometheus.Gauge
	diskUsed    prometheus.Gauge
	diskTotal   prometheus.Gauge
	stopCollect context.CancelFunc
}

func NewCollector(registry *prometheus.Registry) *Collector {
	c := &Collector{
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "photosync_host_cpu_percent",
			Help: "Host CPU utilization percentage.",
		}),
		memUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "photosync_host_memory_used_bytes",
			Help: "Host memory in use.",
		}),
		memTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "photosync_host_memory_total_bytes",
			Help: "Host memory installed.",
		}),
		diskUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "photosync_host_disk_used_bytes",
			Help: "Disk space used on the root filesystem.",
		}),
		diskTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "photosync_host_disk_total_bytes",
			Help: "Disk space available on the root filesystem.",
		}),
	}
	registry.MustRegister(c.cpuPercent, c.memUsed, c.memTotal, c.diskUsed, c.diskTotal)
	return c
}

// Start launches the background sampling loop.
func (c *Collector) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.stopCollect = cancel

	go func() {
		ticker := time.NewTicker(sampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sample()
			}
		}
	}()
	log.Println("[Monitoring] host resource collection started")
}

func (c *Collector) Stop() {
	if c.stopCollect != nil {
		c.stopCollect()
	}
}

func (c *Collector) sample() {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		c.cpuPercent.Set(percents[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		c.memUsed.Set(float64(vm.Used))
		c.memTotal.Set(float64(vm.Total))
	}
	if du, err := disk.Usage("/"); err == nil {
		c.diskUsed.Set(float64(du.Used))
		c.diskTotal.Set(float64(du.Total))
	}
}
