package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder exposes run metrics on a private Prometheus registry, so that a
// Recorder can be created per run and per test without clashing with the
// global default registry.
type Recorder struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	lines         prometheus.Counter
	dispatch      *prometheus.HistogramVec
	workers       prometheus.Gauge
	workersFailed prometheus.Counter
	cpuSeconds    *prometheus.GaugeVec
	memoryKB      *prometheus.GaugeVec
	heapBytes     prometheus.Gauge
}

// NewRecorder registers the linemax collectors together with the Go runtime
// and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linemax_runs_total",
			Help: "Completed runs by backend and status.",
		}, []string{"backend", "status"}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linemax_lines_processed_total",
			Help: "Lines reduced across all runs.",
		}),
		dispatch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linemax_dispatch_duration_seconds",
			Help:    "Wall time of the parallel section.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"backend"}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linemax_workers",
			Help: "Workers used by the last run.",
		}),
		workersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linemax_worker_start_failures_total",
			Help: "Runs that started fewer workers than requested.",
		}),
		cpuSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "linemax_cpu_seconds",
			Help: "CPU time of the last parallel section, children included.",
		}, []string{"mode"}),
		memoryKB: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "linemax_process_memory_kilobytes",
			Help: "Process memory after the last parallel section.",
		}, []string{"kind"}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linemax_go_heap_alloc_bytes",
			Help: "Go heap in use after the last run.",
		}),
	}
	reg.MustRegister(
		r.runs, r.lines, r.dispatch, r.workers, r.workersFailed, r.cpuSeconds, r.memoryKB, r.heapBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRun records a finished run. A non-nil err counts the run as failed
// and skips the resource gauges.
func (r *Recorder) ObserveRun(backend string, lines int, rep Report, startFailed bool, err error) {
	if err != nil {
		r.runs.WithLabelValues(backend, "error").Inc()
		return
	}
	r.runs.WithLabelValues(backend, "ok").Inc()
	r.lines.Add(float64(lines))
	r.dispatch.WithLabelValues(backend).Observe(rep.Runtime.Seconds())
	r.workers.Set(float64(rep.Workers))
	if startFailed {
		r.workersFailed.Inc()
	}
	r.cpuSeconds.WithLabelValues("user").Set(rep.CPU.User.Seconds())
	r.cpuSeconds.WithLabelValues("system").Set(rep.CPU.System.Seconds())
	r.memoryKB.WithLabelValues("virtual").Set(float64(rep.Memory.VirtualKB))
	r.memoryKB.WithLabelValues("physical").Set(float64(rep.Memory.PhysicalKB))
	r.heapBytes.Set(float64(ReadRuntime().HeapAlloc))
}

// WriteToTextfile writes the registry to path in the node-exporter textfile
// format.
func (r *Recorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
