package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"runtime/metrics"
	"sort"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/tether-go/tether"
	"github.com/tether-go/tether/pkg/source"
)

type benchConfig struct {
	Binders   int
	Emissions int
	SwapEvery int
	JSONOut   string
}

func benchCmd() *cobra.Command {
	var cfg benchConfig

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure bind, fan-out, and read throughput in-process",
		Long: `Bench attaches a set of binders to one shared feed and measures how fast
emissions fan out to all of them.

Each published value is delivered synchronously to every binder, so the
recorded latency covers the full fan-out, value slot writes and update
notifications included. With --swap-every N every binder is rebound to a
fresh feed after each N emissions, adding the full
unsubscribe-before-resubscribe cycle to the workload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Binders <= 0 {
				return errors.New("--binders must be > 0")
			}
			if cfg.Emissions <= 0 {
				return errors.New("--emissions must be > 0")
			}
			if cfg.SwapEvery < 0 {
				return errors.New("--swap-every must be >= 0")
			}
			if cfg.SwapEvery > cfg.Emissions {
				warn("--swap-every exceeds --emissions; the feed will never be swapped")
			}

			report, err := runBench(cfg)
			if err != nil {
				return err
			}

			writeSummary(os.Stderr, report)
			return writeJSON(cfg.JSONOut, report)
		},
	}

	cmd.Flags().IntVar(&cfg.Binders, "binders", 100, "binders attached to the shared feed")
	cmd.Flags().IntVar(&cfg.Emissions, "emissions", 10000, "values published to the feed")
	cmd.Flags().IntVar(&cfg.SwapEvery, "swap-every", 0, "swap the feed every N emissions (0 = never)")
	cmd.Flags().StringVar(&cfg.JSONOut, "json", "-", "JSON report path ('-' for stdout)")

	return cmd
}

func runBench(cfg benchConfig) (benchReport, error) {
	scope := tether.NewScope(nil)
	defer scope.Dispose()

	feed := source.NewSubject[int]()
	var delivered atomic.Uint64

	binders := make([]*tether.Binder[int], cfg.Binders)
	for i := range binders {
		b := tether.New[int](scope,
			tether.WithName(fmt.Sprintf("bench-%d", i)),
			tether.OnUpdate(func() { delivered.Add(1) }))
		if err := b.Bind(feed); err != nil {
			return benchReport{}, fmt.Errorf("bind binder %d: %w", i, err)
		}
		binders[i] = b
	}

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	samples := make([]time.Duration, 0, cfg.Emissions)
	swaps := 0

	start := time.Now()
	for i := 0; i < cfg.Emissions; i++ {
		if cfg.SwapEvery > 0 && i > 0 && i%cfg.SwapEvery == 0 {
			next := source.NewSubject[int]()
			for _, b := range binders {
				if err := b.Bind(next); err != nil {
					return benchReport{}, fmt.Errorf("swap to fresh feed: %w", err)
				}
			}
			feed.Close()
			feed = next
			swaps++
		}

		t0 := time.Now()
		feed.Publish(i)
		samples = append(samples, time.Since(t0))
	}
	elapsed := time.Since(start)

	// Read path, measured separately once the slots are warm.
	const readProbes = 1_000_000
	var reads uint64
	readStart := time.Now()
	for i := 0; i < readProbes; i++ {
		if _, ok := binders[i%len(binders)].Read(); ok {
			reads++
		}
	}
	readElapsed := time.Since(readStart)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	return buildReport(cfg, elapsed, samples, swaps, delivered.Load(), reads, readElapsed, before, after, beforeMetrics, afterMetrics), nil
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	FanoutUS   latencyInfo    `json:"fanout_latency_us"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type workloadInfo struct {
	Binders   int `json:"binders"`
	Emissions int `json:"emissions"`
	SwapEvery int `json:"swap_every"`
	Swaps     int `json:"swaps"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	DurationMS       float64 `json:"duration_ms"`
	EmissionsPerSec  float64 `json:"emissions_per_sec"`
	DeliveriesTotal  uint64  `json:"deliveries_total"`
	DeliveriesPerSec float64 `json:"deliveries_per_sec"`
	ReadsPerSec      float64 `json:"reads_per_sec"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	swaps int,
	delivered uint64,
	reads uint64,
	readElapsed time.Duration,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	readSeconds := math.Max(0.001, readElapsed.Seconds())

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: us(latencies[0]),
			P50: us(percentile(latencies, 0.50)),
			P95: us(percentile(latencies, 0.95)),
			P99: us(percentile(latencies, 0.99)),
			Max: us(latencies[len(latencies)-1]),
		}
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: workloadInfo{
			Binders:   cfg.Binders,
			Emissions: cfg.Emissions,
			SwapEvery: cfg.SwapEvery,
			Swaps:     swaps,
		},
		FanoutUS: latency,
		Throughput: throughputInfo{
			DurationMS:       ms(elapsed),
			EmissionsPerSec:  float64(cfg.Emissions) / elapsedSeconds,
			DeliveriesTotal:  delivered,
			DeliveriesPerSec: float64(delivered) / elapsedSeconds,
			ReadsPerSec:      float64(reads) / readSeconds,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Tether Fan-out Benchmark ===")
	fmt.Fprintf(w, "Binders: %d\n", report.Workload.Binders)
	fmt.Fprintf(w, "Emissions: %d\n", report.Workload.Emissions)
	if report.Workload.SwapEvery > 0 {
		fmt.Fprintf(w, "Feed swapped every %d emissions (%d swaps)\n", report.Workload.SwapEvery, report.Workload.Swaps)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total deliveries: %d\n", report.Throughput.DeliveriesTotal)
	fmt.Fprintf(w, "Throughput: %.0f emissions/s (%.0f deliveries/s)\n",
		report.Throughput.EmissionsPerSec, report.Throughput.DeliveriesPerSec)
	fmt.Fprintf(w, "Reads: %.0f reads/s\n", report.Throughput.ReadsPerSec)
	fmt.Fprintln(w)

	if report.FanoutUS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Fan-out latency (publish -> every binder updated):")
		fmt.Fprintf(w, "  min: %.2f µs\n", report.FanoutUS.Min)
		fmt.Fprintf(w, "  p50: %.2f µs\n", report.FanoutUS.P50)
		fmt.Fprintf(w, "  p95: %.2f µs\n", report.FanoutUS.P95)
		fmt.Fprintf(w, "  p99: %.2f µs\n", report.FanoutUS.P99)
		fmt.Fprintf(w, "  max: %.2f µs\n", report.FanoutUS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}
