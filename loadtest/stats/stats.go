// Package stats provides a goroutine-safe metrics collector that aggregates
// request latencies from many load test workers and prints a summary report
// with percentile distributions.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// Collector aggregates request outcomes. All methods are goroutine-safe.
type Collector struct {
	mu        sync.Mutex
	latencies map[string][]time.Duration
	rejected  map[string]int
	errors    int
	startTime time.Time
}

// NewCollector creates a new Collector with the start time set to now.
func NewCollector() *Collector {
	return &Collector{
		latencies: make(map[string][]time.Duration),
		rejected:  make(map[string]int),
		startTime: time.Now(),
	}
}

// AddLatency records a request round-trip latency for a request type.
func (c *Collector) AddLatency(reqType string, d time.Duration) {
	c.mu.Lock()
	c.latencies[reqType] = append(c.latencies[reqType], d)
	c.mu.Unlock()
}

// AddRejected counts a request the service answered with a rejection.
func (c *Collector) AddRejected(reqType string) {
	c.mu.Lock()
	c.rejected[reqType]++
	c.mu.Unlock()
}

// AddError increments the error counter.
func (c *Collector) AddError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// RequestCount returns the number of answered requests.
func (c *Collector) RequestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.latencies {
		n += len(l)
	}
	return n
}

// ErrorCount returns the current number of recorded errors.
func (c *Collector) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// Report writes a formatted summary of the collected metrics to w.
func (c *Collector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.startTime)
	total := 0
	for _, l := range c.latencies {
		total += len(l)
	}

	fmt.Fprintln(w, "\n=== Load Test Results ===")
	fmt.Fprintf(w, "Duration:     %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(w, "Requests:     %d\n", total)
	fmt.Fprintf(w, "Errors:       %d\n", c.errors)
	if total+c.errors > 0 {
		fmt.Fprintf(w, "Error rate:   %.2f%%\n", float64(c.errors)/float64(total+c.errors)*100)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Fprintf(w, "Throughput:   %.1f req/s\n", float64(total)/secs)
	}

	types := make([]string, 0, len(c.latencies))
	for t := range c.latencies {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "\n--- %s (rejected %d) ---\n", t, c.rejected[t])
		p := computePercentiles(c.latencies[t])
		fmt.Fprintf(w, "  avg: %v  p50: %v  p95: %v  p99: %v  max: %v  (n=%d)\n",
			p.Avg.Round(time.Microsecond),
			p.P50.Round(time.Microsecond),
			p.P95.Round(time.Microsecond),
			p.P99.Round(time.Microsecond),
			p.Max.Round(time.Microsecond),
			p.N,
		)
	}
	fmt.Fprintln(w)
}

// Percentiles summarizes a latency distribution.
type Percentiles struct {
	Avg, P50, P95, P99, Max time.Duration
	N                       int
}

// computePercentiles sorts durations in place and summarizes them.
func computePercentiles(durations []time.Duration) Percentiles {
	n := len(durations)
	if n == 0 {
		return Percentiles{}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	return Percentiles{
		Avg: sum / time.Duration(n),
		P50: durations[n/2],
		P95: durations[int(math.Ceil(float64(n)*0.95))-1],
		P99: durations[int(math.Ceil(float64(n)*0.99))-1],
		Max: durations[n-1],
		N:   n,
	}
}
