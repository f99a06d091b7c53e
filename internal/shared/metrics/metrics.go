package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	translationStartedTotal   atomic.Uint64
	translationCompletedTotal atomic.Uint64
	translationFailedTotal    atomic.Uint64
	modelRetriesTotal         atomic.Uint64
	jobsReceivedTotal         atomic.Uint64
	jobsDroppedTotal          atomic.Uint64
	staleJobsReapedTotal      atomic.Uint64

	translationDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
	modelCallDuration   = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncTranslationStarted increments the started counter.
func IncTranslationStarted() {
	translationStartedTotal.Add(1)
}

// IncTranslationCompleted increments the completed counter.
func IncTranslationCompleted() {
	translationCompletedTotal.Add(1)
}

// IncTranslationFailed increments the failed counter.
func IncTranslationFailed() {
	translationFailedTotal.Add(1)
}

// IncModelRetries increments the model retry counter.
func IncModelRetries() {
	modelRetriesTotal.Add(1)
}

// IncJobsReceived increments the queue-message counter.
func IncJobsReceived() {
	jobsReceivedTotal.Add(1)
}

// IncJobsDropped increments the counter for unrecoverable queue payloads.
func IncJobsDropped() {
	jobsDroppedTotal.Add(1)
}

// AddStaleJobsReaped records stale PROCESSING jobs transitioned to FAILED.
func AddStaleJobsReaped(n int64) {
	if n <= 0 {
		return
	}
	staleJobsReapedTotal.Add(uint64(n))
}

// ObserveTranslationDuration records a whole-pipeline duration.
func ObserveTranslationDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	translationDuration.Observe(float64(d.Milliseconds()))
}

// ObserveModelCallDuration records a single model-call duration.
func ObserveModelCallDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	modelCallDuration.Observe(float64(d.Milliseconds()))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "translation_started_total", "Total feedback translations started", translationStartedTotal.Load())
	writeCounter(&buf, "translation_completed_total", "Total feedback translations completed", translationCompletedTotal.Load())
	writeCounter(&buf, "translation_failed_total", "Total feedback translations failed", translationFailedTotal.Load())
	writeCounter(&buf, "model_retries_total", "Total model call retries", modelRetriesTotal.Load())
	writeCounter(&buf, "jobs_received_total", "Total queue messages received", jobsReceivedTotal.Load())
	writeCounter(&buf, "jobs_dropped_total", "Total unrecoverable queue messages dropped", jobsDroppedTotal.Load())
	writeCounter(&buf, "stale_jobs_reaped_total", "Total stale PROCESSING jobs failed by the reaper", staleJobsReapedTotal.Load())
	writeHistogram(&buf, "translation_duration_ms", "Feedback translation duration in milliseconds", translationDuration.Snapshot())
	writeHistogram(&buf, "model_call_duration_ms", "Model call duration in milliseconds", modelCallDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
