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
	jobStartedTotal   atomic.Uint64
	jobSucceededTotal atomic.Uint64
	jobFailedTotal    atomic.Uint64
	usageBlockedTotal atomic.Uint64

	queueReceivedTotal      atomic.Uint64
	queueCompletedTotal     atomic.Uint64
	queueFailedTotal        atomic.Uint64
	queueUnrecoverableTotal atomic.Uint64

	jobDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 180000})
	stagedBytes = newHistogram([]float64{1 << 12, 1 << 16, 1 << 20, 10 << 20, 25 << 20, 50 << 20})
)

// IncJobStarted increments the started counter.
func IncJobStarted() {
	jobStartedTotal.Add(1)
}

// IncJobSucceeded increments the succeeded counter.
func IncJobSucceeded() {
	jobSucceededTotal.Add(1)
}

// IncJobFailed increments the failed counter.
func IncJobFailed() {
	jobFailedTotal.Add(1)
}

// IncUsageBlocked increments the counter of job starts rejected by the daily limit.
func IncUsageBlocked() {
	usageBlockedTotal.Add(1)
}

// IncQueueJobsReceived increments the counter of messages pulled by the worker.
func IncQueueJobsReceived() {
	queueReceivedTotal.Add(1)
}

// IncQueueJobsCompleted increments the counter of worker messages handled to completion.
func IncQueueJobsCompleted() {
	queueCompletedTotal.Add(1)
}

// IncQueueJobsFailed increments the counter of worker messages that failed and will redrive.
func IncQueueJobsFailed() {
	queueFailedTotal.Add(1)
}

// IncQueueJobsDeletedUnrecoverable increments the counter of messages dropped as unprocessable.
func IncQueueJobsDeletedUnrecoverable() {
	queueUnrecoverableTotal.Add(1)
}

// ObserveJobDurationMs records a job duration in milliseconds.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
}

// ObserveStagedBytes records the size of a staged file.
func ObserveStagedBytes(value float64) {
	if value < 0 {
		value = 0
	}
	stagedBytes.Observe(value)
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
	writeCounter(&buf, "job_started_total", "Total conversion jobs started", jobStartedTotal.Load())
	writeCounter(&buf, "job_succeeded_total", "Total conversion jobs succeeded", jobSucceededTotal.Load())
	writeCounter(&buf, "job_failed_total", "Total conversion jobs failed", jobFailedTotal.Load())
	writeCounter(&buf, "usage_blocked_total", "Total job starts blocked by the daily limit", usageBlockedTotal.Load())
	writeCounter(&buf, "queue_jobs_received_total", "Total queue messages received by the worker", queueReceivedTotal.Load())
	writeCounter(&buf, "queue_jobs_completed_total", "Total queue messages processed to completion", queueCompletedTotal.Load())
	writeCounter(&buf, "queue_jobs_failed_total", "Total queue messages that failed processing", queueFailedTotal.Load())
	writeCounter(&buf, "queue_jobs_deleted_unrecoverable_total", "Total queue messages dropped as unprocessable", queueUnrecoverableTotal.Load())
	writeHistogram(&buf, "job_duration_ms", "Job duration in milliseconds", jobDuration.Snapshot())
	writeHistogram(&buf, "staged_bytes", "Staged file size in bytes", stagedBytes.Snapshot())
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
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
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

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
