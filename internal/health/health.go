package health

import (
	"sync"
	"time"
)

var (
	storeTracker  Tracker
	ingestTracker Tracker
)

// RecordStoreSuccess records a successful row-store operation.
func RecordStoreSuccess() {
	storeTracker.RecordSuccess()
}

// RecordStoreError records a failed row-store operation.
func RecordStoreError() {
	storeTracker.RecordError()
}

// RecordIngestSuccess records a successful weather ingestion call.
func RecordIngestSuccess() {
	ingestTracker.RecordSuccess()
}

// RecordIngestError records a failed weather ingestion call.
func RecordIngestError() {
	ingestTracker.RecordError()
}

// StoreErrorRate returns (errorCount, totalCount) for store operations within the window.
func StoreErrorRate(window time.Duration) (errors, total int) {
	return storeTracker.ErrorRate(window)
}

// IngestErrorRate returns (errorCount, totalCount) for ingestion calls within the window.
func IngestErrorRate(window time.Duration) (errors, total int) {
	return ingestTracker.ErrorRate(window)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	storeTracker.Reset()
	ingestTracker.Reset()
}

// Degraded reports whether the error rate within the window crosses
// thresholdPct, requiring at least minSamples outcomes before judging.
func Degraded(errors, total, thresholdPct, minSamples int) bool {
	if total < minSamples || total == 0 {
		return false
	}
	return errors*100 >= thresholdPct*total
}

// Tracker maintains sliding windows of outcome timestamps for one dependency.
// Feeds the degraded calculation behind /health.
type Tracker struct {
	mu           sync.Mutex
	successTimes []time.Time
	errorTimes   []time.Time
}

// RecordSuccess records a successful outcome in the tracker.
func (t *Tracker) RecordSuccess() {
	t.recordOutcome(&t.successTimes)
}

// RecordError records a failed outcome in the tracker.
func (t *Tracker) RecordError() {
	t.recordOutcome(&t.errorTimes)
}

// recordOutcome appends the current timestamp and prunes old entries.
func (t *Tracker) recordOutcome(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// ErrorRate returns (errorCount, totalCount) within the window.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-window)
	errCount := countInWindow(t.errorTimes, cutoff)
	successCount := countInWindow(t.successTimes, cutoff)
	return errCount, errCount + successCount
}

// Reset clears all recorded outcomes from the tracker.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.errorTimes = nil
}

// countInWindow counts timestamps that are not before the cutoff time.
func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked removes timestamps older than 5 minutes. Must be called with the
// mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-5 * time.Minute)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
}
