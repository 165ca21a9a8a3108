// Package joblog keeps per-job bounded in-memory log buffers. Every job
// gets one fixed-capacity FIFO ring buffer; the oldest entries are
// evicted once full. Buffers never self-expire: teardown happens only
// through Remove, driven by the reaper. Records are lost on restart.
package joblog

import (
	"sync"
	"time"
)

// Record is one buffered log entry.
type Record struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	JobID     string `json:"job_id"`
}

// ringBuffer is a fixed-capacity FIFO of records.
type ringBuffer struct {
	mu      sync.Mutex
	entries []Record
	start   int
	count   int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{entries: make([]Record, capacity)}
}

func (r *ringBuffer) append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.entries)
	if r.count < capacity {
		r.entries[(r.start+r.count)%capacity] = rec
		r.count++
		return
	}

	// Full: overwrite the oldest entry
	r.entries[r.start] = rec
	r.start = (r.start + 1) % capacity
}

// snapshot returns the buffered records oldest first.
func (r *ringBuffer) snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.entries[(r.start+i)%len(r.entries)])
	}
	return out
}

// Aggregator owns the per-job buffers. Structural changes (creating or
// removing a buffer) serialize on one mutex; appends to distinct jobs'
// buffers proceed concurrently under per-buffer locks.
type Aggregator struct {
	mu       sync.Mutex
	buffers  map[string]*ringBuffer
	capacity int
}

// DefaultCapacity is the per-job buffer capacity when none is configured.
const DefaultCapacity = 1000

// NewAggregator creates an aggregator with the given per-job capacity.
func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{
		buffers:  make(map[string]*ringBuffer),
		capacity: capacity,
	}
}

// Append records one entry for the job, creating its buffer on first use.
func (a *Aggregator) Append(jobID string, rec Record) {
	a.mu.Lock()
	buf, ok := a.buffers[jobID]
	if !ok {
		buf = newRingBuffer(a.capacity)
		a.buffers[jobID] = buf
	}
	a.mu.Unlock()

	buf.append(rec)
}

// Query returns the job's records strictly after since, oldest first. An
// empty or unparsable since degrades to the full buffer rather than
// failing; an unknown job yields an empty slice.
func (a *Aggregator) Query(jobID string, since string) []Record {
	a.mu.Lock()
	buf, ok := a.buffers[jobID]
	a.mu.Unlock()

	if !ok {
		return []Record{}
	}

	records := buf.snapshot()
	if since == "" {
		return records
	}

	sinceT, err := time.Parse(time.RFC3339Nano, since)
	if err != nil {
		return records
	}

	out := []Record{}
	for _, rec := range records {
		t, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
		if err != nil || t.After(sinceT) {
			out = append(out, rec)
		}
	}
	return out
}

// Remove tears down the job's buffer.
func (a *Aggregator) Remove(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, jobID)
}

// JobIDs returns the ids that currently own a buffer.
func (a *Aggregator) JobIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, 0, len(a.buffers))
	for id := range a.buffers {
		ids = append(ids, id)
	}
	return ids
}
