// Package queue carries records from one producer to many consumers.
package queue

import (
	"context"
	"sync"
)

// DefaultCapacity bounds the number of buffered records.
const DefaultCapacity = 100 * 1024

// Record is one key/value pair of the snapshot.
type Record struct {
	Key   []byte
	Value []byte
}

// PollState is the outcome of a non-blocking receive.
type PollState int

const (
	// PollItem means a record was received.
	PollItem PollState = iota
	// PollEmpty means the queue is open but has nothing buffered.
	PollEmpty
	// PollClosed means the producer closed the queue and it is drained.
	PollClosed
)

func (s PollState) String() string {
	switch s {
	case PollItem:
		return "item"
	case PollEmpty:
		return "empty"
	default:
		return "closed"
	}
}

// Queue is a bounded multi-consumer record channel.
type Queue struct {
	ch        chan Record
	closeOnce sync.Once
}

// New creates a queue holding at most capacity records. A non-positive
// capacity selects DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan Record, capacity)}
}

// Push enqueues a record, blocking while the queue is full.
func (q *Queue) Push(ctx context.Context, rec Record) error {
	select {
	case q.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the end of the stream. Records already queued are still
// delivered. Only the producer may call Close; calling it twice is a no-op.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.ch)
	})
}

// Poll receives a record without blocking.
func (q *Queue) Poll() (Record, PollState) {
	select {
	case rec, ok := <-q.ch:
		if !ok {
			return Record{}, PollClosed
		}
		return rec, PollItem
	default:
		return Record{}, PollEmpty
	}
}

// Next blocks until a record arrives, the queue is closed or ctx is done.
// ok is false once the queue is closed and drained.
func (q *Queue) Next(ctx context.Context) (rec Record, ok bool, err error) {
	select {
	case rec, ok = <-q.ch:
		return rec, ok, nil
	case <-ctx.Done():
		return Record{}, false, ctx.Err()
	}
}

// Len returns the number of buffered records.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// FromRecords returns a closed queue pre-filled with records.
func FromRecords(records []Record) *Queue {
	q := New(max(len(records), 1))
	for _, r := range records {
		q.ch <- r
	}
	q.Close()
	return q
}
