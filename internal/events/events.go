// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package events carries pipeline progress from a research run to whoever
// relays it, in emission order.
package events

import (
	"sync"
)

// Event names.
const (
	Started = "started"
	Status  = "status"
	Finding = "finding"
	Result  = "result"
	Error   = "error"
	Done    = "done"
)

// Event is one named progress item. Data is JSON-serialisable.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Sink receives events. Emit must not block the pipeline for long.
type Sink interface {
	Emit(name string, data any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, data any)

// Emit calls f.
func (f SinkFunc) Emit(name string, data any) { f(name, data) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(string, any) {})

// Queue is an unbounded FIFO between one producer and one consumer. Emit
// never blocks; Close marks the end of the stream. Events emitted after
// Close are dropped.
type Queue struct {
	mu     sync.Mutex
	buf    []Event
	closed bool
	signal chan struct{}
	out    chan Event
}

// NewQueue starts the relay goroutine. It exits after Close once every
// queued event has been received from C, so callers must drain C.
func NewQueue() *Queue {
	q := &Queue{
		signal: make(chan struct{}, 1),
		out:    make(chan Event),
	}
	go q.relay()
	return q
}

// C returns the receive side. It is closed after the last event.
func (q *Queue) C() <-chan Event { return q.out }

// Emit appends an event.
func (q *Queue) Emit(name string, data any) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buf = append(q.buf, Event{Name: name, Data: data})
	q.mu.Unlock()
	q.wake()
}

// Close ends the stream. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue) relay() {
	defer close(q.out)
	for {
		q.mu.Lock()
		batch := q.buf
		q.buf = nil
		closed := q.closed
		q.mu.Unlock()

		for _, ev := range batch {
			q.out <- ev
		}
		if len(batch) == 0 {
			if closed {
				return
			}
			<-q.signal
		}
	}
}

// StartedData is the payload of a started event.
type StartedData struct {
	TaskID string `json:"task_id"`
}

// StatusData is the payload of a status event. Level and Breadth are set
// while levels run.
type StatusData struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Level   int    `json:"level,omitempty"`
	Breadth int    `json:"breadth,omitempty"`
}

// FindingData is the payload of a finding event: one search hit.
type FindingData struct {
	Source  string `json:"source"`
	Summary string `json:"summary"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}
