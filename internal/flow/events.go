// Package flow drives tasks through the orchestration state machine, from
// intake to a terminal state.
package flow

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/taskweave/taskweave/pkg/models"
)

// TransitionEvent is emitted once per state transition for external
// broadcast (CLI, gRPC, TUI drivers).
type TransitionEvent struct {
	// TaskID is the task that transitioned.
	TaskID string `json:"task_id"`
	// OldStatus is the status before the transition.
	OldStatus models.TaskStatus `json:"old_status"`
	// NewStatus is the status after the transition.
	NewStatus models.TaskStatus `json:"new_status"`
	// Timestamp is when the transition was committed.
	Timestamp time.Time `json:"timestamp"`
}

// EventEmitter delivers transition events to subscribers. Emission is
// best-effort: a full channel drops the event rather than blocking or
// failing the flow.
type EventEmitter struct {
	events       chan TransitionEvent
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan TransitionEvent, bufferSize),
	}
}

// Emit sends an event to the events channel. If the channel is full it tries
// briefly before dropping the event.
func (e *EventEmitter) Emit(event TransitionEvent) {
	select {
	case e.events <- event:
		return
	default:
	}

	// Give the receiver a short chance to drain before dropping.
	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[flow] WARNING: event channel full, dropped event (total dropped: %d): task=%s %s->%s",
				count, event.TaskID, event.OldStatus, event.NewStatus)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events for subscribers.
func (e *EventEmitter) Events() <-chan TransitionEvent {
	return e.events
}

// Close closes the events channel. Call only after all flows have stopped.
func (e *EventEmitter) Close() {
	close(e.events)
}
