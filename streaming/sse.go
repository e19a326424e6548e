package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/vigia/sentinela/core"
	"github.com/vigia/sentinela/telemetry"
)

// BackpressureThreshold is the bounded buffer size beyond which a slow
// consumer causes the stream to terminate with error{reason:
// slow_consumer} instead of blocking the producing pipeline.
const BackpressureThreshold = 64

// Emitter writes an ordered StreamEvent sequence to an http.ResponseWriter
// as Server-Sent Events, exactly as event: <tag>\ndata: <json>\n\n,
// mirroring the teacher's ui/transports/sse transport.
type Emitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	events  chan StreamEvent
	logger  core.Logger
	done    chan struct{}
	tel     *telemetry.Telemetry

	mu     sync.Mutex
	closed bool
}

// SetTelemetry wires per-chunk emission counting. Optional: an Emitter
// with no telemetry set simply skips recording.
func (e *Emitter) SetTelemetry(tel *telemetry.Telemetry) {
	e.tel = tel
}

// NewEmitter prepares SSE headers on w and returns an Emitter ready for
// Pump. Returns an error if the ResponseWriter does not support
// flushing.
func NewEmitter(w http.ResponseWriter, logger core.Logger) (*Emitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, core.NewError("NewEmitter", core.KindSystem, "", "response writer does not support flush", nil)
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Emitter{
		w:       w,
		flusher: flusher,
		events:  make(chan StreamEvent, BackpressureThreshold),
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Send enqueues an event for emission and never blocks the caller: the
// buffer holds BackpressureThreshold events, and if it is already full
// when Send is called,
// the slow consumer is given one last chance via a terminal
// slow_consumer error, then the stream is torn down, rather than
// blocking the caller indefinitely. Returns false once the stream is
// already closed; the caller owns checking this and stopping further
// sends.
func (e *Emitter) Send(ev StreamEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}

	select {
	case e.events <- ev:
		return true
	default:
	}

	select {
	case e.events <- NewError("slow_consumer", "client is draining too slowly"):
	default:
	}
	e.closeLocked()
	return false
}

// Pump drains the event channel to the wire in order until Close is
// called or a terminal event (done/error) is written. It must run on
// its own goroutine; the caller signals completion by calling Close.
func (e *Emitter) Pump() {
	for {
		select {
		case ev, ok := <-e.events:
			if !ok {
				return
			}
			if err := e.write(ev); err != nil {
				return
			}
			if ev.Type == EventDone || ev.Type == EventError {
				return
			}
		case <-e.done:
			return
		}
	}
}

// Close stops Pump and makes every later Send return false. Safe to
// call more than once or concurrently.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

func (e *Emitter) closeLocked() {
	if e.closed {
		return
	}
	e.closed = true
	close(e.done)
	close(e.events)
}

func (e *Emitter) write(ev StreamEvent) error {
	data, err := json.Marshal(ev.MarshalPayload())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	e.flusher.Flush()
	if e.tel != nil {
		e.tel.RecordStreamChunk(context.Background(), string(ev.Type))
	}
	return nil
}
