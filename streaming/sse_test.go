package streaming

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nonFlushingWriter satisfies http.ResponseWriter but deliberately omits
// Flush, exercising NewEmitter's capability check.
type nonFlushingWriter struct{}

func (nonFlushingWriter) Header() http.Header         { return http.Header{} }
func (nonFlushingWriter) Write(b []byte) (int, error) { return len(b), nil }
func (nonFlushingWriter) WriteHeader(statusCode int)  {}

func TestEmitter_PumpWritesEventsInOrderAsSSE(t *testing.T) {
	rec := httptest.NewRecorder()
	emitter, err := NewEmitter(rec, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		emitter.Pump()
		close(done)
	}()

	emitter.Send(NewStart("sess-1"))
	emitter.Send(NewText("ola"))
	emitter.Send(NewDone())
	<-done

	body := rec.Body.String()
	startIdx := strings.Index(body, "event: start")
	textIdx := strings.Index(body, "event: text")
	doneIdx := strings.Index(body, "event: done")

	assert.True(t, startIdx < textIdx)
	assert.True(t, textIdx < doneIdx)
	assert.Contains(t, body, `"session_id":"sess-1"`)
}

func TestEmitter_PumpStopsAfterDoneEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	emitter, err := NewEmitter(rec, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		emitter.Pump()
		close(done)
	}()

	emitter.Send(NewDone())
	<-done // Pump must return on its own without Close being called
}

func TestEmitter_SendOverflowTerminatesWithSlowConsumer(t *testing.T) {
	rec := httptest.NewRecorder()
	emitter, err := NewEmitter(rec, nil)
	require.NoError(t, err)

	for i := 0; i < BackpressureThreshold; i++ {
		require.True(t, emitter.Send(NewProgress(float64(i)/100, "collecting")))
	}

	// buffer is now full; this Send must fail and close the stream.
	ok := emitter.Send(NewProgress(0.99, "collecting"))
	assert.False(t, ok)

	// further sends are no-ops once closed.
	assert.False(t, emitter.Send(NewDone()))
}

func TestEmitter_NewEmitterFailsWithoutFlushSupport(t *testing.T) {
	_, err := NewEmitter(nonFlushingWriter{}, nil)
	require.Error(t, err)
}
