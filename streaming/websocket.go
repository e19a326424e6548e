package streaming

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vigia/sentinela/core"
)

// WebSocketTransport is an alternate, bidirectional transport alongside
// SSE, grounded on the teacher's ui/transports/websocket. It exists
// because the audio-chunk path in §4.8 is naturally duplex-friendly
// (a client may want to interrupt an in-progress audio response), which
// one-way SSE cannot express.
type WebSocketTransport struct {
	upgrader websocket.Upgrader
	logger   core.Logger
}

func NewWebSocketTransport(logger core.Logger) *WebSocketTransport {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve upgrades the connection and relays events off the returned
// channel to the client as JSON text frames, honoring the same ordering
// and terminal-event rules as the SSE emitter.
func (t *WebSocketTransport) Serve(w http.ResponseWriter, r *http.Request, events <-chan StreamEvent) error {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return core.NewError("Serve", core.KindSystem, "", "websocket upgrade failed", err)
	}
	defer conn.Close()

	for ev := range events {
		data, err := json.Marshal(ev.MarshalPayload())
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
		if ev.Type == EventDone || ev.Type == EventError {
			return nil
		}
	}
	return nil
}
