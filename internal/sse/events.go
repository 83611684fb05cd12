package sse

import (
	"io"

	ginsse "github.com/gin-contrib/sse"
)

// Event names sent on the stream.
const (
	EventEndpoint = "endpoint"
	EventMessage  = "message"
)

const keepAliveFrame = ": keep-alive\n\n"

// Event is one frame queued for a session's stream. Data is either a string
// or pre-encoded JSON bytes.
type Event struct {
	Name string
	Data any
}

// Encode writes e as a text/event-stream frame.
func Encode(w io.Writer, e Event) error {
	return ginsse.Encode(w, ginsse.Event{Event: e.Name, Data: e.Data})
}

// KeepAlive writes an SSE comment line. Clients ignore it; proxies see
// traffic and keep the connection open.
func KeepAlive(w io.Writer) error {
	_, err := io.WriteString(w, keepAliveFrame)
	return err
}
