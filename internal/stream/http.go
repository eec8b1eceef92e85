package stream

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// SSEHandler serves segment events as a text/event-stream feed.
type SSEHandler struct {
	broadcaster *Broadcaster
}

// NewSSEHandler creates an event-stream handler.
func NewSSEHandler(b *Broadcaster) *SSEHandler {
	return &SSEHandler{broadcaster: b}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	log.Printf("Feed listener connected (total: %d)", h.broadcaster.ListenerCount())
	defer log.Printf("Feed listener disconnected")

	for {
		select {
		case <-r.Context().Done():
			return
		case <-listener.done:
			return
		case ev := <-listener.C:
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Feed: encode error: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: segment\ndata: %s\n\n", ev.Offset, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
