package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/satindergrewal/chaincraft/internal/chain"
	"github.com/satindergrewal/chaincraft/internal/export"
	"github.com/satindergrewal/chaincraft/internal/model"
	"github.com/satindergrewal/chaincraft/internal/store"
	"github.com/satindergrewal/chaincraft/internal/stream"
)

func newMux(st *store.Store, worker *chain.Worker, b *stream.Broadcaster, rtc *stream.WebRTCHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Segment feeds
	mux.Handle("/feed", stream.NewSSEHandler(b))
	mux.Handle("/offer", rtc)

	// API endpoints
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		ch, err := st.Chain(worker.Chain().ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{
			"worker":           worker.Status(),
			"chain_state":      ch.State,
			"sse_listeners":    b.ListenerCount(),
			"webrtc_listeners": rtc.PeerCount(),
		})
	})

	mux.HandleFunc("GET /api/segments", func(w http.ResponseWriter, r *http.Request) {
		crafts, err := st.Segments(worker.Chain().ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		events := make([]stream.SegmentEvent, 0, len(crafts))
		for _, c := range crafts {
			if c.Segment.State == model.SegmentPlanned || c.Segment.State == model.SegmentCrafting {
				continue
			}
			events = append(events, stream.NewSegmentEvent(c))
		}
		writeJSON(w, events)
	})

	mux.HandleFunc("GET /api/segments/{offset}", func(w http.ResponseWriter, r *http.Request) {
		c, ok := segmentAt(w, r, st, worker.Chain().ID)
		if !ok {
			return
		}
		writeJSON(w, c)
	})

	mux.HandleFunc("GET /api/segments/{offset}/midi", func(w http.ResponseWriter, r *http.Request) {
		c, ok := segmentAt(w, r, st, worker.Chain().ID)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "audio/midi")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="segment-%06d.mid"`, c.Segment.Offset))
		if err := export.WriteMIDI(w, c); err != nil {
			log.Printf("MIDI export failed: %v", err)
		}
	})

	return mux
}

func segmentAt(w http.ResponseWriter, r *http.Request, st *store.Store, chainID string) (model.SegmentCraft, bool) {
	offset, err := strconv.Atoi(r.PathValue("offset"))
	if err != nil || offset < 0 {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return model.SegmentCraft{}, false
	}
	c, err := st.Segment(chainID, offset)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "segment not found", http.StatusNotFound)
		return c, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return c, false
	}
	return c, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}
