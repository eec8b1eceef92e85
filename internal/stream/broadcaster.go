package stream

import (
	"context"
	"sync"

	"github.com/satindergrewal/chaincraft/internal/model"
)

// listenerBuffer is how many events a listener may fall behind before
// events are dropped for it.
const listenerBuffer = 32

// SegmentEvent summarizes one crafted segment for listeners.
type SegmentEvent struct {
	ChainID         string            `json:"chain_id"`
	SegmentID       string            `json:"segment_id"`
	Offset          int               `json:"offset"`
	Type            model.SegmentType `json:"type"`
	Key             string            `json:"key"`
	Tempo           float64           `json:"tempo"`
	Total           int               `json:"total"`
	Density         float64           `json:"density"`
	BeginSeconds    float64           `json:"begin_seconds"`
	DurationSeconds float64           `json:"duration_seconds"`
	Memes           []string          `json:"memes"`
	Programs        []string          `json:"programs"`
	Instruments     []string          `json:"instruments"`
	Picks           int               `json:"picks"`
}

// NewSegmentEvent builds the event for a crafted segment.
func NewSegmentEvent(craft model.SegmentCraft) SegmentEvent {
	s := craft.Segment
	ev := SegmentEvent{
		ChainID:         s.ChainID,
		SegmentID:       s.ID,
		Offset:          s.Offset,
		Type:            s.Type,
		Key:             s.Key,
		Tempo:           s.Tempo,
		Total:           s.Total,
		Density:         s.Density,
		BeginSeconds:    s.BeginSeconds,
		DurationSeconds: s.DurationSeconds,
		Memes:           []string{},
		Programs:        []string{},
		Instruments:     []string{},
		Picks:           len(craft.Picks),
	}
	for _, m := range craft.Memes {
		ev.Memes = append(ev.Memes, m.Name)
	}
	seen := map[string]bool{}
	for _, c := range craft.Choices {
		if c.ProgramID != "" && !seen[c.ProgramID] {
			seen[c.ProgramID] = true
			ev.Programs = append(ev.Programs, c.ProgramID)
		}
		if c.InstrumentID != "" && !seen[c.InstrumentID] {
			seen[c.InstrumentID] = true
			ev.Instruments = append(ev.Instruments, c.InstrumentID)
		}
	}
	return ev
}

// Broadcaster fans out segment events from one source to N listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
}

// Listener receives segment events from the broadcaster.
type Listener struct {
	C    chan SegmentEvent
	done chan struct{}
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} { return l.done }

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener. Returns a Listener that receives events.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan SegmentEvent, listenerBuffer),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	_, ok := b.listeners[l]
	delete(b.listeners, l)
	b.mu.Unlock()
	if ok {
		close(l.done)
	}
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish sends one event to every listener. Slow listeners get the event
// dropped rather than blocking the broadcast.
func (b *Broadcaster) Publish(ev SegmentEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for l := range b.listeners {
		select {
		case l.C <- ev:
		default:
		}
	}
}

// Run reads events from source and fans out to all listeners.
func (b *Broadcaster) Run(ctx context.Context, source <-chan SegmentEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-source:
			if !ok {
				return
			}
			b.Publish(ev)
		}
	}
}
