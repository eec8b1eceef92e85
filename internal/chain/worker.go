// Package chain keeps a chain's crafted segments ahead of its playback.
package chain

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/satindergrewal/chaincraft/internal/content"
	"github.com/satindergrewal/chaincraft/internal/craft"
	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"
	"github.com/satindergrewal/chaincraft/internal/store"
)

// WorkerConfig holds fabrication worker parameters.
type WorkerConfig struct {
	BufferAhead time.Duration // crafted audio to keep ahead of playback
	Poll        time.Duration // idle wait while the buffer is full
	RetryDelay  time.Duration // wait after a failed segment
	Fabrication fabricator.Config
}

// Status is the current state of the worker.
type Status struct {
	ChainID      string            `json:"chain_id"`
	ChainName    string            `json:"chain_name"`
	Offset       int               `json:"offset"` // last crafted offset, -1 before the first
	LastType     model.SegmentType `json:"last_type"`
	AheadSeconds float64           `json:"ahead_seconds"`
	Failures     int               `json:"failures"`
	LastError    string            `json:"last_error,omitempty"`
}

// PublishFunc receives each crafted segment.
type PublishFunc func(model.SegmentCraft)

// Worker crafts the segments of one chain in offset order.
type Worker struct {
	store *store.Store
	fabs  fabricator.Factory
	chain model.Chain
	cfg   WorkerConfig
	now   func() time.Time

	publishFn PublishFunc

	mu         sync.RWMutex
	started    time.Time
	resumeAt   float64 // chain seconds at which playback resumed
	craftedEnd float64 // chain seconds of the end of the last crafted segment
	lastOffset int
	lastType   model.SegmentType
	failures   int
	lastErr    error
}

// NewWorker creates a worker for a stored chain.
func NewWorker(st *store.Store, lib *content.Library, chain model.Chain, cfg WorkerConfig) *Worker {
	if cfg.Poll <= 0 {
		cfg.Poll = time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Worker{
		store:      st,
		fabs:       fabricator.Factory{Library: lib, Config: cfg.Fabrication},
		chain:      chain,
		cfg:        cfg,
		now:        time.Now,
		lastOffset: -1,
	}
}

// SetPublishFunc sets the callback for crafted segments. Pass nil to disable.
func (w *Worker) SetPublishFunc(fn PublishFunc) {
	w.mu.Lock()
	w.publishFn = fn
	w.mu.Unlock()
}

// Chain returns the chain being fabricated.
func (w *Worker) Chain() model.Chain {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chain
}

// Status returns the current worker state.
func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := Status{
		ChainID:      w.chain.ID,
		ChainName:    w.chain.Name,
		Offset:       w.lastOffset,
		LastType:     w.lastType,
		AheadSeconds: max(w.craftedEnd-w.playbackLocked(), 0),
		Failures:     w.failures,
	}
	if w.lastErr != nil {
		st.LastError = w.lastErr.Error()
	}
	return st
}

// playbackLocked is the chain position being heard. Must be called with mu held.
func (w *Worker) playbackLocked() float64 {
	if w.started.IsZero() {
		return w.resumeAt
	}
	return w.resumeAt + w.now().Sub(w.started).Seconds()
}

// Run moves the chain into fabrication and keeps the buffer full. Blocks
// until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.begin(); err != nil {
		return err
	}
	log.Printf("Fabricating chain %q from offset %d", w.chain.Name, w.Status().Offset+1)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if w.Status().AheadSeconds >= w.cfg.BufferAhead.Seconds() {
			if !sleep(ctx, w.cfg.Poll) {
				return nil
			}
			continue
		}
		if _, err := w.Step(ctx); err != nil {
			log.Printf("Segment error: %v", err)
			if !sleep(ctx, w.cfg.RetryDelay) {
				return nil
			}
		}
	}
}

// begin moves the chain to Fabricate and restores position from the store.
func (w *Worker) begin() error {
	c := w.Chain()
	if c.State == model.ChainDraft {
		var err error
		if c, err = w.store.UpdateChainState(c.ID, model.ChainReady); err != nil {
			return err
		}
	}
	if c.State == model.ChainReady {
		var err error
		if c, err = w.store.UpdateChainState(c.ID, model.ChainFabricate); err != nil {
			return err
		}
	}
	if c.State != model.ChainFabricate {
		return fmt.Errorf("chain %q is %s", c.Name, c.State)
	}

	if err := w.restore(); err != nil {
		return err
	}
	w.mu.Lock()
	w.chain = c
	w.resumeAt = w.craftedEnd
	w.started = w.now()
	w.mu.Unlock()
	return nil
}

// restore loads the last crafted segment so a restarted worker continues
// where it left off.
func (w *Worker) restore() error {
	retro, err := w.store.Retrospective(w.chain.ID)
	if err != nil {
		return err
	}
	prev, ok := retro.Previous()
	if !ok {
		return nil
	}
	w.mu.Lock()
	w.lastOffset = prev.Segment.Offset
	w.lastType = prev.Segment.Type
	w.craftedEnd = prev.Segment.EndSeconds()
	w.mu.Unlock()
	return nil
}

// Step crafts the next segment of the chain. The segment is stored as
// Planned first; if crafting fails it stays Planned and the next Step
// retries the same offset.
func (w *Worker) Step(ctx context.Context) (model.SegmentCraft, error) {
	if err := ctx.Err(); err != nil {
		return model.SegmentCraft{}, err
	}
	chainID := w.Chain().ID

	seg, err := w.plan(chainID)
	if err != nil {
		return model.SegmentCraft{}, w.fail(err)
	}
	if err := w.store.SaveSegment(model.SegmentCraft{Segment: seg}); err != nil {
		return model.SegmentCraft{}, w.fail(err)
	}

	retro, err := w.store.Retrospective(chainID)
	if err != nil {
		return model.SegmentCraft{}, w.fail(err)
	}
	if err := seg.Transition(model.SegmentCrafting); err != nil {
		return model.SegmentCraft{}, w.fail(err)
	}
	fab, err := w.fabs.Fabricate(seg, retro)
	if err != nil {
		return model.SegmentCraft{}, w.fail(err)
	}
	result, err := craft.Run(fab)
	if err != nil {
		return model.SegmentCraft{}, w.fail(err)
	}
	if err := w.store.SaveSegment(result); err != nil {
		return model.SegmentCraft{}, w.fail(err)
	}

	s := result.Segment
	log.Printf("Crafted segment %d: %s, %d beats at %.0f bpm, key %s (%.1fs)",
		s.Offset, s.Type, s.Total, s.Tempo, s.Key, s.DurationSeconds)

	w.mu.Lock()
	w.lastOffset = s.Offset
	w.lastType = s.Type
	w.craftedEnd = s.EndSeconds()
	w.lastErr = nil
	publishFn := w.publishFn
	w.mu.Unlock()

	if publishFn != nil {
		publishFn(result)
	}
	return result, nil
}

// plan returns the next segment to craft: a previously failed Planned
// segment, or a new one after the last crafted segment.
func (w *Worker) plan(chainID string) (model.Segment, error) {
	last, ok, err := w.store.LastSegment(chainID)
	if err != nil {
		return model.Segment{}, err
	}
	if !ok {
		return newSegment(chainID, 0, 0), nil
	}
	switch last.Segment.State {
	case model.SegmentPlanned:
		return last.Segment, nil
	case model.SegmentCrafting:
		seg := last.Segment
		seg.State = model.SegmentPlanned
		return seg, nil
	}
	return newSegment(chainID, last.Segment.Offset+1, last.Segment.EndSeconds()), nil
}

func (w *Worker) fail(err error) error {
	w.mu.Lock()
	w.failures++
	w.lastErr = err
	w.mu.Unlock()
	return err
}

// SegmentID is the stable id of a chain's segment at an offset.
func SegmentID(chainID string, offset int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chainID+":"+strconv.Itoa(offset))).String()
}

func newSegment(chainID string, offset int, begin float64) model.Segment {
	return model.Segment{
		ID:           SegmentID(chainID, offset),
		ChainID:      chainID,
		Offset:       offset,
		State:        model.SegmentPlanned,
		Type:         model.SegmentPending,
		BeginSeconds: begin,
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
