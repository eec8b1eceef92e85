package chain

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/satindergrewal/chaincraft/internal/content"
	"github.com/satindergrewal/chaincraft/internal/content/contenttest"
	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"
	"github.com/satindergrewal/chaincraft/internal/store"
)

func newTestWorker(t *testing.T, lib *content.Library, bufferAhead time.Duration) (*Worker, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chain.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	c, err := st.CreateChain("test")
	if err != nil {
		t.Fatal(err)
	}
	w := NewWorker(st, lib, c, WorkerConfig{
		BufferAhead: bufferAhead,
		Poll:        time.Millisecond,
		RetryDelay:  time.Millisecond,
		Fabrication: fabricator.DefaultConfig(),
	})
	return w, st
}

// --- Step ---

func TestStepCraftsInOrder(t *testing.T) {
	w, st := newTestWorker(t, contenttest.Library(), time.Minute)

	var mu sync.Mutex
	var published []int
	w.SetPublishFunc(func(c model.SegmentCraft) {
		mu.Lock()
		published = append(published, c.Segment.Offset)
		mu.Unlock()
	})

	want := []model.SegmentType{model.SegmentInitial, model.SegmentContinue, model.SegmentNextMain, model.SegmentNextMacro, model.SegmentNextMacro}
	var end float64
	for i, typ := range want {
		craft, err := w.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		seg := craft.Segment
		if seg.Offset != i || seg.Type != typ || seg.State != model.SegmentCrafted {
			t.Errorf("Step %d = offset %d %s %s, want %d %s Crafted", i, seg.Offset, seg.Type, seg.State, i, typ)
		}
		if seg.ID != SegmentID(w.Chain().ID, i) {
			t.Errorf("Step %d id = %s, want stable id", i, seg.ID)
		}
		if seg.BeginSeconds != end {
			t.Errorf("Step %d begins at %v, want %v", i, seg.BeginSeconds, end)
		}
		end = seg.EndSeconds()
	}

	segs, err := st.Segments(w.Chain().ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != len(want) {
		t.Errorf("stored %d segments, want %d", len(segs), len(want))
	}
	if len(published) != len(want) {
		t.Errorf("published %d segments, want %d", len(published), len(want))
	}

	status := w.Status()
	if status.Offset != 4 || status.LastType != model.SegmentNextMacro || status.Failures != 0 {
		t.Errorf("Status = %+v", status)
	}
	if status.AheadSeconds != end {
		t.Errorf("AheadSeconds = %v, want %v before playback starts", status.AheadSeconds, end)
	}
}

func TestStepRetriesFailedSegment(t *testing.T) {
	c := contenttest.Content()
	for i := range c.Programs {
		if c.Programs[i].Type == model.ProgramMain {
			c.Programs[i].State = model.ProgramDraft
		}
	}
	lib, err := content.New(c)
	if err != nil {
		t.Fatal(err)
	}
	w, st := newTestWorker(t, lib, time.Minute)

	for range 2 {
		if _, err := w.Step(context.Background()); !errors.Is(err, fabricator.ErrContentNotFound) {
			t.Fatalf("Step = %v, want ErrContentNotFound", err)
		}
	}
	status := w.Status()
	if status.Failures != 2 || status.Offset != -1 || status.LastError == "" {
		t.Errorf("Status = %+v", status)
	}

	last, ok, err := st.LastSegment(w.Chain().ID)
	if err != nil || !ok {
		t.Fatalf("LastSegment = %v, %v", ok, err)
	}
	if last.Segment.Offset != 0 || last.Segment.State != model.SegmentPlanned {
		t.Errorf("failed segment = offset %d %s, want 0 Planned", last.Segment.Offset, last.Segment.State)
	}
}

func TestStepHonoursContext(t *testing.T) {
	w, _ := newTestWorker(t, contenttest.Library(), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Step = %v, want context.Canceled", err)
	}
}

// --- Run ---

func TestRunFillsBuffer(t *testing.T) {
	w, st := newTestWorker(t, contenttest.Library(), 20*time.Second)
	frozen := time.Unix(1_700_000_000, 0)
	w.now = func() time.Time { return frozen }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for w.Status().AheadSeconds < 20 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("buffer not filled: %+v", w.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}
	// With the clock frozen the worker must stop crafting once full.
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	segs, err := st.Segments(w.Chain().ID)
	if err != nil {
		t.Fatal(err)
	}
	// 8s + 8s + ~4.4s reaches 20s of buffer.
	if len(segs) != 3 {
		t.Errorf("crafted %d segments, want 3", len(segs))
	}
	c, err := st.Chain(w.Chain().ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.State != model.ChainFabricate {
		t.Errorf("chain state = %s, want Fabricate", c.State)
	}
}

func TestRunResumesChain(t *testing.T) {
	w, st := newTestWorker(t, contenttest.Library(), time.Minute)
	for range 2 {
		if _, err := w.Step(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	resumed := NewWorker(st, contenttest.Library(), w.Chain(), WorkerConfig{Poll: time.Millisecond})
	if err := resumed.begin(); err != nil {
		t.Fatal(err)
	}
	if s := resumed.Status(); s.Offset != 1 || s.LastType != model.SegmentContinue {
		t.Errorf("resumed Status = %+v", s)
	}
	craft, err := resumed.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if craft.Segment.Offset != 2 || craft.Segment.Type != model.SegmentNextMain {
		t.Errorf("resumed Step = %d %s, want 2 NextMain", craft.Segment.Offset, craft.Segment.Type)
	}
}

func TestRunRejectsFinishedChain(t *testing.T) {
	w, st := newTestWorker(t, contenttest.Library(), time.Minute)
	id := w.Chain().ID
	for _, to := range []model.ChainState{model.ChainReady, model.ChainFabricate, model.ChainComplete} {
		if _, err := st.UpdateChainState(id, to); err != nil {
			t.Fatal(err)
		}
	}
	c, _ := st.Chain(id)
	finished := NewWorker(st, contenttest.Library(), c, WorkerConfig{})
	if err := finished.Run(context.Background()); err == nil {
		t.Error("Run on a Complete chain should fail")
	}
}

func TestSegmentIDStable(t *testing.T) {
	if SegmentID("chain", 3) != SegmentID("chain", 3) {
		t.Error("SegmentID not stable")
	}
	if SegmentID("chain", 3) == SegmentID("chain", 4) {
		t.Error("SegmentID collides across offsets")
	}
}
