package fabricator

import (
	"errors"
	"math"
	"testing"

	"github.com/satindergrewal/chaincraft/internal/content/contenttest"
	"github.com/satindergrewal/chaincraft/internal/model"
)

func crafting(offset int) model.Segment {
	return model.Segment{
		ID:      "seg-" + string(rune('a'+offset)),
		ChainID: "chain-1",
		Offset:  offset,
		State:   model.SegmentCrafting,
	}
}

func newFab(t *testing.T, retro *Retrospective, seg model.Segment) *Fabricator {
	t.Helper()
	f, err := New(contenttest.Library(), retro, seg, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

// --- Construction ---

func TestNewRejectsMalformedSegments(t *testing.T) {
	lib := contenttest.Library()

	planned := crafting(0)
	planned.State = model.SegmentPlanned
	if _, err := New(lib, nil, planned, DefaultConfig()); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("planned segment: err = %v, want ErrMalformedInput", err)
	}

	anon := crafting(0)
	anon.ID = ""
	if _, err := New(lib, nil, anon, DefaultConfig()); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("segment without id: err = %v, want ErrMalformedInput", err)
	}

	prev := model.SegmentCraft{Segment: crafting(3)}
	if _, err := New(lib, NewRetrospective([]model.SegmentCraft{prev}), crafting(2), DefaultConfig()); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("segment before its predecessor: err = %v, want ErrMalformedInput", err)
	}
}

func TestNewRejectsMalformedConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative layer min", func(c *Config) { c.PercLoopLayerMin, c.PercLoopLayerMax = -3, 0 }},
		{"layer max below min", func(c *Config) { c.PercLoopLayerMin, c.PercLoopLayerMax = 3, 1 }},
		{"negative density floor", func(c *Config) { c.DensityFloor = -0.1 }},
		{"floor above ceiling", func(c *Config) { c.DensityFloor, c.DensityCeiling = 0.8, 0.2 }},
		{"ceiling above one", func(c *Config) { c.DensityCeiling = 1.5 }},
		{"detail plateau above one", func(c *Config) { c.DetailPlateauRatio = 1.2 }},
		{"perc loop plateau negative", func(c *Config) { c.PercLoopPlateauRatio = -0.5 }},
		{"negative intro fade", func(c *Config) { c.IntroFadeBeats = -1 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(&cfg)
		if _, err := New(contenttest.Library(), nil, crafting(0), cfg); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("%s: err = %v, want ErrMalformedInput", tt.name, err)
		}
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
	if err := (Config{}).Validate(); err != nil {
		t.Errorf("zero Config.Validate() = %v, want nil", err)
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil is not fatal")
	}
	if IsFatal(errors.Join(errors.New("detail"), ErrNoValidChoice)) {
		t.Error("NoValidChoice should be recoverable")
	}
	for _, err := range []error{ErrContentNotFound, ErrInvalidContinuity, ErrMalformedInput} {
		if !IsFatal(err) {
			t.Errorf("%v should be fatal", err)
		}
	}
}

// --- Workbench ---

func TestPutChoiceFillsReferences(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	c, err := f.PutChoice(model.SegmentChoice{
		ProgramID:                contenttest.MainSunrise,
		ProgramSequenceBindingID: "main-sunrise-b1",
		DeltaIn:                  model.DeltaUnlimited,
		DeltaOut:                 model.DeltaUnlimited,
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == "" || c.SegmentID != "seg-a" {
		t.Errorf("choice ids = %q, %q", c.ID, c.SegmentID)
	}
	if c.ProgramType != model.ProgramMain || c.ProgramSequenceID != "main-sunrise-chorus" {
		t.Errorf("choice = %+v", c)
	}

	// Idempotent on id.
	c.DeltaIn = 4
	c.DeltaOut = 8
	if _, err := f.PutChoice(c); err != nil {
		t.Fatal(err)
	}
	if got := f.Choices(); len(got) != 1 || got[0].DeltaIn != 4 {
		t.Errorf("choices after re-put = %+v", got)
	}
}

func TestPutChoiceValidation(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	tests := []struct {
		name   string
		choice model.SegmentChoice
		want   error
	}{
		{"unknown program", model.SegmentChoice{ProgramID: "nope"}, ErrContentNotFound},
		{"unknown instrument", model.SegmentChoice{InstrumentID: "nope"}, ErrContentNotFound},
		{"foreign binding", model.SegmentChoice{ProgramID: contenttest.MainSunrise, ProgramSequenceBindingID: "main-street-b0"}, ErrMalformedInput},
		{"foreign voice", model.SegmentChoice{ProgramID: contenttest.MainSunrise, ProgramVoiceID: contenttest.VoiceBass}, ErrMalformedInput},
		{"inverted window", model.SegmentChoice{ProgramID: contenttest.MainSunrise, DeltaIn: 9, DeltaOut: 3}, ErrMalformedInput},
	}
	for _, tt := range tests {
		if _, err := f.PutChoice(tt.choice); !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
	if n := len(f.Choices()); n != 0 {
		t.Errorf("rejected choices were stored: %d", n)
	}
	if _, err := f.PutChoice(model.SegmentChoice{ProgramID: contenttest.MainSunrise, DeltaIn: model.DeltaUnlimited, DeltaOut: 3}); err != nil {
		t.Errorf("unlimited deltaIn should be accepted: %v", err)
	}
}

func TestPutPickRequiresArrangement(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	if _, err := f.PutArrangement(model.SegmentChoiceArrangement{SegmentChoiceID: "missing"}); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("arrangement of missing choice: err = %v", err)
	}
	if _, err := f.PutPick(model.SegmentChoiceArrangementPick{SegmentChoiceArrangementID: "missing", InstrumentAudioID: "audio-kick"}); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("pick of missing arrangement: err = %v", err)
	}

	c, _ := f.PutChoice(model.SegmentChoice{InstrumentID: contenttest.InstrumentDrum, DeltaIn: model.DeltaUnlimited, DeltaOut: model.DeltaUnlimited})
	a, err := f.PutArrangement(model.SegmentChoiceArrangement{SegmentChoiceID: c.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.PutPick(model.SegmentChoiceArrangementPick{SegmentChoiceArrangementID: a.ID, InstrumentAudioID: "nope"}); !errors.Is(err, ErrContentNotFound) {
		t.Errorf("pick of missing audio: err = %v", err)
	}
	p, err := f.PutPick(model.SegmentChoiceArrangementPick{SegmentChoiceArrangementID: a.ID, InstrumentAudioID: "audio-kick", LengthSeconds: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if got := f.PicksOfChoice(c.ID); len(got) != 1 || got[0].ID != p.ID {
		t.Errorf("PicksOfChoice = %+v", got)
	}
}

func TestPutMemeDedupes(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	a := f.PutMeme("Warm")
	b := f.PutMeme(" warm ")
	if a.ID != b.ID || len(f.Memes()) != 1 {
		t.Errorf("memes = %+v", f.Memes())
	}
}

func TestDeterministicIDs(t *testing.T) {
	a := newFab(t, nil, crafting(0))
	b := newFab(t, nil, crafting(0))
	for range 3 {
		if x, y := a.NewID("pick"), b.NewID("pick"); x != y {
			t.Fatalf("ids diverge: %s vs %s", x, y)
		}
	}
	c := newFab(t, nil, crafting(1))
	if a.NewID("pick") == c.NewID("pick") {
		t.Error("different segments should not share ids")
	}
	if a.Rand().Uint64() != b.Rand().Uint64() {
		t.Error("random sources diverge")
	}
}

func TestStickyBun(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	bun := f.StickyBun("event-kick-0")
	if len(bun.Seeds) != stickyBunSeeds {
		t.Fatalf("seeds = %v", bun.Seeds)
	}
	for _, s := range bun.Seeds {
		if s < 0 {
			t.Errorf("negative seed %d", s)
		}
	}
	if again := f.StickyBun("event-kick-0"); again.Seeds[0] != bun.Seeds[0] || len(f.StickyBuns()) != 1 {
		t.Error("sticky bun not stable within segment")
	}

	// A later segment of the same chain reuses the recorded bun.
	prev := model.SegmentCraft{
		Segment:    crafting(0),
		StickyBuns: []model.StickyBun{{EventID: "event-kick-0", Seeds: []int{7}}},
	}
	g := newFab(t, NewRetrospective([]model.SegmentCraft{prev}), crafting(1))
	if got := g.StickyBun("event-kick-0"); len(got.Seeds) != 1 || got.Seeds[0] != 7 {
		t.Errorf("carried bun = %+v, want seeds [7]", got)
	}
}

// --- Computations ---

func TestChordAt(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	if _, ok := f.ChordAt(0); ok {
		t.Error("ChordAt with no chords should report false")
	}
	for _, c := range []model.SegmentChord{{Position: 4, Name: "Am"}, {Position: 8, Name: "F"}, {Position: 0, Name: "C"}} {
		if _, err := f.PutChord(c); err != nil {
			t.Fatal(err)
		}
	}
	tests := []struct {
		pos  float64
		want string
	}{
		{-1, "C"},
		{0, "C"},
		{3.99, "C"},
		{4, "Am"},
		{7.5, "Am"},
		{100, "F"},
	}
	for _, tt := range tests {
		c, _ := f.ChordAt(tt.pos)
		if c.Name != tt.want {
			t.Errorf("ChordAt(%v) = %s, want %s", tt.pos, c.Name, tt.want)
		}
	}
}

func TestSecondsAtPosition(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	if _, err := f.SecondsAtPosition(1); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("segment without tempo: err = %v, want ErrMalformedInput", err)
	}

	seg := f.Segment()
	seg.Total = 16
	seg.Tempo = 60
	if err := f.SetSegment(seg); err != nil {
		t.Fatal(err)
	}
	got, err := f.SecondsAtPosition(8)
	if err != nil || got != 8.0 {
		t.Errorf("SecondsAtPosition(8) = %v, %v; want 8", got, err)
	}

	// Ramp from the previous segment's tempo.
	prev := model.SegmentCraft{Segment: model.Segment{ID: "seg-a", ChainID: "chain-1", Offset: 0, Tempo: 60}}
	g := newFab(t, NewRetrospective([]model.SegmentCraft{prev}), crafting(1))
	seg = g.Segment()
	seg.Total = 16
	seg.Tempo = 120
	_ = g.SetSegment(seg)
	got, _ = g.SecondsAtPosition(16)
	if math.Abs(got-12.0039) > 0.001 {
		t.Errorf("ramped SecondsAtPosition(16) = %v, want ~12.0039", got)
	}
}

func TestSetSegmentKeepsIdentity(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	seg := f.Segment()
	seg.Offset = 5
	if err := f.SetSegment(seg); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("SetSegment with new offset: err = %v", err)
	}
}

func TestProgramRange(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	r, err := f.ProgramRange(contenttest.DetailWarmKeys, model.InstrumentBass)
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != "C2-G2" {
		t.Errorf("bass range = %s, want C2-G2", r)
	}
	r, _ = f.ProgramRange(contenttest.DetailWarmKeys, model.InstrumentDrum)
	if !r.IsEmpty() {
		t.Errorf("drum range = %s, want empty (atonal)", r)
	}
	if _, err := f.ProgramRange("nope", model.InstrumentBass); !errors.Is(err, ErrContentNotFound) {
		t.Errorf("unknown program: err = %v", err)
	}
}

func TestMemeIsometryAndBindings(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	c, err := f.PutChoice(model.SegmentChoice{
		ProgramID:                contenttest.MacroUrban,
		ProgramSequenceBindingID: "macro-urban-b0",
		DeltaIn:                  model.DeltaUnlimited,
		DeltaOut:                 model.DeltaUnlimited,
	})
	if err != nil {
		t.Fatal(err)
	}
	iso := f.MemeIsometryOfSegment()
	if got := iso.Constellation(); got != "!Warm_Cool_Urban" {
		t.Errorf("Constellation = %q", got)
	}
	if off, err := f.SequenceBindingOffsetForChoice(c); err != nil || off != 0 {
		t.Errorf("offset = %d, %v", off, err)
	}
	if _, err := f.SequenceBindingOffsetForChoice(model.SegmentChoice{ProgramSequenceBindingID: "gone"}); !errors.Is(err, ErrContentNotFound) {
		t.Errorf("missing binding: err = %v", err)
	}
}

func TestMainProgramLengthAndVoicingTypes(t *testing.T) {
	f := newFab(t, nil, crafting(0))
	if _, err := f.MainProgramLengthBeats(); err == nil {
		t.Error("length without a main choice should fail")
	}
	if _, err := f.PutChoice(model.SegmentChoice{ProgramID: contenttest.MainSunrise, ProgramSequenceBindingID: "main-sunrise-b0", DeltaIn: -1, DeltaOut: -1}); err != nil {
		t.Fatal(err)
	}
	if n, err := f.MainProgramLengthBeats(); err != nil || n != 32 {
		t.Errorf("MainProgramLengthBeats = %d, %v; want 32", n, err)
	}

	chord, _ := f.PutChord(model.SegmentChord{Name: "C"})
	for _, typ := range []model.InstrumentType{model.InstrumentPad, model.InstrumentBass, model.InstrumentPad} {
		if _, err := f.PutVoicing(model.SegmentChordVoicing{SegmentChordID: chord.ID, Type: typ, Notes: "C4"}); err != nil {
			t.Fatal(err)
		}
	}
	got := f.DistinctChordVoicingTypes()
	if len(got) != 2 || got[0] != model.InstrumentBass || got[1] != model.InstrumentPad {
		t.Errorf("DistinctChordVoicingTypes = %v", got)
	}
	if _, ok := f.Voicing(chord.ID, model.InstrumentBass); !ok {
		t.Error("bass voicing not found")
	}
}

// --- Retrospective ---

func TestRetrospective(t *testing.T) {
	var empty *Retrospective
	if _, ok := empty.Previous(); ok {
		t.Error("nil retrospective has no previous segment")
	}

	older := model.SegmentCraft{Segment: model.Segment{Offset: 1}}
	newer := model.SegmentCraft{
		Segment: model.Segment{Offset: 2},
		Choices: []model.SegmentChoice{
			{ID: "c-macro", ProgramType: model.ProgramMacro},
			{ID: "c-loop", InstrumentMode: model.ModeLoop},
		},
		Arrangements: []model.SegmentChoiceArrangement{{ID: "a1", SegmentChoiceID: "c-loop"}},
		Picks: []model.SegmentChoiceArrangementPick{
			{ID: "p1", SegmentChoiceArrangementID: "a1", InstrumentAudioID: "audio-loop-a1"},
			{ID: "p2", SegmentChoiceArrangementID: "other"},
		},
	}
	r := NewRetrospective([]model.SegmentCraft{newer, older})
	prev, ok := r.Previous()
	if !ok || prev.Segment.Offset != 2 {
		t.Fatalf("Previous = %+v", prev.Segment)
	}
	if c, ok := r.PreviousChoice(model.ProgramMacro); !ok || c.ID != "c-macro" {
		t.Errorf("PreviousChoice = %+v", c)
	}
	loops := r.PreviousChoices(func(c model.SegmentChoice) bool { return c.InstrumentMode == model.ModeLoop })
	if len(loops) != 1 {
		t.Errorf("PreviousChoices = %+v", loops)
	}
	if picks := r.PreviousPicks("c-loop"); len(picks) != 1 || picks[0].ID != "p1" {
		t.Errorf("PreviousPicks = %+v", picks)
	}
}
