package content_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/satindergrewal/chaincraft/internal/content"
	"github.com/satindergrewal/chaincraft/internal/content/contenttest"
	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"
)

// --- Fixture library ---

func TestFixtureLibrary(t *testing.T) {
	lib := contenttest.Library()

	macros := lib.PublishedPrograms(model.ProgramMacro)
	if len(macros) != 2 {
		t.Fatalf("published macros = %d, want 2", len(macros))
	}
	if macros[0].ID != contenttest.MacroTropical || macros[1].ID != contenttest.MacroUrban {
		t.Errorf("macros not ordered by id: %s, %s", macros[0].ID, macros[1].ID)
	}
	if n := len(lib.ProgramsOfType(model.ProgramMacro)); n != 3 {
		t.Errorf("all macros = %d, want 3", n)
	}

	offsets := lib.BindingOffsets(contenttest.MainSunrise)
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 1 {
		t.Errorf("BindingOffsets = %v, want [0 1]", offsets)
	}
	if bs := lib.BindingsAt(contenttest.MainSunrise, 1); len(bs) != 1 || bs[0].ProgramSequenceID != "main-sunrise-chorus" {
		t.Errorf("BindingsAt(1) = %+v", bs)
	}
	if memes := lib.BindingMemes("macro-urban-b0"); len(memes) != 2 || memes[1] != "!Warm" {
		t.Errorf("BindingMemes = %v", memes)
	}

	chords := lib.Chords("main-sunrise-verse")
	for i := 1; i < len(chords); i++ {
		if chords[i].Position < chords[i-1].Position {
			t.Errorf("chords not ordered by position: %v", chords)
		}
	}
	if vs := lib.Voicings("main-sunrise-verse-c0"); len(vs) != 2 {
		t.Errorf("voicings = %d, want 2", len(vs))
	}

	voices := lib.Voices(contenttest.DetailWarmKeys)
	if len(voices) != 3 || voices[0].ID != contenttest.VoiceBass || voices[2].ID != contenttest.VoiceDrum {
		t.Errorf("voices out of order: %+v", voices)
	}
	events := lib.Events("pattern-drum")
	if len(events) != 4 || events[0].ID != "event-kick-0" || events[3].ID != "event-snare-3" {
		t.Errorf("events out of order: %+v", events)
	}
	if ps := lib.Patterns(contenttest.VoiceDrum, "detail-warm-keys-s0"); len(ps) != 1 {
		t.Errorf("patterns = %d, want 1", len(ps))
	}
	if ps := lib.Patterns(contenttest.VoiceDrum, "other"); len(ps) != 0 {
		t.Errorf("patterns of other sequence = %d, want 0", len(ps))
	}

	loops := lib.PublishedInstruments(model.InstrumentPercussion, model.ModeLoop)
	if len(loops) != 3 {
		t.Errorf("published loops = %d, want 3 (draft excluded)", len(loops))
	}
	if n := len(lib.PublishedInstruments(model.InstrumentStab, model.ModeEvent)); n != 0 {
		t.Errorf("stab event instruments = %d, want 0", n)
	}
	if n := len(lib.Audios(contenttest.InstrumentDrum)); n != 4 {
		t.Errorf("drum audios = %d, want 4", n)
	}
}

func TestLookupNotFound(t *testing.T) {
	lib := contenttest.Library()
	if _, err := lib.Program("nope"); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Program(nope) = %v, want ErrNotFound", err)
	}
	if _, err := lib.Audio("nope"); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Audio(nope) = %v, want ErrNotFound", err)
	}
}

func TestNotFoundWrapsCleanly(t *testing.T) {
	_, err := contenttest.Library().Program("nope")
	wrapped := fmt.Errorf("%w: %w", fabricator.ErrContentNotFound, err)
	want := `content not found: program "nope": not in library`
	if wrapped.Error() != want {
		t.Errorf("wrapped error = %q, want %q", wrapped.Error(), want)
	}
	if !errors.Is(wrapped, content.ErrNotFound) || !errors.Is(wrapped, fabricator.ErrContentNotFound) {
		t.Errorf("wrapped error %v should match both sentinels", wrapped)
	}
}

func TestSlicesAreCopies(t *testing.T) {
	lib := contenttest.Library()
	bs := lib.Bindings(contenttest.MainSunrise)
	bs[0].Offset = 99
	if lib.Bindings(contenttest.MainSunrise)[0].Offset != 0 {
		t.Error("caller mutated library state")
	}
}

// --- Validation ---

func TestNewRejectsBadContent(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*content.Content)
		want   string
	}{
		{"duplicate id", func(c *content.Content) {
			c.Programs = append(c.Programs, c.Programs[0])
		}, "duplicate program"},
		{"unknown program type", func(c *content.Content) {
			c.Programs[0].Type = "Jazz"
		}, "invalid program type"},
		{"binding to foreign sequence", func(c *content.Content) {
			c.ProgramSequenceBindings[0].ProgramSequenceID = "main-street-s0"
		}, "not in program"},
		{"event without pattern", func(c *content.Content) {
			c.ProgramSequencePatternEvents[0].ProgramSequencePatternID = "missing"
		}, "unknown pattern"},
		{"audio without instrument", func(c *content.Content) {
			c.InstrumentAudios[0].InstrumentID = "missing"
		}, "unknown instrument"},
		{"bad instrument mode", func(c *content.Content) {
			c.Instruments[0].Mode = "Granular"
		}, "invalid instrument mode"},
		{"empty sequence", func(c *content.Content) {
			c.ProgramSequences[0].Total = 0
		}, "total must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := contenttest.Content()
			tt.mutate(&c)
			_, err := content.New(c)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

// --- YAML ---

const sampleYAML = `
programs:
  - {id: m1, type: Macro, state: Published, name: Drift, tempo: 120}
programMemes:
  - {id: m1-meme, programId: m1, name: Calm}
programSequences:
  - {id: m1-s0, programId: m1, total: 32, density: 0.5}
programSequenceBindings:
  - {id: m1-b1, programId: m1, programSequenceId: m1-s0, offset: 1}
  - {id: m1-b0, programId: m1, programSequenceId: m1-s0, offset: 0}
instruments:
  - {id: i1, type: Percussion, mode: Loop, state: Published, name: Shaker}
instrumentAudios:
  - {id: a1, instrumentId: i1, name: Shake, event: Loop, tones: X, totalBeats: 4}
`

func TestParseYAML(t *testing.T) {
	lib, err := content.Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	p, err := lib.Program("m1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Type != model.ProgramMacro || p.Tempo != 120 {
		t.Errorf("program = %+v", p)
	}
	if memes := lib.ProgramMemes("m1"); len(memes) != 1 || memes[0] != "Calm" {
		t.Errorf("memes = %v", memes)
	}
	bs := lib.Bindings("m1")
	if len(bs) != 2 || bs[0].ID != "m1-b0" {
		t.Errorf("bindings not sorted by offset: %+v", bs)
	}
	a, err := lib.Audio("a1")
	if err != nil || a.TotalBeats != 4 {
		t.Errorf("audio = %+v, %v", a, err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := content.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := content.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
	if _, err := content.Parse([]byte("programs: [")); err == nil {
		t.Error("Parse of broken YAML should fail")
	}
}
