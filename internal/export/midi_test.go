package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/satindergrewal/chaincraft/internal/content/contenttest"
	"github.com/satindergrewal/chaincraft/internal/craft"
	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"
)

func craftedSegment(t *testing.T) model.SegmentCraft {
	t.Helper()
	seg := model.Segment{ID: "seg-0", ChainID: "chain", State: model.SegmentCrafting}
	fab, err := fabricator.New(contenttest.Library(), nil, seg, fabricator.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	c, err := craft.Run(fab)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// --- WriteMIDI ---

func TestWriteMIDI(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMIDI(&buf, craftedSegment(t)); err != nil {
		t.Fatalf("WriteMIDI: %v", err)
	}
	data := buf.Bytes()
	if len(data) < 14 || string(data[:4]) != "MThd" {
		t.Fatalf("missing MThd header: % x", data[:min(len(data), 14)])
	}
	if format := int(data[8])<<8 | int(data[9]); format != 1 {
		t.Errorf("format = %d, want 1", format)
	}

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	// Tempo track plus Bass, Drum, Pad and Percussion.
	if len(s.Tracks) != 5 {
		t.Errorf("tracks = %d, want 5", len(s.Tracks))
	}

	var drumHits, tonalHits int
	for _, tr := range s.Tracks {
		for _, ev := range tr {
			var ch, key, vel uint8
			if !midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				continue
			}
			if ch == drumChannel {
				drumHits++
			} else {
				tonalHits++
			}
		}
	}
	if drumHits == 0 || tonalHits == 0 {
		t.Errorf("drum hits = %d, tonal hits = %d, want both", drumHits, tonalHits)
	}
}

func TestWriteMIDIEmptySegment(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMIDI(&buf, model.SegmentCraft{}); err != nil {
		t.Fatalf("WriteMIDI: %v", err)
	}
	s, err := smf.ReadFrom(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Tracks) != 1 {
		t.Errorf("tracks = %d, want only the tempo track", len(s.Tracks))
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "midi")
	c := craftedSegment(t)
	path, err := WriteFile(dir, c)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "segment-000000.mid" {
		t.Errorf("path = %s", path)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("Stat = %v, %v", info, err)
	}
}

// --- Mapping ---

func TestDrumKey(t *testing.T) {
	tests := []struct {
		event string
		want  uint8
	}{
		{"KICK", 36},
		{"kik", 36},
		{"Snare", 38},
		{"Hi-Hat", 42},
		{"Clap", 39},
		{"", defaultDrum},
	}
	for _, tt := range tests {
		if got := DrumKey(tt.event); got != tt.want {
			t.Errorf("DrumKey(%q) = %d, want %d", tt.event, got, tt.want)
		}
	}
}

func TestChordKeys(t *testing.T) {
	c := model.SegmentCraft{
		Chords: []model.SegmentChord{{ID: "c1", Name: "Am"}},
		Voicings: []model.SegmentChordVoicing{
			{SegmentChordID: "c1", Type: model.InstrumentBass, Notes: "A1"},
			{SegmentChordID: "c1", Type: model.InstrumentPad, Notes: "A3, C4, E4"},
		},
	}
	if got := chordKeys(c, model.InstrumentPad, "Am"); len(got) != 3 || got[0] != 57 {
		t.Errorf("pad voicing = %v, want [57 60 64]", got)
	}
	if got := chordKeys(c, model.InstrumentStab, "Am"); len(got) != 1 || got[0] != 33 {
		t.Errorf("fallback voicing = %v, want [33]", got)
	}
	if got := chordKeys(c, model.InstrumentStab, "D minor"); len(got) != 1 || got[0] != 62 {
		t.Errorf("root fallback = %v, want [62]", got)
	}
}

func TestVelocity(t *testing.T) {
	tests := []struct {
		amp  float64
		want uint8
	}{
		{0, 1},
		{0.5, 64},
		{1, 127},
		{2, 127},
	}
	for _, tt := range tests {
		if got := velocity(tt.amp); got != tt.want {
			t.Errorf("velocity(%v) = %d, want %d", tt.amp, got, tt.want)
		}
	}
}
