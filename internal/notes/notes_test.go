package notes

import (
	"errors"
	"testing"
)

// --- Note ---

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		pitch int
	}{
		{"C4", 60},
		{"c4", 60},
		{"A4", 69},
		{"F#2", 42},
		{"Gb2", 42},
		{"Bb-1", 10},
		{"C", 60},
		{" E3 ", 52},
	}
	for _, tt := range tests {
		n, err := Parse(tt.name)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.name, err)
			continue
		}
		if n.Pitch != tt.pitch || n.Atonal {
			t.Errorf("Parse(%q) = %+v, want pitch %d", tt.name, n, tt.pitch)
		}
	}
}

func TestParseAtonalAndInvalid(t *testing.T) {
	n, err := Parse("x")
	if err != nil || !n.Atonal {
		t.Errorf("Parse(x) = %+v, %v; want atonal", n, err)
	}
	for _, bad := range []string{"", "H4", "C#z"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestNoteString(t *testing.T) {
	if got := (Note{Pitch: 61}).String(); got != "C#4" {
		t.Errorf("String = %q, want C#4", got)
	}
	if got := (Note{Pitch: 11}).String(); got != "B-1" {
		t.Errorf("String = %q, want B-1", got)
	}
	if got := Atonal().String(); got != "X" {
		t.Errorf("String = %q, want X", got)
	}
}

func TestParseListAndJoin(t *testing.T) {
	ns := ParseList("C4, E4,, bogus, G4")
	if len(ns) != 3 {
		t.Fatalf("ParseList returned %d notes, want 3", len(ns))
	}
	if got := JoinList(ns); got != "C4, E4, G4" {
		t.Errorf("JoinList = %q", got)
	}
}

// --- NoteRange ---

func TestNoteRange(t *testing.T) {
	var r NoteRange
	if !r.IsEmpty() || r.Span() != 0 {
		t.Error("zero range should be empty")
	}
	r.Expand(Note{Pitch: 64})
	r.Expand(Atonal())
	r.Expand(Note{Pitch: 55})
	if r.Low().Pitch != 55 || r.High().Pitch != 64 {
		t.Errorf("range = %s, want G3-E4", r)
	}
	if r.Distance(Note{Pitch: 50}) != 5 || r.Distance(Note{Pitch: 60}) != 0 || r.Distance(Note{Pitch: 70}) != 6 {
		t.Error("Distance wrong")
	}
	if r.Midpoint() != 59.5 {
		t.Errorf("Midpoint = %v", r.Midpoint())
	}
	if !r.Includes(Note{Pitch: 60}) || r.Includes(Atonal()) {
		t.Error("Includes wrong")
	}
}

// --- Chords ---

func TestNormalizeChord(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"CMadd9", "Cadd9"},
		{"C add9", "Cadd9"},
		{"C major", "C"},
		{"Cmin7", "Cm7"},
		{"C-7", "Cm7"},
		{"CMaj7", "Cmaj7"},
		{"CM7", "Cmaj7"},
		{"Db", "C#"},
		{"Bbm7", "A#m7"},
		{"C/E", "C/E"},
		{"Cmaj7 / Bb", "Cmaj7/A#"},
		{" ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeChord(tt.name); got != tt.want {
			t.Errorf("NormalizeChord(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestChordsEquivalent(t *testing.T) {
	if !ChordsEquivalent("CMadd9", "C add9") {
		t.Error("CMadd9 should equal C add9")
	}
	if ChordsEquivalent("Cm", "C") {
		t.Error("Cm should not equal C")
	}
}

func TestMatchChord(t *testing.T) {
	candidates := []string{"Dm", "C", "C/E", "F add9"}
	tests := []struct {
		target string
		want   int
		ok     bool
	}{
		{"C", 1, true},
		{"C/E", 2, true},
		{"C/G", 1, true},
		{"FMadd9", 3, true},
		{"D minor", 0, true},
		{"G", -1, false},
		{"G/B", -1, false},
	}
	for _, tt := range tests {
		got, ok := MatchChord(tt.target, candidates)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MatchChord(%q) = %d, %v; want %d, %v", tt.target, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMatchChords(t *testing.T) {
	candidates := []string{"C", "Am", "C major", "C/E", "C "}
	if got := MatchChords("C", candidates); !equalInts(got, []int{0, 2, 4}) {
		t.Errorf("MatchChords(C) = %v, want [0 2 4]", got)
	}
	if got := MatchChords("C/E", candidates); !equalInts(got, []int{3}) {
		t.Errorf("MatchChords(C/E) = %v, want [3]", got)
	}
	if got := MatchChords("A minor/C", candidates); !equalInts(got, []int{1}) {
		t.Errorf("MatchChords(A minor/C) = %v, want [1]", got)
	}
	if got := MatchChords("G", candidates); len(got) != 0 {
		t.Errorf("MatchChords(G) = %v, want none", got)
	}
}

func TestChordTonic(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"D minor", 62, true},
		{"Bbmaj7", 70, true},
		{"G/B", 67, true},
		{"", 0, false},
		{"minor", 0, false},
	}
	for _, tt := range tests {
		got, ok := ChordTonic(tt.name)
		if ok != tt.ok || (ok && got.Pitch != tt.want) {
			t.Errorf("ChordTonic(%q) = %d, %v; want %d, %v", tt.name, got.Pitch, ok, tt.want, tt.ok)
		}
	}
}

// --- NotePicker ---

func pitches(ns []Note) []int {
	out := make([]int, len(ns))
	for i, n := range ns {
		out[i] = n.Pitch
		if n.Atonal {
			out[i] = -1
		}
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPickTriad(t *testing.T) {
	p := NewNotePicker(NoteRange{}, ParseList("C4, E4, G4"), ParseList("C4, E4, G4"), false)
	if err := p.Pick(); err != nil {
		t.Fatal(err)
	}
	if got := pitches(p.PickedNotes()); !equalInts(got, []int{60, 64, 67}) {
		t.Errorf("picked %v, want [60 64 67]", got)
	}
	if got := p.TargetRange().String(); got != "C4-G4" {
		t.Errorf("TargetRange = %s, want C4-G4", got)
	}
}

func TestPickSnapsToNearestChordTone(t *testing.T) {
	p := NewNotePicker(NoteRange{}, ParseList("C5, E5, G5"), ParseList("D4"), false)
	if err := p.Pick(); err != nil {
		t.Fatal(err)
	}
	if got := pitches(p.PickedNotes()); !equalInts(got, []int{60}) {
		t.Errorf("picked %v, want [60]", got)
	}
}

func TestPickStaysInTargetRange(t *testing.T) {
	target := RangeOf(Note{Pitch: 36}, Note{Pitch: 48})
	p := NewNotePicker(target, ParseList("C4, E4, G4"), ParseList("E5"), false)
	if err := p.Pick(); err != nil {
		t.Fatal(err)
	}
	if got := pitches(p.PickedNotes()); !equalInts(got, []int{40}) {
		t.Errorf("picked %v, want [40] (E2)", got)
	}
}

func TestPickAtonalPassesThrough(t *testing.T) {
	p := NewNotePicker(NoteRange{}, ParseList("C4"), []Note{Atonal()}, false)
	if err := p.Pick(); err != nil {
		t.Fatal(err)
	}
	got := p.PickedNotes()
	if len(got) != 1 || !got[0].Atonal {
		t.Errorf("picked %v, want [X]", got)
	}
	if !p.TargetRange().IsEmpty() {
		t.Error("atonal pick should not widen the range")
	}
}

func TestPickSeeksInversions(t *testing.T) {
	target := RangeOf(Note{Pitch: 48}, Note{Pitch: 72})
	events := ParseList("G4, E4")

	plain := NewNotePicker(target, ParseList("C4, E4, G4"), events, false)
	if err := plain.Pick(); err != nil {
		t.Fatal(err)
	}
	if got := pitches(plain.PickedNotes()); !equalInts(got, []int{55, 64}) {
		t.Errorf("plain picked %v, want [55 64]", got)
	}

	inverted := NewNotePicker(target, ParseList("C4, E4, G4"), events, true)
	if err := inverted.Pick(); err != nil {
		t.Fatal(err)
	}
	if got := pitches(inverted.PickedNotes()); !equalInts(got, []int{55, 52}) {
		t.Errorf("inverted picked %v, want [55 52]", got)
	}
}

func TestPickOnlyOnce(t *testing.T) {
	p := NewNotePicker(NoteRange{}, nil, ParseList("C4"), false)
	if err := p.Pick(); err != nil {
		t.Fatal(err)
	}
	if err := p.Pick(); !errors.Is(err, ErrAlreadyPicked) {
		t.Errorf("second Pick = %v, want ErrAlreadyPicked", err)
	}
	if got := pitches(p.PickedNotes()); !equalInts(got, []int{60}) {
		t.Errorf("without voicing the event note should stand, got %v", got)
	}
}
