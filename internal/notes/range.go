package notes

// NoteRange spans the lowest to highest tonal note seen so far. The zero
// value is empty.
type NoteRange struct {
	low, high Note
	set       bool
}

// RangeOf builds the range spanning the tonal notes given.
func RangeOf(ns ...Note) NoteRange {
	var r NoteRange
	for _, n := range ns {
		r.Expand(n)
	}
	return r
}

// Expand widens the range to include the note. Atonal notes are ignored.
func (r *NoteRange) Expand(n Note) {
	if n.Atonal {
		return
	}
	if !r.set {
		r.low, r.high, r.set = n, n, true
		return
	}
	if n.Pitch < r.low.Pitch {
		r.low = n
	}
	if n.Pitch > r.high.Pitch {
		r.high = n
	}
}

// IsEmpty reports whether no tonal note has been added.
func (r NoteRange) IsEmpty() bool {
	return !r.set
}

// Low is the lowest note; meaningless on an empty range.
func (r NoteRange) Low() Note {
	return r.low
}

// High is the highest note; meaningless on an empty range.
func (r NoteRange) High() Note {
	return r.high
}

// Includes reports whether the tonal note lies within the range.
func (r NoteRange) Includes(n Note) bool {
	return r.set && !n.Atonal && n.Pitch >= r.low.Pitch && n.Pitch <= r.high.Pitch
}

// Distance is the number of semitones from the note to the nearest edge of
// the range, 0 inside it. An empty range is at distance 0 from everything.
func (r NoteRange) Distance(n Note) int {
	switch {
	case !r.set || n.Atonal:
		return 0
	case n.Pitch < r.low.Pitch:
		return r.low.Pitch - n.Pitch
	case n.Pitch > r.high.Pitch:
		return n.Pitch - r.high.Pitch
	}
	return 0
}

// Midpoint is the pitch halfway between the edges.
func (r NoteRange) Midpoint() float64 {
	return float64(r.low.Pitch+r.high.Pitch) / 2
}

// Span is the width of the range in semitones.
func (r NoteRange) Span() int {
	if !r.set {
		return 0
	}
	return r.high.Pitch - r.low.Pitch
}

func (r NoteRange) String() string {
	if !r.set {
		return "(empty)"
	}
	return r.low.String() + "-" + r.high.String()
}
