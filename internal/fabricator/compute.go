package fabricator

import (
	"fmt"
	"slices"

	"github.com/satindergrewal/chaincraft/internal/isometry"
	"github.com/satindergrewal/chaincraft/internal/model"
	"github.com/satindergrewal/chaincraft/internal/notes"
	"github.com/satindergrewal/chaincraft/internal/timing"
)

// MemeIsometryOfSegment collects the program memes and bound sequence memes
// of every current choice.
func (f *Fabricator) MemeIsometryOfSegment() isometry.MemeIsometry {
	iso := isometry.NewMemeIsometry(nil)
	for _, c := range f.choices {
		if c.ProgramID != "" {
			iso.Add(f.lib.ProgramMemes(c.ProgramID)...)
		}
		if c.ProgramSequenceBindingID != "" {
			iso.Add(f.lib.BindingMemes(c.ProgramSequenceBindingID)...)
		}
	}
	return iso
}

// ChordAt returns the chord sounding at a beat position: the one with the
// greatest position not after it, or the earliest chord when the position
// precedes them all.
func (f *Fabricator) ChordAt(position float64) (model.SegmentChord, bool) {
	if len(f.chords) == 0 {
		return model.SegmentChord{}, false
	}
	var found bool
	var best, earliest model.SegmentChord
	for i, c := range f.chords {
		if i == 0 || c.Position < earliest.Position {
			earliest = c
		}
		if c.Position <= position && (!found || c.Position > best.Position) {
			best, found = c, true
		}
	}
	if !found {
		return earliest, true
	}
	return best, true
}

// SecondsAtPosition converts a beat position of this segment to seconds from
// its start. The tempo ramps from the previous segment's tempo to this one's.
func (f *Fabricator) SecondsAtPosition(position float64) (float64, error) {
	if f.tc == nil {
		if f.segment.Total <= 0 || f.segment.Tempo <= 0 {
			return 0, fmt.Errorf("%w: segment %d has total %d and tempo %v", ErrMalformedInput, f.segment.Offset, f.segment.Total, f.segment.Tempo)
		}
		start := f.segment.Tempo
		if prev, ok := f.retro.Previous(); ok && prev.Segment.Tempo > 0 {
			start = prev.Segment.Tempo
		}
		tc, err := timing.NewTimeComputer(float64(f.segment.Total), start, f.segment.Tempo)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		f.tc = tc
	}
	return f.tc.SecondsAtPosition(position), nil
}

// DistinctChordVoicingTypes lists the instrument types that have voicings.
func (f *Fabricator) DistinctChordVoicingTypes() []model.InstrumentType {
	var out []model.InstrumentType
	for _, v := range f.voicings {
		if !slices.Contains(out, v.Type) {
			out = append(out, v.Type)
		}
	}
	slices.Sort(out)
	return out
}

// ProgramRange spans the tonal notes of every event of every pattern of the
// program's voices of one instrument type.
func (f *Fabricator) ProgramRange(programID string, t model.InstrumentType) (notes.NoteRange, error) {
	if _, err := f.lib.Program(programID); err != nil {
		return notes.NoteRange{}, fmt.Errorf("%w: %w", ErrContentNotFound, err)
	}
	var r notes.NoteRange
	for _, v := range f.lib.Voices(programID) {
		if v.Type != t {
			continue
		}
		for _, p := range f.lib.Patterns(v.ID, "") {
			for _, e := range f.lib.Events(p.ID) {
				for _, n := range notes.ParseList(e.Tones) {
					r.Expand(n)
				}
			}
		}
	}
	return r, nil
}

// SequenceBindingOffsetForChoice returns the offset of the binding a choice
// is bound to.
func (f *Fabricator) SequenceBindingOffsetForChoice(c model.SegmentChoice) (int, error) {
	if c.ProgramSequenceBindingID == "" {
		return 0, fmt.Errorf("%w: choice %s has no sequence binding", ErrMalformedInput, c.ID)
	}
	b, err := f.lib.Binding(c.ProgramSequenceBindingID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrContentNotFound, err)
	}
	return b.Offset, nil
}

// MainProgramLengthBeats is the length of the chosen main program played
// through once: the first bound sequence at each offset, summed.
func (f *Fabricator) MainProgramLengthBeats() (int, error) {
	main, ok := f.Choice(model.ProgramMain)
	if !ok {
		return 0, fmt.Errorf("%w: no main choice yet", ErrMalformedInput)
	}
	total := 0
	for _, offset := range f.lib.BindingOffsets(main.ProgramID) {
		b := f.lib.BindingsAt(main.ProgramID, offset)[0]
		seq, err := f.lib.Sequence(b.ProgramSequenceID)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrContentNotFound, err)
		}
		total += seq.Total
	}
	return total, nil
}
