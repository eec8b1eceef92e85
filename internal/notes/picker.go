package notes

import (
	"errors"
	"math"
)

// ErrAlreadyPicked is returned by a second call to Pick.
var ErrAlreadyPicked = errors.New("note picker already used")

// NotePicker resolves the notes of one pattern event against the voicing of
// the chord sounding at that moment. The target range is sticky: every pick
// widens it, so later notes gravitate to where earlier ones landed.
//
// A NotePicker is single use.
type NotePicker struct {
	targetRange    NoteRange
	voicingClasses []int
	eventNotes     []Note
	seekInversions bool

	picked []Note
	used   bool
}

// NewNotePicker prepares a picker. A picked note is a voicing note moved by
// whole octaves: voicing notes contribute only their pitch classes, and the
// octave is decided by the event note and the target range.
func NewNotePicker(target NoteRange, voicing, events []Note, seekInversions bool) *NotePicker {
	p := &NotePicker{
		targetRange:    target,
		eventNotes:     events,
		seekInversions: seekInversions,
	}
	seen := map[int]bool{}
	for _, v := range voicing {
		if v.Atonal || seen[v.PitchClass()] {
			continue
		}
		seen[v.PitchClass()] = true
		p.voicingClasses = append(p.voicingClasses, v.PitchClass())
	}
	return p
}

// Pick resolves every event note. Atonal notes pass through; each tonal note
// is placed in the octave nearest the target range, then snapped to the
// closest voicing pitch class not yet used by this event.
func (p *NotePicker) Pick() error {
	if p.used {
		return ErrAlreadyPicked
	}
	p.used = true
	for _, e := range p.eventNotes {
		if e.Atonal {
			p.picked = append(p.picked, e)
			continue
		}
		n := p.pickOne(e)
		p.picked = append(p.picked, n)
		p.targetRange.Expand(n)
	}
	return nil
}

// PickedNotes returns the notes chosen by Pick, in event order.
func (p *NotePicker) PickedNotes() []Note {
	out := make([]Note, len(p.picked))
	copy(out, p.picked)
	return out
}

// TargetRange is the range after all picks so far.
func (p *NotePicker) TargetRange() NoteRange {
	return p.targetRange
}

type candidate struct {
	note       Note
	classDist  int
	span       int
	anchorDist int
	midDist    float64
}

func (c candidate) less(o candidate) bool {
	if c.classDist != o.classDist {
		return c.classDist < o.classDist
	}
	if c.span != o.span {
		return c.span < o.span
	}
	if c.anchorDist != o.anchorDist {
		return c.anchorDist < o.anchorDist
	}
	if c.midDist != o.midDist {
		return c.midDist < o.midDist
	}
	return c.note.Pitch < o.note.Pitch
}

func (p *NotePicker) pickOne(e Note) Note {
	anchor := p.anchor(e)
	classes := p.availableClasses()
	if len(classes) == 0 {
		return anchor
	}

	mid := float64(anchor.Pitch)
	if !p.targetRange.IsEmpty() {
		mid = p.targetRange.Midpoint()
	}

	var best candidate
	found := false
	for _, pc := range classes {
		for pitch := anchor.Pitch - 12; pitch <= anchor.Pitch+12; pitch++ {
			if ((pitch%12)+12)%12 != pc {
				continue
			}
			c := candidate{
				note:       Note{Pitch: pitch},
				classDist:  classDistance(pc, anchor.PitchClass()),
				anchorDist: abs(pitch - anchor.Pitch),
				midDist:    math.Abs(float64(pitch) - mid),
			}
			if p.seekInversions {
				c.span = p.spanWith(c.note)
			}
			if !found || c.less(best) {
				best, found = c, true
			}
		}
	}
	return best.note
}

// anchor places the event note in the octave nearest the target range,
// preferring the octave nearest the range midpoint when several fit.
func (p *NotePicker) anchor(e Note) Note {
	if p.targetRange.IsEmpty() {
		return e
	}
	mid := p.targetRange.Midpoint()
	best := e
	bestDist, bestMid := p.targetRange.Distance(e), math.Abs(float64(e.Pitch)-mid)
	for k := -10; k <= 10; k++ {
		n := e.Transpose(12 * k)
		if n.Pitch < 0 || n.Pitch > 127 {
			continue
		}
		d, m := p.targetRange.Distance(n), math.Abs(float64(n.Pitch)-mid)
		if d < bestDist || (d == bestDist && m < bestMid) {
			best, bestDist, bestMid = n, d, m
		}
	}
	return best
}

// availableClasses are the voicing classes not yet picked for this event,
// or all of them once every class has been used.
func (p *NotePicker) availableClasses() []int {
	used := map[int]bool{}
	for _, n := range p.picked {
		if !n.Atonal {
			used[n.PitchClass()] = true
		}
	}
	var out []int
	for _, pc := range p.voicingClasses {
		if !used[pc] {
			out = append(out, pc)
		}
	}
	if len(out) == 0 {
		return p.voicingClasses
	}
	return out
}

// spanWith is the width of the notes picked so far plus one more.
func (p *NotePicker) spanWith(n Note) int {
	r := RangeOf(p.picked...)
	r.Expand(n)
	return r.Span()
}
