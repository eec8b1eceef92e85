// Package craft turns a fabricator's segment into choices, arrangements and
// picks. Stages run in a fixed order: macro/main, detail, percussion loops.
package craft

import (
	"cmp"
	"fmt"
	"log"
	"math"
	"slices"

	"github.com/satindergrewal/chaincraft/internal/audio"
	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/isometry"
	"github.com/satindergrewal/chaincraft/internal/model"
	"github.com/satindergrewal/chaincraft/internal/notes"
)

// Window is the activation window of a layer, in beats since the main
// program began. Either side may be model.DeltaUnlimited.
type Window struct {
	In  int
	Out int
}

// Unlimited is a window open on both sides.
var Unlimited = Window{In: model.DeltaUnlimited, Out: model.DeltaUnlimited}

// WindowOf reads the window of a choice.
func WindowOf(c model.SegmentChoice) Window {
	return Window{In: c.DeltaIn, Out: c.DeltaOut}
}

// InBounds reports whether delta lies in [deltaIn, deltaOut], an unlimited
// deltaIn meaning minus infinity and an unlimited deltaOut plus infinity.
func InBounds(deltaIn, deltaOut, delta int) bool {
	if deltaIn != model.DeltaUnlimited && delta < deltaIn {
		return false
	}
	if deltaOut != model.DeltaUnlimited && delta > deltaOut {
		return false
	}
	return true
}

// PriorWindows indexes the windows of earlier choices that pass the filter,
// keyed by the layer each belongs to.
func PriorWindows(prior []model.SegmentChoice, keep func(model.SegmentChoice) bool, layerOf func(model.SegmentChoice) string) map[string]Window {
	out := map[string]Window{}
	for _, c := range prior {
		if keep(c) {
			out[layerOf(c)] = WindowOf(c)
		}
	}
	return out
}

// PrecomputeDeltas assigns a window to every layer. A layer with a prior
// window keeps it. Of the rest, the first ceil(density*n) layers are open on
// both sides; the others stagger in across the opening ramp and out across
// the closing ramp of the arc, so that all of them share the central
// plateau. With arc <= 0 every layer is unlimited.
func PrecomputeDeltas(layers []string, prior map[string]Window, arc int, plateauRatio, density float64) map[string]Window {
	out := make(map[string]Window, len(layers))
	if len(layers) == 0 {
		return out
	}
	n := len(layers)
	incoming := min(max(int(math.Ceil(density*float64(n))), 1), n)
	staggered := n - incoming
	ramp := float64(arc) * (1 - min(max(plateauRatio, 0), 1)) / 2

	for i, layer := range layers {
		if w, ok := prior[layer]; ok {
			out[layer] = w
			continue
		}
		if arc <= 0 || i < incoming {
			out[layer] = Unlimited
			continue
		}
		f := float64(i-incoming+1) / float64(staggered+1)
		out[layer] = Window{
			In:  int(math.Round(ramp * f)),
			Out: int(math.Round(float64(arc) - ramp*f)),
		}
	}
	return out
}

// --- Classification relative to a segment ---

// IsUnlimitedIn reports whether the choice has no entry bound.
func IsUnlimitedIn(c model.SegmentChoice) bool { return c.DeltaIn == model.DeltaUnlimited }

// IsUnlimitedOut reports whether the choice has no exit bound.
func IsUnlimitedOut(c model.SegmentChoice) bool { return c.DeltaOut == model.DeltaUnlimited }

func segmentEnd(seg model.Segment) int { return seg.Delta + seg.Total }

// IsIntroSegment reports whether the choice engages partway through the
// segment and stays active through its end.
func IsIntroSegment(c model.SegmentChoice, seg model.Segment) bool {
	return !IsUnlimitedIn(c) && c.DeltaIn > seg.Delta && c.DeltaIn < segmentEnd(seg) &&
		(IsUnlimitedOut(c) || c.DeltaOut >= segmentEnd(seg))
}

// IsOutroSegment reports whether the choice is active from the start of the
// segment and disengages before its end.
func IsOutroSegment(c model.SegmentChoice, seg model.Segment) bool {
	return (IsUnlimitedIn(c) || c.DeltaIn <= seg.Delta) &&
		!IsUnlimitedOut(c) && c.DeltaOut > seg.Delta && c.DeltaOut < segmentEnd(seg)
}

// IsSilentEntireSegment reports whether the window excludes the whole segment.
func IsSilentEntireSegment(c model.SegmentChoice, seg model.Segment) bool {
	return (!IsUnlimitedIn(c) && c.DeltaIn >= segmentEnd(seg)) ||
		(!IsUnlimitedOut(c) && c.DeltaOut <= seg.Delta)
}

// IsActiveEntireSegment reports whether the window covers the whole segment.
func IsActiveEntireSegment(c model.SegmentChoice, seg model.Segment) bool {
	return (IsUnlimitedIn(c) || c.DeltaIn <= seg.Delta) &&
		(IsUnlimitedOut(c) || c.DeltaOut >= segmentEnd(seg))
}

// envelopeOf maps a choice window onto segment beats for amplitude shaping.
func envelopeOf(c model.SegmentChoice, seg model.Segment, fade float64) audio.Envelope {
	return audio.Envelope{
		Start:    float64(c.DeltaIn - seg.Delta),
		End:      float64(c.DeltaOut - seg.Delta),
		HasStart: !IsUnlimitedIn(c),
		HasEnd:   !IsUnlimitedOut(c),
		Fade:     fade,
	}
}

// --- Shared arrangement ---

// arranger realizes choices into picks on one fabricator.
type arranger struct {
	fab *fabricator.Fabricator
}

// playing reports whether a choice sounds at a beat position of the segment.
func (a arranger) playing(c model.SegmentChoice, position float64) bool {
	seg := a.fab.Segment()
	return InBounds(c.DeltaIn, c.DeltaOut, seg.Delta+int(math.Floor(position)))
}

// pick places one audio between two beat positions of the segment.
func (a arranger) pick(arrangementID string, c model.SegmentChoice, au model.InstrumentAudio, eventID, event, tones string, from, to, velocity float64) error {
	seg := a.fab.Segment()
	to = min(to, float64(seg.Total))
	start, err := a.fab.SecondsAtPosition(from)
	if err != nil {
		return err
	}
	end, err := a.fab.SecondsAtPosition(to)
	if err != nil {
		return err
	}
	inst, err := a.fab.Library().Instrument(c.InstrumentID)
	if err != nil {
		return fmt.Errorf("%w: %w", fabricator.ErrContentNotFound, err)
	}
	gain := envelopeOf(c, seg, a.fab.Config().IntroFadeBeats).Gain(from)
	_, err = a.fab.PutPick(model.SegmentChoiceArrangementPick{
		SegmentChoiceArrangementID:    arrangementID,
		InstrumentAudioID:             au.ID,
		ProgramSequencePatternEventID: eventID,
		Event:                         event,
		StartSeconds:                  start,
		LengthSeconds:                 max(end-start, 0),
		Amplitude:                     audio.Amplitude(velocity*gain, inst.Volume, au.Volume),
		Tones:                         tones,
	})
	return err
}

// arrangeEvents loops a pattern of the choice's voice across the segment.
func (a arranger) arrangeEvents(c model.SegmentChoice) error {
	lib := a.fab.Library()
	seg := a.fab.Segment()
	if IsSilentEntireSegment(c, seg) {
		return nil
	}
	voice, err := lib.Voice(c.ProgramVoiceID)
	if err != nil {
		return fmt.Errorf("%w: %w", fabricator.ErrContentNotFound, err)
	}
	pattern, ok := a.choosePattern(voice.ID, seg.Total)
	if !ok {
		log.Printf("No pattern for voice %q in segment %d", voice.Name, seg.Offset)
		return nil
	}
	arr, err := a.fab.PutArrangement(model.SegmentChoiceArrangement{SegmentChoiceID: c.ID})
	if err != nil {
		return err
	}

	target, err := a.fab.ProgramRange(c.ProgramID, voice.Type)
	if err != nil {
		return err
	}
	seek := a.fab.Config().SeeksInversions(voice.Type)
	used := a.previousAudios(c.ProgramVoiceID)
	events := lib.Events(pattern.ID)
	for start := 0.0; start < float64(seg.Total); start += float64(pattern.Total) {
		for _, e := range events {
			pos := start + e.Position
			if pos >= float64(seg.Total) || !a.playing(c, pos) {
				continue
			}
			eventNotes := notes.ParseList(e.Tones)
			if len(eventNotes) == 0 {
				continue
			}
			if voice.Type.IsPercussive() || eventNotes[0].Atonal {
				if err := a.pickAtonal(arr.ID, c, e, pos); err != nil {
					return err
				}
				continue
			}
			var voicing []notes.Note
			if chord, ok := a.fab.ChordAt(pos); ok {
				if v, ok := a.fab.Voicing(chord.ID, voice.Type); ok {
					voicing = notes.ParseList(v.Notes)
				}
			}
			picker := notes.NewNotePicker(target, voicing, eventNotes, seek)
			if err := picker.Pick(); err != nil {
				return err
			}
			target = picker.TargetRange()
			for _, n := range picker.PickedNotes() {
				au, ok := a.audioForNote(c.InstrumentID, n, used)
				if !ok {
					continue
				}
				if err := a.pick(arr.ID, c, au, e.ID, e.Tones, n.String(), pos, pos+e.Duration, e.Velocity); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// choosePattern prefers the longest pattern that fits the segment. Ties go
// to the pattern the voice played in the segment this one continues, else
// to the segment's random source. Without one that fits, the shortest
// pattern is used.
func (a arranger) choosePattern(voiceID string, total int) (model.ProgramSequencePattern, bool) {
	patterns := a.fab.Library().Patterns(voiceID, "")
	if len(patterns) == 0 {
		return model.ProgramSequencePattern{}, false
	}
	var best []model.ProgramSequencePattern
	for _, p := range patterns {
		switch {
		case p.Total > total:
		case len(best) == 0 || p.Total > best[0].Total:
			best = []model.ProgramSequencePattern{p}
		case p.Total == best[0].Total:
			best = append(best, p)
		}
	}
	if len(best) == 0 {
		shortest := patterns[0]
		for _, p := range patterns[1:] {
			if p.Total < shortest.Total {
				shortest = p
			}
		}
		return shortest, true
	}
	if len(best) > 1 {
		if id, ok := a.previousPattern(voiceID); ok {
			for _, p := range best {
				if p.ID == id {
					return p, true
				}
			}
		}
	}
	return best[a.fab.Rand().IntN(len(best))], true
}

// previousPattern is the pattern the voice played in the previous segment,
// when this segment continues it.
func (a arranger) previousPattern(voiceID string) (string, bool) {
	if a.fab.Segment().Type != model.SegmentContinue {
		return "", false
	}
	lib := a.fab.Library()
	retro := a.fab.Retrospective()
	for _, c := range retro.PreviousChoices(func(c model.SegmentChoice) bool { return c.ProgramVoiceID == voiceID }) {
		for _, p := range retro.PreviousPicks(c.ID) {
			if e, err := lib.Event(p.ProgramSequencePatternEventID); err == nil {
				return e.ProgramSequencePatternID, true
			}
		}
	}
	return "", false
}

// audioForNote finds the instrument audio pitched nearest the note. Among
// equally near audios it avoids those in used.
func (a arranger) audioForNote(instrumentID string, n notes.Note, used map[string]bool) (model.InstrumentAudio, bool) {
	var nearest []model.InstrumentAudio
	bestDist := math.MaxInt
	for _, au := range a.fab.Library().Audios(instrumentID) {
		tones := notes.ParseList(au.Tones)
		if len(tones) == 0 || tones[0].Atonal {
			continue
		}
		d := tones[0].Pitch - n.Pitch
		if d < 0 {
			d = -d
		}
		switch {
		case d < bestDist:
			nearest, bestDist = []model.InstrumentAudio{au}, d
		case d == bestDist:
			nearest = append(nearest, au)
		}
	}
	if len(nearest) == 0 {
		return model.InstrumentAudio{}, false
	}
	return fresh(nearest, used), true
}

// previousAudios is the set of audio ids the previous segment played on the
// same voice. A Continue segment keeps its sound, so it avoids nothing.
func (a arranger) previousAudios(voiceID string) map[string]bool {
	if voiceID == "" || a.fab.Segment().Type == model.SegmentContinue {
		return nil
	}
	retro := a.fab.Retrospective()
	used := map[string]bool{}
	for _, c := range retro.PreviousChoices(func(c model.SegmentChoice) bool { return c.ProgramVoiceID == voiceID }) {
		for _, p := range retro.PreviousPicks(c.ID) {
			used[p.InstrumentAudioID] = true
		}
	}
	return used
}

// fresh returns the first candidate not in used, or the first candidate when
// every one was used.
func fresh(candidates []model.InstrumentAudio, used map[string]bool) model.InstrumentAudio {
	for _, au := range candidates {
		if !used[au.ID] {
			return au
		}
	}
	return candidates[0]
}

// pickAtonal sounds a percussive event with the audio whose event name is
// phonetically closest to the event's track. Ties fall to the event's
// sticky bun so the same hit repeats the same sample.
func (a arranger) pickAtonal(arrangementID string, c model.SegmentChoice, e model.ProgramSequencePatternEvent, pos float64) error {
	lib := a.fab.Library()
	track, err := lib.Track(e.ProgramVoiceTrackID)
	if err != nil {
		return fmt.Errorf("%w: %w", fabricator.ErrContentNotFound, err)
	}
	iso := isometry.NewNameIsometry([]string{track.Name})
	var ties []model.InstrumentAudio
	bestScore, bestSim := -1.0, -1.0
	for _, au := range lib.Audios(c.InstrumentID) {
		score := iso.Score([]string{au.Event})
		sim := iso.Similarity(au.Event)
		switch {
		case score > bestScore || (score == bestScore && sim > bestSim):
			ties = []model.InstrumentAudio{au}
			bestScore, bestSim = score, sim
		case score == bestScore && sim == bestSim:
			ties = append(ties, au)
		}
	}
	if len(ties) == 0 {
		return nil
	}
	bun := a.fab.StickyBun(e.ID)
	au := ties[bun.Seed(0)%len(ties)]
	return a.pick(arrangementID, c, au, e.ID, track.Name, notes.AtonalName, pos, pos+e.Duration, e.Velocity)
}

// arrangeChords sounds one audio per segment chord, matched by chord name.
// Among audios matching a chord equally well it avoids those the voice
// played in the previous segment.
func (a arranger) arrangeChords(c model.SegmentChoice) error {
	seg := a.fab.Segment()
	if IsSilentEntireSegment(c, seg) {
		return nil
	}
	audios := a.fab.Library().Audios(c.InstrumentID)
	names := make([]string, len(audios))
	for i, au := range audios {
		names[i] = au.Chord
	}
	arr, err := a.fab.PutArrangement(model.SegmentChoiceArrangement{SegmentChoiceID: c.ID})
	if err != nil {
		return err
	}
	used := a.previousAudios(c.ProgramVoiceID)
	chords := sortedChords(a.fab.Chords())
	for i, chord := range chords {
		if !a.playing(c, chord.Position) {
			continue
		}
		matches := notes.MatchChords(chord.Name, names)
		if len(matches) == 0 {
			log.Printf("No audio for chord %q on instrument %s", chord.Name, c.InstrumentID)
			continue
		}
		candidates := make([]model.InstrumentAudio, len(matches))
		for j, idx := range matches {
			candidates[j] = audios[idx]
		}
		end := float64(seg.Total)
		if i+1 < len(chords) {
			end = chords[i+1].Position
		}
		if err := a.pick(arr.ID, c, fresh(candidates, used), "", chord.Name, chord.Name, chord.Position, end, 1); err != nil {
			return err
		}
	}
	return nil
}

// arrangeLoop lays a loop audio end to end from beat 0.
func (a arranger) arrangeLoop(c model.SegmentChoice, au model.InstrumentAudio) error {
	seg := a.fab.Segment()
	if au.TotalBeats <= 0 {
		return fmt.Errorf("%w: loop audio %s has no length", fabricator.ErrMalformedInput, au.ID)
	}
	if IsSilentEntireSegment(c, seg) {
		return nil
	}
	arr, err := a.fab.PutArrangement(model.SegmentChoiceArrangement{SegmentChoiceID: c.ID})
	if err != nil {
		return err
	}
	for pos := 0.0; pos < float64(seg.Total); pos += au.TotalBeats {
		if !a.playing(c, pos) {
			continue
		}
		if err := a.pick(arr.ID, c, au, "", au.Event, notes.AtonalName, pos, pos+au.TotalBeats, 1); err != nil {
			return err
		}
	}
	return nil
}

// chooseInstrument scores the published instruments of a type against the
// segment memes, highest first, ties by id. Instruments whose memes the
// segment negates are skipped.
func chooseInstrument(fab *fabricator.Fabricator, t model.InstrumentType, modes ...model.InstrumentMode) (model.Instrument, bool) {
	ranked := rankInstruments(fab, t, modes...)
	if len(ranked) == 0 {
		return model.Instrument{}, false
	}
	return ranked[0], true
}

func rankInstruments(fab *fabricator.Fabricator, t model.InstrumentType, modes ...model.InstrumentMode) []model.Instrument {
	lib := fab.Library()
	iso := fab.MemeIsometryOfSegment()
	type scored struct {
		inst  model.Instrument
		score float64
	}
	var candidates []scored
	for _, inst := range lib.PublishedInstruments(t, "") {
		if len(modes) > 0 && !slices.Contains(modes, inst.Mode) {
			continue
		}
		memes := lib.InstrumentMemes(inst.ID)
		if !iso.IsAllowed(memes) {
			continue
		}
		candidates = append(candidates, scored{inst, iso.Score(memes)})
	}
	// Candidates arrive ordered by id; a stable sort keeps that for ties.
	slices.SortStableFunc(candidates, func(a, b scored) int { return cmp.Compare(b.score, a.score) })
	out := make([]model.Instrument, len(candidates))
	for i, c := range candidates {
		out[i] = c.inst
	}
	return out
}

func sortedChords(chords []model.SegmentChord) []model.SegmentChord {
	slices.SortStableFunc(chords, func(a, b model.SegmentChord) int { return cmp.Compare(a.Position, b.Position) })
	return chords
}
