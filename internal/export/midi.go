// Package export renders crafted segments as Standard MIDI Files.
//
// The file runs at 60 BPM so one beat equals one second and pick times map
// straight onto ticks. Each instrument type gets its own track; percussive
// types play on the General MIDI drum channel.
package export

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/satindergrewal/chaincraft/internal/isometry"
	"github.com/satindergrewal/chaincraft/internal/model"
	"github.com/satindergrewal/chaincraft/internal/notes"
)

const (
	ticksPerBeat = 960
	drumChannel  = 9 // channel 10 counted from one
	defaultDrum  = 37
)

// drumKeys maps percussion names to General MIDI drum keys.
var drumKeys = []struct {
	name string
	key  uint8
}{
	{"Kick", 36},
	{"Snare", 38},
	{"Clap", 39},
	{"Hat", 42},
	{"Tom", 45},
	{"Crash", 49},
	{"Ride", 51},
	{"Conga", 63},
	{"Shaker", 70},
}

type note struct {
	on, off uint32
	key     uint8
	vel     uint8
}

// WriteMIDI writes the segment's picks as a format 1 SMF.
func WriteMIDI(w io.Writer, craft model.SegmentCraft) error {
	tracks := map[model.InstrumentType][]note{}
	for _, p := range craft.Picks {
		c, ok := choiceOfPick(craft, p)
		if !ok || c.InstrumentType == "" {
			continue
		}
		on := ticks(p.StartSeconds)
		off := max(ticks(p.StartSeconds+p.LengthSeconds), on+1)
		vel := velocity(p.Amplitude)
		for _, key := range keysOf(craft, c, p) {
			tracks[c.InstrumentType] = append(tracks[c.InstrumentType], note{on: on, off: off, key: key, vel: vel})
		}
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerBeat)

	var tempo smf.Track
	seg := craft.Segment
	tempo.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("Segment %d %s %s", seg.Offset, seg.Type, seg.Key)))
	tempo.Add(0, smf.MetaTempo(60))
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("export: tempo track: %w", err)
	}

	types := make([]model.InstrumentType, 0, len(tracks))
	for t := range tracks {
		types = append(types, t)
	}
	slices.Sort(types)

	channel := uint8(0)
	for _, t := range types {
		ch := drumChannel
		if !t.IsPercussive() {
			if channel == drumChannel {
				channel++
			}
			ch = int(channel % 16)
			channel++
		}
		tr := buildTrack(string(t), uint8(ch), tracks[t])
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("export: %s track: %w", t, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

// WriteFile writes the segment to dir as segment-<offset>.mid and returns
// the path.
func WriteFile(dir string, craft model.SegmentCraft) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("segment-%06d.mid", craft.Segment.Offset))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	if err := WriteMIDI(f, craft); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func buildTrack(name string, ch uint8, ns []note) smf.Track {
	type event struct {
		tick uint32
		off  bool
		msg  midi.Message
	}
	var events []event
	for _, n := range ns {
		events = append(events,
			event{tick: n.on, msg: midi.NoteOn(ch, n.key, n.vel)},
			event{tick: n.off, off: true, msg: midi.NoteOff(ch, n.key)})
	}
	// Note-offs go first at a shared tick so a repeated key retriggers.
	slices.SortStableFunc(events, func(a, b event) int {
		if c := cmp.Compare(a.tick, b.tick); c != 0 {
			return c
		}
		switch {
		case a.off && !b.off:
			return -1
		case !a.off && b.off:
			return 1
		}
		return 0
	})

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(name))
	var last uint32
	for _, e := range events {
		tr.Add(e.tick-last, e.msg)
		last = e.tick
	}
	tr.Close(0)
	return tr
}

func choiceOfPick(craft model.SegmentCraft, p model.SegmentChoiceArrangementPick) (model.SegmentChoice, bool) {
	for _, a := range craft.Arrangements {
		if a.ID != p.SegmentChoiceArrangementID {
			continue
		}
		for _, c := range craft.Choices {
			if c.ID == a.SegmentChoiceID {
				return c, true
			}
		}
	}
	return model.SegmentChoice{}, false
}

// keysOf resolves the MIDI keys a pick sounds.
func keysOf(craft model.SegmentCraft, c model.SegmentChoice, p model.SegmentChoiceArrangementPick) []uint8 {
	if c.InstrumentType.IsPercussive() {
		return []uint8{DrumKey(p.Event)}
	}
	if c.InstrumentMode == model.ModeChord {
		return chordKeys(craft, c.InstrumentType, p.Tones)
	}
	var keys []uint8
	for _, n := range notes.ParseList(p.Tones) {
		if !n.Atonal {
			keys = append(keys, n.MIDI())
		}
	}
	return keys
}

// chordKeys voices a chord from the segment's voicing for the type, falling
// back to the chord root.
func chordKeys(craft model.SegmentCraft, t model.InstrumentType, name string) []uint8 {
	var fallback []uint8
	for _, ch := range craft.Chords {
		if ch.Name != name {
			continue
		}
		for _, v := range craft.Voicings {
			if v.SegmentChordID != ch.ID {
				continue
			}
			var keys []uint8
			for _, n := range notes.ParseList(v.Notes) {
				if !n.Atonal {
					keys = append(keys, n.MIDI())
				}
			}
			if v.Type == t && len(keys) > 0 {
				return keys
			}
			if fallback == nil {
				fallback = keys
			}
		}
	}
	if len(fallback) > 0 {
		return fallback
	}
	root, ok := notes.ChordTonic(name)
	if !ok {
		return nil
	}
	return []uint8{root.MIDI()}
}

// DrumKey maps a percussion event name to the General MIDI drum key whose
// name sounds most alike.
func DrumKey(event string) uint8 {
	key, best := uint8(defaultDrum), 0.0
	for _, d := range drumKeys {
		if sim := isometry.NewNameIsometry([]string{d.name}).Similarity(event); sim > best {
			key, best = d.key, sim
		}
	}
	return key
}

func ticks(seconds float64) uint32 {
	return uint32(math.Round(max(seconds, 0) * ticksPerBeat))
}

func velocity(amplitude float64) uint8 {
	return uint8(min(max(math.Round(amplitude*127), 1), 127))
}
