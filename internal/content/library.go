// Package content holds the read-only library of programs and instruments
// that segments are fabricated from.
package content

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/satindergrewal/chaincraft/internal/model"
)

// ErrNotFound is returned by lookups of an id the library does not hold.
var ErrNotFound = errors.New("not in library")

// Content is the flat, serializable form of a library.
type Content struct {
	Programs                     []model.Program                     `yaml:"programs"`
	ProgramMemes                 []model.ProgramMeme                 `yaml:"programMemes"`
	ProgramSequences             []model.ProgramSequence             `yaml:"programSequences"`
	ProgramSequenceBindings      []model.ProgramSequenceBinding      `yaml:"programSequenceBindings"`
	ProgramSequenceBindingMemes  []model.ProgramSequenceBindingMeme  `yaml:"programSequenceBindingMemes"`
	ProgramSequenceChords        []model.ProgramSequenceChord        `yaml:"programSequenceChords"`
	ProgramSequenceChordVoicings []model.ProgramSequenceChordVoicing `yaml:"programSequenceChordVoicings"`
	ProgramVoices                []model.ProgramVoice                `yaml:"programVoices"`
	ProgramVoiceTracks           []model.ProgramVoiceTrack           `yaml:"programVoiceTracks"`
	ProgramSequencePatterns      []model.ProgramSequencePattern      `yaml:"programSequencePatterns"`
	ProgramSequencePatternEvents []model.ProgramSequencePatternEvent `yaml:"programSequencePatternEvents"`
	Instruments                  []model.Instrument                  `yaml:"instruments"`
	InstrumentMemes              []model.InstrumentMeme              `yaml:"instrumentMemes"`
	InstrumentAudios             []model.InstrumentAudio             `yaml:"instrumentAudios"`
}

// Library indexes Content by id, type and parent id. It is immutable once
// built and safe for concurrent readers.
type Library struct {
	programs    map[string]model.Program
	sequences   map[string]model.ProgramSequence
	bindings    map[string]model.ProgramSequenceBinding
	chords      map[string]model.ProgramSequenceChord
	voices      map[string]model.ProgramVoice
	tracks      map[string]model.ProgramVoiceTrack
	patterns    map[string]model.ProgramSequencePattern
	events      map[string]model.ProgramSequencePatternEvent
	instruments map[string]model.Instrument
	audios      map[string]model.InstrumentAudio

	programsByType    map[model.ProgramType][]model.Program
	programMemes      map[string][]model.ProgramMeme
	sequencesBy       map[string][]model.ProgramSequence
	bindingsBy        map[string][]model.ProgramSequenceBinding
	bindingMemes      map[string][]model.ProgramSequenceBindingMeme
	chordsBy          map[string][]model.ProgramSequenceChord
	voicingsBy        map[string][]model.ProgramSequenceChordVoicing
	voicesBy          map[string][]model.ProgramVoice
	tracksBy          map[string][]model.ProgramVoiceTrack
	patternsBy        map[string][]model.ProgramSequencePattern
	eventsBy          map[string][]model.ProgramSequencePatternEvent
	instrumentsByType map[model.InstrumentType][]model.Instrument
	instrumentMemes   map[string][]model.InstrumentMeme
	audiosBy          map[string][]model.InstrumentAudio
}

// Load reads a YAML (or JSON) content file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content and builds a Library from it.
func Parse(data []byte) (*Library, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return New(c)
}

// New indexes the content, rejecting duplicate ids, unknown enum values and
// references to missing parents.
func New(c Content) (*Library, error) {
	lib := &Library{}
	var err error

	if lib.programs, err = index(c.Programs, "program", func(p model.Program) string { return p.ID }); err != nil {
		return nil, err
	}
	if lib.sequences, err = index(c.ProgramSequences, "sequence", func(s model.ProgramSequence) string { return s.ID }); err != nil {
		return nil, err
	}
	if lib.bindings, err = index(c.ProgramSequenceBindings, "binding", func(b model.ProgramSequenceBinding) string { return b.ID }); err != nil {
		return nil, err
	}
	if lib.chords, err = index(c.ProgramSequenceChords, "chord", func(ch model.ProgramSequenceChord) string { return ch.ID }); err != nil {
		return nil, err
	}
	if lib.voices, err = index(c.ProgramVoices, "voice", func(v model.ProgramVoice) string { return v.ID }); err != nil {
		return nil, err
	}
	if lib.tracks, err = index(c.ProgramVoiceTracks, "track", func(t model.ProgramVoiceTrack) string { return t.ID }); err != nil {
		return nil, err
	}
	if lib.patterns, err = index(c.ProgramSequencePatterns, "pattern", func(p model.ProgramSequencePattern) string { return p.ID }); err != nil {
		return nil, err
	}
	if lib.events, err = index(c.ProgramSequencePatternEvents, "event", func(e model.ProgramSequencePatternEvent) string { return e.ID }); err != nil {
		return nil, err
	}
	if lib.instruments, err = index(c.Instruments, "instrument", func(i model.Instrument) string { return i.ID }); err != nil {
		return nil, err
	}
	if lib.audios, err = index(c.InstrumentAudios, "audio", func(a model.InstrumentAudio) string { return a.ID }); err != nil {
		return nil, err
	}

	if err := lib.validate(c); err != nil {
		return nil, err
	}

	lib.programsByType = group(c.Programs, func(p model.Program) model.ProgramType { return p.Type })
	lib.programMemes = group(c.ProgramMemes, func(m model.ProgramMeme) string { return m.ProgramID })
	lib.sequencesBy = group(c.ProgramSequences, func(s model.ProgramSequence) string { return s.ProgramID })
	lib.bindingsBy = group(c.ProgramSequenceBindings, func(b model.ProgramSequenceBinding) string { return b.ProgramID })
	lib.bindingMemes = group(c.ProgramSequenceBindingMemes, func(m model.ProgramSequenceBindingMeme) string { return m.ProgramSequenceBindingID })
	lib.chordsBy = group(c.ProgramSequenceChords, func(ch model.ProgramSequenceChord) string { return ch.ProgramSequenceID })
	lib.voicingsBy = group(c.ProgramSequenceChordVoicings, func(v model.ProgramSequenceChordVoicing) string { return v.ProgramSequenceChordID })
	lib.voicesBy = group(c.ProgramVoices, func(v model.ProgramVoice) string { return v.ProgramID })
	lib.tracksBy = group(c.ProgramVoiceTracks, func(t model.ProgramVoiceTrack) string { return t.ProgramVoiceID })
	lib.patternsBy = group(c.ProgramSequencePatterns, func(p model.ProgramSequencePattern) string { return p.ProgramVoiceID })
	lib.eventsBy = group(c.ProgramSequencePatternEvents, func(e model.ProgramSequencePatternEvent) string { return e.ProgramSequencePatternID })
	lib.instrumentsByType = group(c.Instruments, func(i model.Instrument) model.InstrumentType { return i.Type })
	lib.instrumentMemes = group(c.InstrumentMemes, func(m model.InstrumentMeme) string { return m.InstrumentID })
	lib.audiosBy = group(c.InstrumentAudios, func(a model.InstrumentAudio) string { return a.InstrumentID })

	for _, ps := range lib.programsByType {
		slices.SortFunc(ps, func(a, b model.Program) int { return cmp.Compare(a.ID, b.ID) })
	}
	for _, bs := range lib.bindingsBy {
		slices.SortFunc(bs, func(a, b model.ProgramSequenceBinding) int {
			return cmp.Or(cmp.Compare(a.Offset, b.Offset), cmp.Compare(a.ID, b.ID))
		})
	}
	for _, cs := range lib.chordsBy {
		slices.SortFunc(cs, func(a, b model.ProgramSequenceChord) int {
			return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
		})
	}
	for _, vs := range lib.voicesBy {
		slices.SortFunc(vs, func(a, b model.ProgramVoice) int {
			return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
		})
	}
	for _, ts := range lib.tracksBy {
		slices.SortFunc(ts, func(a, b model.ProgramVoiceTrack) int {
			return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
		})
	}
	for _, ps := range lib.patternsBy {
		slices.SortFunc(ps, func(a, b model.ProgramSequencePattern) int { return cmp.Compare(a.ID, b.ID) })
	}
	for _, es := range lib.eventsBy {
		slices.SortFunc(es, func(a, b model.ProgramSequencePatternEvent) int {
			return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
		})
	}
	for _, is := range lib.instrumentsByType {
		slices.SortFunc(is, func(a, b model.Instrument) int { return cmp.Compare(a.ID, b.ID) })
	}
	for _, as := range lib.audiosBy {
		slices.SortFunc(as, func(a, b model.InstrumentAudio) int { return cmp.Compare(a.ID, b.ID) })
	}
	return lib, nil
}

func (lib *Library) validate(c Content) error {
	for _, p := range c.Programs {
		if err := model.ValidateProgramType(p.Type); err != nil {
			return fmt.Errorf("program %s: %w", p.ID, err)
		}
	}
	for _, m := range c.ProgramMemes {
		if err := lib.needProgram("program meme", m.ID, m.ProgramID); err != nil {
			return err
		}
	}
	for _, s := range c.ProgramSequences {
		if err := lib.needProgram("sequence", s.ID, s.ProgramID); err != nil {
			return err
		}
		if s.Total <= 0 {
			return fmt.Errorf("sequence %s: total must be positive, got %d", s.ID, s.Total)
		}
	}
	for _, b := range c.ProgramSequenceBindings {
		if err := lib.needProgram("binding", b.ID, b.ProgramID); err != nil {
			return err
		}
		seq, ok := lib.sequences[b.ProgramSequenceID]
		if !ok || seq.ProgramID != b.ProgramID {
			return fmt.Errorf("binding %s: sequence %q not in program %s", b.ID, b.ProgramSequenceID, b.ProgramID)
		}
	}
	for _, m := range c.ProgramSequenceBindingMemes {
		if _, ok := lib.bindings[m.ProgramSequenceBindingID]; !ok {
			return fmt.Errorf("binding meme %s: unknown binding %q", m.ID, m.ProgramSequenceBindingID)
		}
	}
	for _, ch := range c.ProgramSequenceChords {
		if _, ok := lib.sequences[ch.ProgramSequenceID]; !ok {
			return fmt.Errorf("chord %s: unknown sequence %q", ch.ID, ch.ProgramSequenceID)
		}
	}
	for _, v := range c.ProgramSequenceChordVoicings {
		if _, ok := lib.chords[v.ProgramSequenceChordID]; !ok {
			return fmt.Errorf("voicing %s: unknown chord %q", v.ID, v.ProgramSequenceChordID)
		}
		if err := model.ValidateInstrumentType(v.Type); err != nil {
			return fmt.Errorf("voicing %s: %w", v.ID, err)
		}
	}
	for _, v := range c.ProgramVoices {
		if err := lib.needProgram("voice", v.ID, v.ProgramID); err != nil {
			return err
		}
		if err := model.ValidateInstrumentType(v.Type); err != nil {
			return fmt.Errorf("voice %s: %w", v.ID, err)
		}
	}
	for _, t := range c.ProgramVoiceTracks {
		if _, ok := lib.voices[t.ProgramVoiceID]; !ok {
			return fmt.Errorf("track %s: unknown voice %q", t.ID, t.ProgramVoiceID)
		}
	}
	for _, p := range c.ProgramSequencePatterns {
		voice, ok := lib.voices[p.ProgramVoiceID]
		if !ok {
			return fmt.Errorf("pattern %s: unknown voice %q", p.ID, p.ProgramVoiceID)
		}
		seq, ok := lib.sequences[p.ProgramSequenceID]
		if !ok || seq.ProgramID != voice.ProgramID {
			return fmt.Errorf("pattern %s: sequence %q not in program %s", p.ID, p.ProgramSequenceID, voice.ProgramID)
		}
		if p.Total <= 0 {
			return fmt.Errorf("pattern %s: total must be positive, got %d", p.ID, p.Total)
		}
	}
	for _, e := range c.ProgramSequencePatternEvents {
		if _, ok := lib.patterns[e.ProgramSequencePatternID]; !ok {
			return fmt.Errorf("event %s: unknown pattern %q", e.ID, e.ProgramSequencePatternID)
		}
		if _, ok := lib.tracks[e.ProgramVoiceTrackID]; !ok {
			return fmt.Errorf("event %s: unknown track %q", e.ID, e.ProgramVoiceTrackID)
		}
	}
	for _, i := range c.Instruments {
		if err := model.ValidateInstrumentType(i.Type); err != nil {
			return fmt.Errorf("instrument %s: %w", i.ID, err)
		}
		if err := model.ValidateInstrumentMode(i.Mode); err != nil {
			return fmt.Errorf("instrument %s: %w", i.ID, err)
		}
	}
	for _, m := range c.InstrumentMemes {
		if _, ok := lib.instruments[m.InstrumentID]; !ok {
			return fmt.Errorf("instrument meme %s: unknown instrument %q", m.ID, m.InstrumentID)
		}
	}
	for _, a := range c.InstrumentAudios {
		if _, ok := lib.instruments[a.InstrumentID]; !ok {
			return fmt.Errorf("audio %s: unknown instrument %q", a.ID, a.InstrumentID)
		}
	}
	return nil
}

func (lib *Library) needProgram(kind, id, programID string) error {
	if _, ok := lib.programs[programID]; !ok {
		return fmt.Errorf("%s %s: unknown program %q", kind, id, programID)
	}
	return nil
}

func index[T any](items []T, kind string, id func(T) string) (map[string]T, error) {
	m := make(map[string]T, len(items))
	for _, item := range items {
		k := id(item)
		if k == "" {
			return nil, fmt.Errorf("%s without id", kind)
		}
		if _, dup := m[k]; dup {
			return nil, fmt.Errorf("duplicate %s id %q", kind, k)
		}
		m[k] = item
	}
	return m, nil
}

func group[K comparable, T any](items []T, key func(T) K) map[K][]T {
	m := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		m[k] = append(m[k], item)
	}
	return m
}

func lookup[T any](m map[string]T, kind, id string) (T, error) {
	v, ok := m[id]
	if !ok {
		return v, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return v, nil
}
