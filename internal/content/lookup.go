package content

import (
	"slices"

	"github.com/satindergrewal/chaincraft/internal/model"
)

// Lookups by id return ErrNotFound (wrapped) for unknown ids. Lookups by
// type or parent return copies in a stable order, never nil errors.

// Program returns a program by id.
func (lib *Library) Program(id string) (model.Program, error) {
	return lookup(lib.programs, "program", id)
}

// ProgramsOfType returns every program of the type, ordered by id.
func (lib *Library) ProgramsOfType(t model.ProgramType) []model.Program {
	return slices.Clone(lib.programsByType[t])
}

// PublishedPrograms returns the published programs of the type, ordered by id.
func (lib *Library) PublishedPrograms(t model.ProgramType) []model.Program {
	var out []model.Program
	for _, p := range lib.programsByType[t] {
		if p.State == model.ProgramPublished {
			out = append(out, p)
		}
	}
	return out
}

// ProgramMemes returns the program-level meme names.
func (lib *Library) ProgramMemes(programID string) []string {
	var out []string
	for _, m := range lib.programMemes[programID] {
		out = append(out, m.Name)
	}
	return out
}

// Sequence returns a sequence by id.
func (lib *Library) Sequence(id string) (model.ProgramSequence, error) {
	return lookup(lib.sequences, "sequence", id)
}

// Sequences returns the sequences of a program.
func (lib *Library) Sequences(programID string) []model.ProgramSequence {
	return slices.Clone(lib.sequencesBy[programID])
}

// Binding returns a sequence binding by id.
func (lib *Library) Binding(id string) (model.ProgramSequenceBinding, error) {
	return lookup(lib.bindings, "binding", id)
}

// Bindings returns the bindings of a program ordered by offset.
func (lib *Library) Bindings(programID string) []model.ProgramSequenceBinding {
	return slices.Clone(lib.bindingsBy[programID])
}

// BindingsAt returns the bindings of a program at one offset.
func (lib *Library) BindingsAt(programID string, offset int) []model.ProgramSequenceBinding {
	var out []model.ProgramSequenceBinding
	for _, b := range lib.bindingsBy[programID] {
		if b.Offset == offset {
			out = append(out, b)
		}
	}
	return out
}

// BindingOffsets returns the distinct offsets of a program's bindings, ascending.
func (lib *Library) BindingOffsets(programID string) []int {
	var out []int
	for _, b := range lib.bindingsBy[programID] {
		if len(out) == 0 || out[len(out)-1] != b.Offset {
			out = append(out, b.Offset)
		}
	}
	return out
}

// BindingMemes returns the meme names of one binding.
func (lib *Library) BindingMemes(bindingID string) []string {
	var out []string
	for _, m := range lib.bindingMemes[bindingID] {
		out = append(out, m.Name)
	}
	return out
}

// Chords returns the chords of a sequence ordered by position.
func (lib *Library) Chords(sequenceID string) []model.ProgramSequenceChord {
	return slices.Clone(lib.chordsBy[sequenceID])
}

// Voicings returns the voicings of one chord.
func (lib *Library) Voicings(chordID string) []model.ProgramSequenceChordVoicing {
	return slices.Clone(lib.voicingsBy[chordID])
}

// Voice returns a voice by id.
func (lib *Library) Voice(id string) (model.ProgramVoice, error) {
	return lookup(lib.voices, "voice", id)
}

// Voices returns the voices of a program in authored order.
func (lib *Library) Voices(programID string) []model.ProgramVoice {
	return slices.Clone(lib.voicesBy[programID])
}

// Track returns a voice track by id.
func (lib *Library) Track(id string) (model.ProgramVoiceTrack, error) {
	return lookup(lib.tracks, "track", id)
}

// Tracks returns the tracks of a voice in authored order.
func (lib *Library) Tracks(voiceID string) []model.ProgramVoiceTrack {
	return slices.Clone(lib.tracksBy[voiceID])
}

// Pattern returns a pattern by id.
func (lib *Library) Pattern(id string) (model.ProgramSequencePattern, error) {
	return lookup(lib.patterns, "pattern", id)
}

// Patterns returns the patterns of a voice, optionally limited to one
// sequence (empty sequenceID means all).
func (lib *Library) Patterns(voiceID, sequenceID string) []model.ProgramSequencePattern {
	var out []model.ProgramSequencePattern
	for _, p := range lib.patternsBy[voiceID] {
		if sequenceID == "" || p.ProgramSequenceID == sequenceID {
			out = append(out, p)
		}
	}
	return out
}

// Event returns a pattern event by id.
func (lib *Library) Event(id string) (model.ProgramSequencePatternEvent, error) {
	return lookup(lib.events, "event", id)
}

// Events returns the events of a pattern ordered by position.
func (lib *Library) Events(patternID string) []model.ProgramSequencePatternEvent {
	return slices.Clone(lib.eventsBy[patternID])
}

// Instrument returns an instrument by id.
func (lib *Library) Instrument(id string) (model.Instrument, error) {
	return lookup(lib.instruments, "instrument", id)
}

// PublishedInstruments returns the published instruments of a type,
// optionally restricted to one mode (empty mode means any), ordered by id.
func (lib *Library) PublishedInstruments(t model.InstrumentType, mode model.InstrumentMode) []model.Instrument {
	var out []model.Instrument
	for _, i := range lib.instrumentsByType[t] {
		if i.State != model.InstrumentPublished {
			continue
		}
		if mode != "" && i.Mode != mode {
			continue
		}
		out = append(out, i)
	}
	return out
}

// InstrumentMemes returns the meme names of one instrument.
func (lib *Library) InstrumentMemes(instrumentID string) []string {
	var out []string
	for _, m := range lib.instrumentMemes[instrumentID] {
		out = append(out, m.Name)
	}
	return out
}

// Audio returns an instrument audio by id.
func (lib *Library) Audio(id string) (model.InstrumentAudio, error) {
	return lookup(lib.audios, "audio", id)
}

// Audios returns the audios of an instrument ordered by id.
func (lib *Library) Audios(instrumentID string) []model.InstrumentAudio {
	return slices.Clone(lib.audiosBy[instrumentID])
}
