// Package contenttest provides a small but complete content library for
// tests: two macro programs, three main programs, two detail programs and
// instruments in every arrangement mode.
//
// With an empty retrospective the library fabricates, in order:
//
//	offset 0  Initial    macro-tropical@0  main-sunrise@0
//	offset 1  Continue   macro-tropical@0  main-sunrise@1
//	offset 2  NextMain   macro-tropical@1  main-moonrise@0
//	offset 3  NextMacro  macro-urban@0     main-street@0
package contenttest

import (
	"fmt"

	"github.com/satindergrewal/chaincraft/internal/content"
	"github.com/satindergrewal/chaincraft/internal/model"
)

const (
	MacroTropical = "macro-tropical"
	MacroUrban    = "macro-urban"
	MacroDraft    = "macro-draft"

	MainSunrise  = "main-sunrise"
	MainMoonrise = "main-moonrise"
	MainStreet   = "main-street"

	DetailWarmKeys   = "detail-warm-keys"
	DetailCoolPlucks = "detail-cool-plucks"

	VoiceBass = "voice-bass"
	VoicePad  = "voice-pad"
	VoiceDrum = "voice-drum"
	VoiceStab = "voice-stab"

	InstrumentBass  = "inst-bass"
	InstrumentPad   = "inst-pad"
	InstrumentDrum  = "inst-drum"
	InstrumentStab  = "inst-stab"
	InstrumentLoopA = "inst-loop-a"
	InstrumentLoopB = "inst-loop-b"
	InstrumentLoopC = "inst-loop-c"
)

// Library returns the fixture library. It panics if the fixture is invalid.
func Library() *content.Library {
	lib, err := content.New(Content())
	if err != nil {
		panic(fmt.Sprintf("contenttest: %v", err))
	}
	return lib
}

// Content returns the flat fixture content.
func Content() content.Content {
	b := &builder{}

	// Macro programs.
	b.program(MacroTropical, model.ProgramMacro, "Tropical Drift", "C", 120, 0.6, "Tropical")
	b.sequence("macro-tropical-warm", MacroTropical, "", 64, 0.6)
	b.sequence("macro-tropical-cool", MacroTropical, "", 64, 0.4)
	b.binding("macro-tropical-b0", MacroTropical, "macro-tropical-warm", 0, "Warm")
	b.binding("macro-tropical-b1", MacroTropical, "macro-tropical-cool", 1, "Cool")

	b.program(MacroUrban, model.ProgramMacro, "Urban Night", "Em", 90, 0.8, "Urban")
	b.sequence("macro-urban-s0", MacroUrban, "", 64, 0.8)
	b.binding("macro-urban-b0", MacroUrban, "macro-urban-s0", 0, "Cool", "!Warm")

	b.program(MacroDraft, model.ProgramMacro, "Unfinished", "C", 120, 0.5, "Warm")
	b.c.Programs[len(b.c.Programs)-1].State = model.ProgramDraft
	b.sequence("macro-draft-s0", MacroDraft, "", 64, 0.5)
	b.binding("macro-draft-b0", MacroDraft, "macro-draft-s0", 0)

	// Main programs.
	b.program(MainSunrise, model.ProgramMain, "Sunrise", "C", 120, 0.5, "Warm")
	b.sequence("main-sunrise-verse", MainSunrise, "C", 16, 0.4)
	b.chord("main-sunrise-verse-c0", MainSunrise, "main-sunrise-verse", 0, "C", "C2", "C4, E4, G4")
	b.chord("main-sunrise-verse-c4", MainSunrise, "main-sunrise-verse", 4, "Am", "A1", "A3, C4, E4")
	b.chord("main-sunrise-verse-c8", MainSunrise, "main-sunrise-verse", 8, "F", "F1", "F3, A3, C4")
	b.chord("main-sunrise-verse-c12", MainSunrise, "main-sunrise-verse", 12, "G", "G1", "G3, B3, D4")
	b.sequence("main-sunrise-chorus", MainSunrise, "F", 16, 0.6)
	b.chord("main-sunrise-chorus-c0", MainSunrise, "main-sunrise-chorus", 0, "F", "F1", "F3, A3, C4")
	b.chord("main-sunrise-chorus-c8", MainSunrise, "main-sunrise-chorus", 8, "G/B", "B1", "B3, D4, G4")
	b.chord("main-sunrise-chorus-c12", MainSunrise, "main-sunrise-chorus", 12, "C", "C2", "C4, E4, G4")
	b.binding("main-sunrise-b0", MainSunrise, "main-sunrise-verse", 0, "Warm")
	b.binding("main-sunrise-b1", MainSunrise, "main-sunrise-chorus", 1, "Bright")

	b.program(MainMoonrise, model.ProgramMain, "Moonrise", "Am", 100, 0.5, "Cool")
	b.sequence("main-moonrise-s0", MainMoonrise, "Am", 8, 0.5)
	b.chord("main-moonrise-s0-c0", MainMoonrise, "main-moonrise-s0", 0, "Am", "A1", "A3, C4, E4")
	b.chord("main-moonrise-s0-c4", MainMoonrise, "main-moonrise-s0", 4, "D minor", "D2", "D4, F4, A4")
	b.binding("main-moonrise-b0", MainMoonrise, "main-moonrise-s0", 0)

	b.program(MainStreet, model.ProgramMain, "Street", "Em", 90, 0.7, "Urban")
	b.sequence("main-street-s0", MainStreet, "", 8, 0.7)
	b.chord("main-street-s0-c0", MainStreet, "main-street-s0", 0, "Em", "E2", "E4, G4, B4")
	b.binding("main-street-b0", MainStreet, "main-street-s0", 0, "Cool")

	// Detail programs.
	b.program(DetailWarmKeys, model.ProgramDetail, "Warm Keys", "C", 120, 0.5, "Warm")
	b.sequence("detail-warm-keys-s0", DetailWarmKeys, "C", 4, 0.5)
	b.voice(VoiceBass, DetailWarmKeys, model.InstrumentBass, "Bass", 1)
	b.voice(VoicePad, DetailWarmKeys, model.InstrumentPad, "Pad", 2)
	b.voice(VoiceDrum, DetailWarmKeys, model.InstrumentDrum, "Drums", 3)
	b.track("track-bass", DetailWarmKeys, VoiceBass, "Bass")
	b.track("track-pad", DetailWarmKeys, VoicePad, "Chords")
	b.track("track-kick", DetailWarmKeys, VoiceDrum, "Kick")
	b.track("track-snare", DetailWarmKeys, VoiceDrum, "Snare")
	b.pattern("pattern-bass", DetailWarmKeys, "detail-warm-keys-s0", VoiceBass, 4)
	b.event("event-bass-0", DetailWarmKeys, "pattern-bass", "track-bass", 0, 1, 0.9, "C2")
	b.event("event-bass-2", DetailWarmKeys, "pattern-bass", "track-bass", 2, 1, 0.8, "G2")
	b.pattern("pattern-pad", DetailWarmKeys, "detail-warm-keys-s0", VoicePad, 4)
	b.event("event-pad-0", DetailWarmKeys, "pattern-pad", "track-pad", 0, 4, 0.6, "C4, E4, G4")
	b.pattern("pattern-drum", DetailWarmKeys, "detail-warm-keys-s0", VoiceDrum, 4)
	b.event("event-kick-0", DetailWarmKeys, "pattern-drum", "track-kick", 0, 0.5, 1, "X")
	b.event("event-snare-1", DetailWarmKeys, "pattern-drum", "track-snare", 1, 0.5, 0.8, "X")
	b.event("event-kick-2", DetailWarmKeys, "pattern-drum", "track-kick", 2, 0.5, 1, "X")
	b.event("event-snare-3", DetailWarmKeys, "pattern-drum", "track-snare", 3, 0.5, 0.8, "X")

	b.program(DetailCoolPlucks, model.ProgramDetail, "Cool Plucks", "Am", 100, 0.5, "Cool")
	b.sequence("detail-cool-plucks-s0", DetailCoolPlucks, "Am", 4, 0.5)
	b.voice(VoiceStab, DetailCoolPlucks, model.InstrumentStab, "Stab", 1)

	// Instruments.
	b.instrument(InstrumentBass, model.InstrumentBass, model.ModeEvent, "Round Bass", "Warm")
	b.audio("audio-bass-c2", InstrumentBass, "Bass C2", "Bass", "C2", "", 2, 0.5)
	b.audio("audio-bass-e2", InstrumentBass, "Bass E2", "Bass", "E2", "", 2, 0.5)
	b.audio("audio-bass-g2", InstrumentBass, "Bass G2", "Bass", "G2", "", 2, 0.5)

	b.instrument(InstrumentPad, model.InstrumentPad, model.ModeEvent, "Soft Pad", "Warm")
	b.audio("audio-pad-c4", InstrumentPad, "Pad C4", "Pad", "C4", "", 4, 0.5)
	b.audio("audio-pad-e4", InstrumentPad, "Pad E4", "Pad", "E4", "", 4, 0.5)
	b.audio("audio-pad-g4", InstrumentPad, "Pad G4", "Pad", "G4", "", 4, 0.5)

	b.instrument(InstrumentDrum, model.InstrumentDrum, model.ModeEvent, "Kit")
	b.audio("audio-kick", InstrumentDrum, "Kick 1", "KICK", "X", "", 1, 0.5)
	b.audio("audio-kick-alt", InstrumentDrum, "Kick 2", "kik", "X", "", 1, 0.5)
	b.audio("audio-snare", InstrumentDrum, "Snare", "Snare", "X", "", 1, 0.5)
	b.audio("audio-hat", InstrumentDrum, "Hat", "Hi-Hat", "X", "", 1, 0.5)

	b.instrument(InstrumentStab, model.InstrumentStab, model.ModeChord, "Pluck Stab", "Cool")
	for i, ch := range []string{"Am", "D minor", "C", "F", "G", "Em"} {
		b.audio(fmt.Sprintf("audio-stab-%d", i), InstrumentStab, "Stab "+ch, "Stab", "", ch, 4, 0.5)
	}

	b.instrument(InstrumentLoopA, model.InstrumentPercussion, model.ModeLoop, "Shaker Loop", "Warm")
	b.audio("audio-loop-a1", InstrumentLoopA, "Shaker Soft", "Loop", "X", "", 4, 0.25)
	b.audio("audio-loop-a2", InstrumentLoopA, "Shaker Hard", "Loop", "X", "", 4, 0.75)

	b.instrument(InstrumentLoopB, model.InstrumentPercussion, model.ModeLoop, "Conga Loop", "Cool")
	b.audio("audio-loop-b1", InstrumentLoopB, "Conga", "Loop", "X", "", 8, 0.5)

	b.instrument(InstrumentLoopC, model.InstrumentPercussion, model.ModeLoop, "Clap Loop", "Urban")
	b.audio("audio-loop-c1", InstrumentLoopC, "Clap", "Loop", "X", "", 2, 0.5)

	b.instrument("inst-draft", model.InstrumentPercussion, model.ModeLoop, "Broken Loop", "Warm")
	b.c.Instruments[len(b.c.Instruments)-1].State = model.InstrumentDraft

	return b.c
}

type builder struct {
	c content.Content
}

func (b *builder) program(id string, t model.ProgramType, name, key string, tempo, density float64, memes ...string) {
	b.c.Programs = append(b.c.Programs, model.Program{
		ID: id, Type: t, State: model.ProgramPublished, Name: name, Key: key, Tempo: tempo, Density: density,
	})
	for i, m := range memes {
		b.c.ProgramMemes = append(b.c.ProgramMemes, model.ProgramMeme{
			ID: fmt.Sprintf("%s-meme-%d", id, i), ProgramID: id, Name: m,
		})
	}
}

func (b *builder) sequence(id, programID, key string, total int, density float64) {
	b.c.ProgramSequences = append(b.c.ProgramSequences, model.ProgramSequence{
		ID: id, ProgramID: programID, Name: id, Key: key, Total: total, Density: density,
	})
}

func (b *builder) binding(id, programID, sequenceID string, offset int, memes ...string) {
	b.c.ProgramSequenceBindings = append(b.c.ProgramSequenceBindings, model.ProgramSequenceBinding{
		ID: id, ProgramID: programID, ProgramSequenceID: sequenceID, Offset: offset,
	})
	for i, m := range memes {
		b.c.ProgramSequenceBindingMemes = append(b.c.ProgramSequenceBindingMemes, model.ProgramSequenceBindingMeme{
			ID: fmt.Sprintf("%s-meme-%d", id, i), ProgramID: programID, ProgramSequenceBindingID: id, Name: m,
		})
	}
}

// chord adds a chord with Bass and Pad voicings.
func (b *builder) chord(id, programID, sequenceID string, position float64, name, bass, pad string) {
	b.c.ProgramSequenceChords = append(b.c.ProgramSequenceChords, model.ProgramSequenceChord{
		ID: id, ProgramID: programID, ProgramSequenceID: sequenceID, Position: position, Name: name,
	})
	b.c.ProgramSequenceChordVoicings = append(b.c.ProgramSequenceChordVoicings,
		model.ProgramSequenceChordVoicing{ID: id + "-bass", ProgramID: programID, ProgramSequenceChordID: id, Type: model.InstrumentBass, Notes: bass},
		model.ProgramSequenceChordVoicing{ID: id + "-pad", ProgramID: programID, ProgramSequenceChordID: id, Type: model.InstrumentPad, Notes: pad},
	)
}

func (b *builder) voice(id, programID string, t model.InstrumentType, name string, order float64) {
	b.c.ProgramVoices = append(b.c.ProgramVoices, model.ProgramVoice{
		ID: id, ProgramID: programID, Type: t, Name: name, Order: order,
	})
}

func (b *builder) track(id, programID, voiceID, name string) {
	b.c.ProgramVoiceTracks = append(b.c.ProgramVoiceTracks, model.ProgramVoiceTrack{
		ID: id, ProgramID: programID, ProgramVoiceID: voiceID, Name: name,
	})
}

func (b *builder) pattern(id, programID, sequenceID, voiceID string, total int) {
	b.c.ProgramSequencePatterns = append(b.c.ProgramSequencePatterns, model.ProgramSequencePattern{
		ID: id, ProgramID: programID, ProgramSequenceID: sequenceID, ProgramVoiceID: voiceID, Name: id, Total: total,
	})
}

func (b *builder) event(id, programID, patternID, trackID string, position, duration, velocity float64, tones string) {
	b.c.ProgramSequencePatternEvents = append(b.c.ProgramSequencePatternEvents, model.ProgramSequencePatternEvent{
		ID: id, ProgramID: programID, ProgramSequencePatternID: patternID, ProgramVoiceTrackID: trackID,
		Position: position, Duration: duration, Velocity: velocity, Tones: tones,
	})
}

func (b *builder) instrument(id string, t model.InstrumentType, mode model.InstrumentMode, name string, memes ...string) {
	b.c.Instruments = append(b.c.Instruments, model.Instrument{
		ID: id, Type: t, Mode: mode, State: model.InstrumentPublished, Name: name, Volume: 1,
	})
	for i, m := range memes {
		b.c.InstrumentMemes = append(b.c.InstrumentMemes, model.InstrumentMeme{
			ID: fmt.Sprintf("%s-meme-%d", id, i), InstrumentID: id, Name: m,
		})
	}
}

func (b *builder) audio(id, instrumentID, name, event, tones, chord string, totalBeats, intensity float64) {
	b.c.InstrumentAudios = append(b.c.InstrumentAudios, model.InstrumentAudio{
		ID: id, InstrumentID: instrumentID, Name: name, Event: event, Tones: tones, Chord: chord,
		Volume: 1, Tempo: 120, TotalBeats: totalBeats, Intensity: intensity,
	})
}
