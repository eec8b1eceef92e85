// Package model holds the entities shared by the content library, the
// fabrication workbench and the segment store.
//
// Content entities (programs, instruments and their children) are read-only
// once ingested. Segment entities are appended by the craft pipeline.
package model

import "fmt"

// --- Program enums ---

// ProgramType is the role a program plays in a segment.
type ProgramType string

const (
	ProgramMacro  ProgramType = "Macro"
	ProgramMain   ProgramType = "Main"
	ProgramDetail ProgramType = "Detail"
	ProgramBeat   ProgramType = "Beat"
)

var validProgramTypes = map[ProgramType]bool{
	ProgramMacro:  true,
	ProgramMain:   true,
	ProgramDetail: true,
	ProgramBeat:   true,
}

// ValidateProgramType returns an error if the type is not recognized.
func ValidateProgramType(t ProgramType) error {
	if !validProgramTypes[t] {
		return fmt.Errorf("invalid program type %q: must be one of: Macro, Main, Detail, Beat", t)
	}
	return nil
}

// ProgramState gates whether a program may be chosen.
type ProgramState string

const (
	ProgramDraft     ProgramState = "Draft"
	ProgramPublished ProgramState = "Published"
)

// --- Instrument enums ---

// InstrumentType is the kind of sound an instrument (or voice) produces.
type InstrumentType string

const (
	InstrumentBass       InstrumentType = "Bass"
	InstrumentDrum       InstrumentType = "Drum"
	InstrumentHook       InstrumentType = "Hook"
	InstrumentPad        InstrumentType = "Pad"
	InstrumentPercussion InstrumentType = "Percussion"
	InstrumentStab       InstrumentType = "Stab"
	InstrumentSticky     InstrumentType = "Sticky"
	InstrumentStripe     InstrumentType = "Stripe"
)

var validInstrumentTypes = map[InstrumentType]bool{
	InstrumentBass:       true,
	InstrumentDrum:       true,
	InstrumentHook:       true,
	InstrumentPad:        true,
	InstrumentPercussion: true,
	InstrumentStab:       true,
	InstrumentSticky:     true,
	InstrumentStripe:     true,
}

// ValidateInstrumentType returns an error if the type is not recognized.
func ValidateInstrumentType(t InstrumentType) error {
	if !validInstrumentTypes[t] {
		return fmt.Errorf("invalid instrument type %q", t)
	}
	return nil
}

// IsPercussive reports whether notes of this type are atonal.
func (t InstrumentType) IsPercussive() bool {
	return t == InstrumentDrum || t == InstrumentPercussion
}

// InstrumentMode decides how an instrument's audio is arranged.
type InstrumentMode string

const (
	ModeEvent InstrumentMode = "Event" // one audio per pattern event
	ModeChord InstrumentMode = "Chord" // one audio per segment chord
	ModeLoop  InstrumentMode = "Loop"  // audio laid end to end
)

var validInstrumentModes = map[InstrumentMode]bool{
	ModeEvent: true,
	ModeChord: true,
	ModeLoop:  true,
}

// ValidateInstrumentMode returns an error if the mode is not recognized.
func ValidateInstrumentMode(m InstrumentMode) error {
	if !validInstrumentModes[m] {
		return fmt.Errorf("invalid instrument mode %q: must be one of: Event, Chord, Loop", m)
	}
	return nil
}

// InstrumentState gates whether an instrument may be chosen.
type InstrumentState string

const (
	InstrumentDraft     InstrumentState = "Draft"
	InstrumentPublished InstrumentState = "Published"
)

// --- Programs ---

// Program is reusable musical content.
type Program struct {
	ID      string       `yaml:"id" json:"id"`
	Type    ProgramType  `yaml:"type" json:"type"`
	State   ProgramState `yaml:"state" json:"state"`
	Name    string       `yaml:"name" json:"name"`
	Key     string       `yaml:"key" json:"key"`
	Tempo   float64      `yaml:"tempo" json:"tempo"`
	Density float64      `yaml:"density" json:"density"`
}

// ProgramMeme tags a whole program.
type ProgramMeme struct {
	ID        string `yaml:"id" json:"id"`
	ProgramID string `yaml:"programId" json:"programId"`
	Name      string `yaml:"name" json:"name"`
}

// ProgramSequence is one section of a program.
type ProgramSequence struct {
	ID        string  `yaml:"id" json:"id"`
	ProgramID string  `yaml:"programId" json:"programId"`
	Name      string  `yaml:"name" json:"name"`
	Key       string  `yaml:"key" json:"key"`
	Total     int     `yaml:"total" json:"total"` // beats
	Density   float64 `yaml:"density" json:"density"`
}

// ProgramSequenceBinding places a sequence at an offset of the program's form.
type ProgramSequenceBinding struct {
	ID                string `yaml:"id" json:"id"`
	ProgramID         string `yaml:"programId" json:"programId"`
	ProgramSequenceID string `yaml:"programSequenceId" json:"programSequenceId"`
	Offset            int    `yaml:"offset" json:"offset"`
}

// ProgramSequenceBindingMeme tags one binding.
type ProgramSequenceBindingMeme struct {
	ID                       string `yaml:"id" json:"id"`
	ProgramID                string `yaml:"programId" json:"programId"`
	ProgramSequenceBindingID string `yaml:"programSequenceBindingId" json:"programSequenceBindingId"`
	Name                     string `yaml:"name" json:"name"`
}

// ProgramSequenceChord is a chord at a beat position of a sequence.
type ProgramSequenceChord struct {
	ID                string  `yaml:"id" json:"id"`
	ProgramID         string  `yaml:"programId" json:"programId"`
	ProgramSequenceID string  `yaml:"programSequenceId" json:"programSequenceId"`
	Position          float64 `yaml:"position" json:"position"`
	Name              string  `yaml:"name" json:"name"`
}

// ProgramSequenceChordVoicing lists the notes of a chord for one instrument type.
type ProgramSequenceChordVoicing struct {
	ID                     string         `yaml:"id" json:"id"`
	ProgramID              string         `yaml:"programId" json:"programId"`
	ProgramSequenceChordID string         `yaml:"programSequenceChordId" json:"programSequenceChordId"`
	Type                   InstrumentType `yaml:"type" json:"type"`
	Notes                  string         `yaml:"notes" json:"notes"`
}

// ProgramVoice is one instrument part of a program.
type ProgramVoice struct {
	ID        string         `yaml:"id" json:"id"`
	ProgramID string         `yaml:"programId" json:"programId"`
	Type      InstrumentType `yaml:"type" json:"type"`
	Name      string         `yaml:"name" json:"name"`
	Order     float64        `yaml:"order" json:"order"`
}

// ProgramVoiceTrack is a named lane of a voice, e.g. "Kick".
type ProgramVoiceTrack struct {
	ID             string  `yaml:"id" json:"id"`
	ProgramID      string  `yaml:"programId" json:"programId"`
	ProgramVoiceID string  `yaml:"programVoiceId" json:"programVoiceId"`
	Name           string  `yaml:"name" json:"name"`
	Order          float64 `yaml:"order" json:"order"`
}

// ProgramSequencePattern is a repeating figure of one voice within a sequence.
type ProgramSequencePattern struct {
	ID                string `yaml:"id" json:"id"`
	ProgramID         string `yaml:"programId" json:"programId"`
	ProgramSequenceID string `yaml:"programSequenceId" json:"programSequenceId"`
	ProgramVoiceID    string `yaml:"programVoiceId" json:"programVoiceId"`
	Name              string `yaml:"name" json:"name"`
	Total             int    `yaml:"total" json:"total"` // beats
}

// ProgramSequencePatternEvent is one note (or hit) of a pattern.
type ProgramSequencePatternEvent struct {
	ID                       string  `yaml:"id" json:"id"`
	ProgramID                string  `yaml:"programId" json:"programId"`
	ProgramSequencePatternID string  `yaml:"programSequencePatternId" json:"programSequencePatternId"`
	ProgramVoiceTrackID      string  `yaml:"programVoiceTrackId" json:"programVoiceTrackId"`
	Position                 float64 `yaml:"position" json:"position"`
	Duration                 float64 `yaml:"duration" json:"duration"`
	Velocity                 float64 `yaml:"velocity" json:"velocity"`
	Tones                    string  `yaml:"tones" json:"tones"`
}

// --- Instruments ---

// Instrument is a source of samples.
type Instrument struct {
	ID     string          `yaml:"id" json:"id"`
	Type   InstrumentType  `yaml:"type" json:"type"`
	Mode   InstrumentMode  `yaml:"mode" json:"mode"`
	State  InstrumentState `yaml:"state" json:"state"`
	Name   string          `yaml:"name" json:"name"`
	Volume float64         `yaml:"volume" json:"volume"`
}

// InstrumentMeme tags an instrument.
type InstrumentMeme struct {
	ID           string `yaml:"id" json:"id"`
	InstrumentID string `yaml:"instrumentId" json:"instrumentId"`
	Name         string `yaml:"name" json:"name"`
}

// InstrumentAudio is one sample of an instrument. Event names the pattern
// track it can sound (percussion), Tones the pitch it was recorded at, and
// Chord the chord it plays (Chord mode).
type InstrumentAudio struct {
	ID           string  `yaml:"id" json:"id"`
	InstrumentID string  `yaml:"instrumentId" json:"instrumentId"`
	Name         string  `yaml:"name" json:"name"`
	Event        string  `yaml:"event" json:"event"`
	Tones        string  `yaml:"tones" json:"tones"`
	Chord        string  `yaml:"chord" json:"chord"`
	Volume       float64 `yaml:"volume" json:"volume"`
	Tempo        float64 `yaml:"tempo" json:"tempo"`
	TotalBeats   float64 `yaml:"totalBeats" json:"totalBeats"`
	Intensity    float64 `yaml:"intensity" json:"intensity"`
}
