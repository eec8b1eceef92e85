package model

import "fmt"

// DeltaUnlimited marks an unbounded side of a choice's activation window.
const DeltaUnlimited = -1

// --- Chain ---

// ChainState tracks the lifecycle of a chain.
type ChainState string

const (
	ChainDraft     ChainState = "Draft"
	ChainReady     ChainState = "Ready"
	ChainFabricate ChainState = "Fabricate"
	ChainComplete  ChainState = "Complete"
	ChainFailed    ChainState = "Failed"
	ChainErase     ChainState = "Erase"
)

var chainTransitions = map[ChainState][]ChainState{
	ChainDraft:     {ChainReady, ChainErase},
	ChainReady:     {ChainFabricate, ChainErase},
	ChainFabricate: {ChainComplete, ChainFailed},
	ChainComplete:  {ChainErase},
	ChainFailed:    {ChainErase},
}

// Chain is a perpetually extending composition.
type Chain struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	State ChainState `json:"state"`
}

// Transition moves the chain to the next state if the lifecycle allows it.
func (c *Chain) Transition(to ChainState) error {
	for _, next := range chainTransitions[c.State] {
		if next == to {
			c.State = to
			return nil
		}
	}
	return fmt.Errorf("chain %q cannot move from %s to %s", c.ID, c.State, to)
}

// --- Segment ---

// SegmentState tracks the lifecycle of a segment.
type SegmentState string

const (
	SegmentPlanned  SegmentState = "Planned"
	SegmentCrafting SegmentState = "Crafting"
	SegmentCrafted  SegmentState = "Crafted"
	SegmentDubbing  SegmentState = "Dubbing"
	SegmentDubbed   SegmentState = "Dubbed"
)

var segmentTransitions = map[SegmentState]SegmentState{
	SegmentPlanned:  SegmentCrafting,
	SegmentCrafting: SegmentCrafted,
	SegmentCrafted:  SegmentDubbing,
	SegmentDubbing:  SegmentDubbed,
}

// SegmentType records how a segment continues from the one before it.
type SegmentType string

const (
	SegmentPending   SegmentType = "Pending"
	SegmentInitial   SegmentType = "Initial"
	SegmentContinue  SegmentType = "Continue"
	SegmentNextMain  SegmentType = "NextMain"
	SegmentNextMacro SegmentType = "NextMacro"
)

// Segment is one fixed-length slice of a chain.
type Segment struct {
	ID              string       `json:"id"`
	ChainID         string       `json:"chainId"`
	Offset          int          `json:"offset"`
	State           SegmentState `json:"state"`
	Type            SegmentType  `json:"type"`
	Delta           int          `json:"delta"` // beats since the main program began
	Total           int          `json:"total"` // beats
	Tempo           float64      `json:"tempo"`
	Key             string       `json:"key"`
	Density         float64      `json:"density"`
	BeginSeconds    float64      `json:"beginSeconds"`
	DurationSeconds float64      `json:"durationSeconds"`
}

// Transition moves the segment one step forward in its lifecycle.
func (s *Segment) Transition(to SegmentState) error {
	if segmentTransitions[s.State] != to {
		return fmt.Errorf("segment %d cannot move from %s to %s", s.Offset, s.State, to)
	}
	s.State = to
	return nil
}

// EndSeconds is when the segment stops sounding, relative to the chain start.
func (s Segment) EndSeconds() float64 {
	return s.BeginSeconds + s.DurationSeconds
}

// SegmentChoice is a segment's selection of a program with an activation window.
type SegmentChoice struct {
	ID                       string         `json:"id"`
	SegmentID                string         `json:"segmentId"`
	ProgramID                string         `json:"programId,omitempty"`
	ProgramType              ProgramType    `json:"programType,omitempty"`
	ProgramSequenceID        string         `json:"programSequenceId,omitempty"`
	ProgramSequenceBindingID string         `json:"programSequenceBindingId,omitempty"`
	ProgramVoiceID           string         `json:"programVoiceId,omitempty"`
	InstrumentID             string         `json:"instrumentId,omitempty"`
	InstrumentType           InstrumentType `json:"instrumentType,omitempty"`
	InstrumentMode           InstrumentMode `json:"instrumentMode,omitempty"`
	DeltaIn                  int            `json:"deltaIn"`
	DeltaOut                 int            `json:"deltaOut"`
}

// SegmentChoiceArrangement realizes one choice.
type SegmentChoiceArrangement struct {
	ID              string `json:"id"`
	SegmentID       string `json:"segmentId"`
	SegmentChoiceID string `json:"segmentChoiceId"`
}

// SegmentChoiceArrangementPick is one concrete sounding event.
type SegmentChoiceArrangementPick struct {
	ID                            string  `json:"id"`
	SegmentID                     string  `json:"segmentId"`
	SegmentChoiceArrangementID    string  `json:"segmentChoiceArrangementId"`
	InstrumentAudioID             string  `json:"instrumentAudioId"`
	ProgramSequencePatternEventID string  `json:"programSequencePatternEventId,omitempty"`
	Event                         string  `json:"event"`
	StartSeconds                  float64 `json:"startSeconds"`
	LengthSeconds                 float64 `json:"lengthSeconds"`
	Amplitude                     float64 `json:"amplitude"`
	Tones                         string  `json:"tones"`
}

// SegmentChord is a chord at a beat position of a segment.
type SegmentChord struct {
	ID        string  `json:"id"`
	SegmentID string  `json:"segmentId"`
	Position  float64 `json:"position"`
	Name      string  `json:"name"`
}

// SegmentChordVoicing lists a chord's notes for one instrument type.
type SegmentChordVoicing struct {
	ID             string         `json:"id"`
	SegmentID      string         `json:"segmentId"`
	SegmentChordID string         `json:"segmentChordId"`
	Type           InstrumentType `json:"type"`
	Notes          string         `json:"notes"`
}

// SegmentMeme tags a segment.
type SegmentMeme struct {
	ID        string `json:"id"`
	SegmentID string `json:"segmentId"`
	Name      string `json:"name"`
}

// StickyBun pins the random decisions of one pattern event across segments.
type StickyBun struct {
	EventID string `json:"eventId"`
	Seeds   []int  `json:"seeds"`
}

// Seed returns the i-th seed, cycling through the list.
func (b StickyBun) Seed(i int) int {
	if len(b.Seeds) == 0 {
		return 0
	}
	return b.Seeds[i%len(b.Seeds)]
}

// SegmentCraft bundles a segment with everything crafted for it.
type SegmentCraft struct {
	Segment      Segment                        `json:"segment"`
	Choices      []SegmentChoice                `json:"choices"`
	Arrangements []SegmentChoiceArrangement     `json:"arrangements"`
	Picks        []SegmentChoiceArrangementPick `json:"picks"`
	Chords       []SegmentChord                 `json:"chords"`
	Voicings     []SegmentChordVoicing          `json:"voicings"`
	Memes        []SegmentMeme                  `json:"memes"`
	StickyBuns   []StickyBun                    `json:"stickyBuns"`
}
