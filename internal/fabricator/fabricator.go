// Package fabricator is the per-segment workbench threaded through the craft
// pipeline: read access to the content library and the retrospective, plus
// accumulating collections of everything crafted for one segment.
package fabricator

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/satindergrewal/chaincraft/internal/content"
	"github.com/satindergrewal/chaincraft/internal/model"
	"github.com/satindergrewal/chaincraft/internal/timing"
)

// stickyBunSeeds is how many seeds a new sticky bun carries.
const stickyBunSeeds = 4

// Fabricator owns the craft of a single segment and is discarded afterwards.
// It is not safe for concurrent use; craft stages run one after another.
type Fabricator struct {
	cfg   Config
	lib   *content.Library
	retro *Retrospective

	segment   model.Segment
	namespace uuid.UUID
	serial    int
	rng       *rand.Rand
	tc        *timing.TimeComputer

	choices      []model.SegmentChoice
	arrangements []model.SegmentChoiceArrangement
	picks        []model.SegmentChoiceArrangementPick
	chords       []model.SegmentChord
	voicings     []model.SegmentChordVoicing
	memes        []model.SegmentMeme
	stickyBuns   []model.StickyBun
}

// New builds a fabricator around a segment in the Crafting state.
func New(lib *content.Library, retro *Retrospective, segment model.Segment, cfg Config) (*Fabricator, error) {
	if lib == nil {
		return nil, fmt.Errorf("%w: no content library", ErrMalformedInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if segment.ID == "" || segment.ChainID == "" {
		return nil, fmt.Errorf("%w: segment %d has no id or chain", ErrMalformedInput, segment.Offset)
	}
	if segment.State != model.SegmentCrafting {
		return nil, fmt.Errorf("%w: segment %d is %s, not %s", ErrMalformedInput, segment.Offset, segment.State, model.SegmentCrafting)
	}
	if segment.Offset < 0 {
		return nil, fmt.Errorf("%w: negative segment offset %d", ErrMalformedInput, segment.Offset)
	}
	if prev, ok := retro.Previous(); ok {
		if prev.Segment.ChainID != segment.ChainID {
			return nil, fmt.Errorf("%w: previous segment belongs to chain %s", ErrMalformedInput, prev.Segment.ChainID)
		}
		if prev.Segment.Offset >= segment.Offset {
			return nil, fmt.Errorf("%w: previous segment %d is not before %d", ErrMalformedInput, prev.Segment.Offset, segment.Offset)
		}
	}

	ns := uuid.NewSHA1(uuid.NameSpaceOID, []byte("segment:"+segment.ID))
	return &Fabricator{
		cfg:       cfg,
		lib:       lib,
		retro:     retro,
		segment:   segment,
		namespace: ns,
		rng:       rand.New(rand.NewPCG(binary.BigEndian.Uint64(ns[:8]), binary.BigEndian.Uint64(ns[8:]))),
	}, nil
}

// Config returns the fabrication settings.
func (f *Fabricator) Config() Config { return f.cfg }

// Library returns the content library.
func (f *Fabricator) Library() *content.Library { return f.lib }

// Retrospective returns the view of prior segments.
func (f *Fabricator) Retrospective() *Retrospective { return f.retro }

// Rand is the segment's deterministic random source, seeded from its id.
func (f *Fabricator) Rand() *rand.Rand { return f.rng }

// Segment returns a copy of the segment being crafted.
func (f *Fabricator) Segment() model.Segment { return f.segment }

// Type is the segment type decided so far.
func (f *Fabricator) Type() model.SegmentType { return f.segment.Type }

// SetSegment replaces the segment's attributes. Identity fields may not change.
func (f *Fabricator) SetSegment(s model.Segment) error {
	if s.ID != f.segment.ID || s.ChainID != f.segment.ChainID || s.Offset != f.segment.Offset {
		return fmt.Errorf("%w: segment identity changed", ErrMalformedInput)
	}
	f.segment = s
	f.tc = nil
	return nil
}

// NewID returns the next deterministic id for an entity of this segment.
func (f *Fabricator) NewID(kind string) string {
	f.serial++
	return uuid.NewSHA1(f.namespace, fmt.Appendf(nil, "%s:%d", kind, f.serial)).String()
}

// --- Choices ---

// PutChoice adds or replaces a choice, filling in its id and the program
// and instrument attributes implied by its references.
func (f *Fabricator) PutChoice(c model.SegmentChoice) (model.SegmentChoice, error) {
	c.SegmentID = f.segment.ID
	if c.ProgramID != "" {
		p, err := f.lib.Program(c.ProgramID)
		if err != nil {
			return c, fmt.Errorf("%w: %w", ErrContentNotFound, err)
		}
		if c.ProgramType == "" {
			c.ProgramType = p.Type
		}
	}
	if c.ProgramSequenceBindingID != "" {
		b, err := f.lib.Binding(c.ProgramSequenceBindingID)
		if err != nil {
			return c, fmt.Errorf("%w: %w", ErrContentNotFound, err)
		}
		if b.ProgramID != c.ProgramID {
			return c, fmt.Errorf("%w: binding %s is not in program %s", ErrMalformedInput, b.ID, c.ProgramID)
		}
		c.ProgramSequenceID = b.ProgramSequenceID
	}
	if c.ProgramVoiceID != "" {
		v, err := f.lib.Voice(c.ProgramVoiceID)
		if err != nil {
			return c, fmt.Errorf("%w: %w", ErrContentNotFound, err)
		}
		if v.ProgramID != c.ProgramID {
			return c, fmt.Errorf("%w: voice %s is not in program %s", ErrMalformedInput, v.ID, c.ProgramID)
		}
	}
	if c.InstrumentID != "" {
		i, err := f.lib.Instrument(c.InstrumentID)
		if err != nil {
			return c, fmt.Errorf("%w: %w", ErrContentNotFound, err)
		}
		c.InstrumentType = i.Type
		c.InstrumentMode = i.Mode
	}
	if c.DeltaIn != model.DeltaUnlimited && c.DeltaOut != model.DeltaUnlimited && c.DeltaIn > c.DeltaOut {
		return c, fmt.Errorf("%w: delta in %d after delta out %d", ErrMalformedInput, c.DeltaIn, c.DeltaOut)
	}
	if c.ID == "" {
		c.ID = f.NewID("choice")
	}
	f.choices = upsert(f.choices, c, func(x model.SegmentChoice) string { return x.ID })
	return c, nil
}

// Choices returns every choice in the order added.
func (f *Fabricator) Choices() []model.SegmentChoice {
	return clone(f.choices)
}

// ChoicesOf returns the choices of one program type.
func (f *Fabricator) ChoicesOf(t model.ProgramType) []model.SegmentChoice {
	var out []model.SegmentChoice
	for _, c := range f.choices {
		if c.ProgramType == t {
			out = append(out, c)
		}
	}
	return out
}

// Choice returns the single choice of a program type, such as Macro or Main.
func (f *Fabricator) Choice(t model.ProgramType) (model.SegmentChoice, bool) {
	for _, c := range f.choices {
		if c.ProgramType == t {
			return c, true
		}
	}
	return model.SegmentChoice{}, false
}

// --- Arrangements and picks ---

// PutArrangement adds or replaces an arrangement of a choice of this segment.
func (f *Fabricator) PutArrangement(a model.SegmentChoiceArrangement) (model.SegmentChoiceArrangement, error) {
	a.SegmentID = f.segment.ID
	if !contains(f.choices, a.SegmentChoiceID, func(c model.SegmentChoice) string { return c.ID }) {
		return a, fmt.Errorf("%w: arrangement of unknown choice %q", ErrMalformedInput, a.SegmentChoiceID)
	}
	if a.ID == "" {
		a.ID = f.NewID("arrangement")
	}
	f.arrangements = upsert(f.arrangements, a, func(x model.SegmentChoiceArrangement) string { return x.ID })
	return a, nil
}

// Arrangements returns every arrangement in the order added.
func (f *Fabricator) Arrangements() []model.SegmentChoiceArrangement {
	return clone(f.arrangements)
}

// PutPick adds or replaces a pick of an arrangement of this segment.
func (f *Fabricator) PutPick(p model.SegmentChoiceArrangementPick) (model.SegmentChoiceArrangementPick, error) {
	p.SegmentID = f.segment.ID
	if !contains(f.arrangements, p.SegmentChoiceArrangementID, func(a model.SegmentChoiceArrangement) string { return a.ID }) {
		return p, fmt.Errorf("%w: pick of unknown arrangement %q", ErrMalformedInput, p.SegmentChoiceArrangementID)
	}
	if _, err := f.lib.Audio(p.InstrumentAudioID); err != nil {
		return p, fmt.Errorf("%w: %w", ErrContentNotFound, err)
	}
	if p.LengthSeconds < 0 {
		return p, fmt.Errorf("%w: negative pick length %v", ErrMalformedInput, p.LengthSeconds)
	}
	if p.ID == "" {
		p.ID = f.NewID("pick")
	}
	f.picks = upsert(f.picks, p, func(x model.SegmentChoiceArrangementPick) string { return x.ID })
	return p, nil
}

// Picks returns every pick in the order added.
func (f *Fabricator) Picks() []model.SegmentChoiceArrangementPick {
	return clone(f.picks)
}

// PicksOfChoice returns the picks made for one choice.
func (f *Fabricator) PicksOfChoice(choiceID string) []model.SegmentChoiceArrangementPick {
	arrangements := map[string]bool{}
	for _, a := range f.arrangements {
		if a.SegmentChoiceID == choiceID {
			arrangements[a.ID] = true
		}
	}
	var out []model.SegmentChoiceArrangementPick
	for _, p := range f.picks {
		if arrangements[p.SegmentChoiceArrangementID] {
			out = append(out, p)
		}
	}
	return out
}

// --- Chords, memes, sticky buns ---

// PutChord adds or replaces a segment chord.
func (f *Fabricator) PutChord(c model.SegmentChord) (model.SegmentChord, error) {
	c.SegmentID = f.segment.ID
	if c.Position < 0 {
		return c, fmt.Errorf("%w: chord %q at negative position %v", ErrMalformedInput, c.Name, c.Position)
	}
	if c.ID == "" {
		c.ID = f.NewID("chord")
	}
	f.chords = upsert(f.chords, c, func(x model.SegmentChord) string { return x.ID })
	return c, nil
}

// Chords returns the chords in the order added.
func (f *Fabricator) Chords() []model.SegmentChord {
	return clone(f.chords)
}

// PutVoicing adds or replaces the voicing of a segment chord.
func (f *Fabricator) PutVoicing(v model.SegmentChordVoicing) (model.SegmentChordVoicing, error) {
	v.SegmentID = f.segment.ID
	if !contains(f.chords, v.SegmentChordID, func(c model.SegmentChord) string { return c.ID }) {
		return v, fmt.Errorf("%w: voicing of unknown chord %q", ErrMalformedInput, v.SegmentChordID)
	}
	if v.ID == "" {
		v.ID = f.NewID("voicing")
	}
	f.voicings = upsert(f.voicings, v, func(x model.SegmentChordVoicing) string { return x.ID })
	return v, nil
}

// Voicings returns every chord voicing in the order added.
func (f *Fabricator) Voicings() []model.SegmentChordVoicing {
	return clone(f.voicings)
}

// Voicing returns the voicing of a chord for one instrument type.
func (f *Fabricator) Voicing(chordID string, t model.InstrumentType) (model.SegmentChordVoicing, bool) {
	for _, v := range f.voicings {
		if v.SegmentChordID == chordID && v.Type == t {
			return v, true
		}
	}
	return model.SegmentChordVoicing{}, false
}

// PutMeme tags the segment. A meme already present (ignoring case) is kept
// as is.
func (f *Fabricator) PutMeme(name string) model.SegmentMeme {
	name = strings.TrimSpace(name)
	for _, m := range f.memes {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	m := model.SegmentMeme{ID: f.NewID("meme"), SegmentID: f.segment.ID, Name: name}
	f.memes = append(f.memes, m)
	return m
}

// Memes returns the segment memes in the order added.
func (f *Fabricator) Memes() []model.SegmentMeme {
	return clone(f.memes)
}

// PutStickyBun records the seeds of a pattern event.
func (f *Fabricator) PutStickyBun(b model.StickyBun) {
	f.stickyBuns = upsert(f.stickyBuns, b, func(x model.StickyBun) string { return x.EventID })
}

// StickyBun returns the seeds pinning a pattern event's random choices. A bun
// from an earlier segment carries over; otherwise one is derived from the
// chain and event ids so that the same event decides the same way.
func (f *Fabricator) StickyBun(eventID string) model.StickyBun {
	for _, b := range f.stickyBuns {
		if b.EventID == eventID {
			return b
		}
	}
	b, ok := f.retro.StickyBun(eventID)
	if !ok {
		sum := uuid.NewSHA1(uuid.NameSpaceOID, []byte("bun:"+f.segment.ChainID+":"+eventID))
		b = model.StickyBun{EventID: eventID, Seeds: make([]int, stickyBunSeeds)}
		for i := range b.Seeds {
			b.Seeds[i] = int(binary.BigEndian.Uint32(sum[i*4:]) & 0x7fffffff)
		}
	}
	f.PutStickyBun(b)
	return b
}

// StickyBuns returns every sticky bun used by this segment.
func (f *Fabricator) StickyBuns() []model.StickyBun {
	return clone(f.stickyBuns)
}

// Result bundles the segment with its craft.
func (f *Fabricator) Result() model.SegmentCraft {
	return model.SegmentCraft{
		Segment:      f.segment,
		Choices:      f.Choices(),
		Arrangements: f.Arrangements(),
		Picks:        f.Picks(),
		Chords:       f.Chords(),
		Voicings:     f.Voicings(),
		Memes:        f.Memes(),
		StickyBuns:   f.StickyBuns(),
	}
}

func upsert[T any](list []T, item T, id func(T) string) []T {
	for i := range list {
		if id(list[i]) == id(item) {
			list[i] = item
			return list
		}
	}
	return append(list, item)
}

func contains[T any](list []T, want string, id func(T) string) bool {
	for _, x := range list {
		if id(x) == want {
			return true
		}
	}
	return false
}

func clone[T any](list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	return out
}
