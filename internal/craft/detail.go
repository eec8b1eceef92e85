package craft

import (
	"fmt"
	"log"

	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"
)

// DetailCraft chooses a detail program, gives each of its voices an
// instrument and an activation window, and arranges them.
type DetailCraft struct {
	fab *fabricator.Fabricator
	arranger
}

// NewDetailCraft wraps a fabricator.
func NewDetailCraft(fab *fabricator.Fabricator) *DetailCraft {
	return &DetailCraft{fab: fab, arranger: arranger{fab: fab}}
}

func isDetailChoice(c model.SegmentChoice) bool {
	return c.ProgramType == model.ProgramDetail
}

// Do runs the stage. A segment without any usable detail program is left
// without detail and reported as ErrNoValidChoice.
func (c *DetailCraft) Do() error {
	if err := c.choose(); err != nil {
		return err
	}
	for _, choice := range c.fab.ChoicesOf(model.ProgramDetail) {
		var err error
		switch choice.InstrumentMode {
		case model.ModeChord:
			err = c.arrangeChords(choice)
		default:
			err = c.arrangeEvents(choice)
		}
		if err != nil {
			return fmt.Errorf("arrange detail voice %s: %w", choice.ProgramVoiceID, err)
		}
	}
	return nil
}

// choose puts one choice per playable voice. A Continue segment keeps the
// previous segment's program, instruments and windows.
func (c *DetailCraft) choose() error {
	lib := c.fab.Library()
	seg := c.fab.Segment()

	var prior []model.SegmentChoice
	if seg.Type == model.SegmentContinue {
		prior = c.fab.Retrospective().PreviousChoices(isDetailChoice)
	}

	var program model.Program
	instruments := map[string]string{}
	if len(prior) > 0 {
		var err error
		if program, err = lib.Program(prior[0].ProgramID); err != nil {
			return fmt.Errorf("%w: continue detail: %w", fabricator.ErrInvalidContinuity, err)
		}
		for _, p := range prior {
			instruments[p.ProgramVoiceID] = p.InstrumentID
		}
	} else {
		var ok bool
		if program, ok = c.chooseProgram(); !ok {
			return fmt.Errorf("detail for segment %d: %w", seg.Offset, fabricator.ErrNoValidChoice)
		}
		for _, v := range lib.Voices(program.ID) {
			inst, ok := chooseInstrument(c.fab, v.Type, model.ModeEvent, model.ModeChord)
			if !ok {
				log.Printf("No instrument for %s voice %q in segment %d", v.Type, v.Name, seg.Offset)
				continue
			}
			instruments[v.ID] = inst.ID
		}
	}

	var layers []string
	for _, v := range lib.Voices(program.ID) {
		if _, ok := instruments[v.ID]; ok {
			layers = append(layers, v.ID)
		}
	}
	if len(layers) == 0 {
		return fmt.Errorf("detail program %s has no playable voice: %w", program.ID, fabricator.ErrNoValidChoice)
	}

	cfg := c.fab.Config()
	arc := 0
	if cfg.DeltaArcEnabled {
		var err error
		if arc, err = c.fab.MainProgramLengthBeats(); err != nil {
			return err
		}
	}
	priorWindows := PriorWindows(prior, isDetailChoice, func(p model.SegmentChoice) string { return p.ProgramVoiceID })
	windows := PrecomputeDeltas(layers, priorWindows, arc, cfg.DetailPlateauRatio, seg.Density)

	for _, voiceID := range layers {
		w := windows[voiceID]
		if _, err := c.fab.PutChoice(model.SegmentChoice{
			ProgramID:      program.ID,
			ProgramVoiceID: voiceID,
			InstrumentID:   instruments[voiceID],
			DeltaIn:        w.In,
			DeltaOut:       w.Out,
		}); err != nil {
			if len(prior) > 0 {
				return fmt.Errorf("%w: continue detail: %w", fabricator.ErrInvalidContinuity, err)
			}
			return err
		}
	}
	return nil
}

// chooseProgram scores published detail programs against the segment memes.
// Ties go to the lowest id; programs whose memes the segment negates are
// skipped.
func (c *DetailCraft) chooseProgram() (model.Program, bool) {
	lib := c.fab.Library()
	iso := c.fab.MemeIsometryOfSegment()
	var best model.Program
	bestScore, found := 0.0, false
	for _, p := range lib.PublishedPrograms(model.ProgramDetail) {
		memes := lib.ProgramMemes(p.ID)
		if !iso.IsAllowed(memes) || len(lib.Voices(p.ID)) == 0 {
			continue
		}
		if score := iso.Score(memes); !found || score > bestScore {
			best, bestScore, found = p, score, true
		}
	}
	return best, found
}
