package craft

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"
)

// PercLoopCraft layers percussion loops under the segment. The number of
// layers follows the segment density.
type PercLoopCraft struct {
	fab *fabricator.Fabricator
	arranger
}

// NewPercLoopCraft wraps a fabricator.
func NewPercLoopCraft(fab *fabricator.Fabricator) *PercLoopCraft {
	return &PercLoopCraft{fab: fab, arranger: arranger{fab: fab}}
}

func isPercLoopChoice(c model.SegmentChoice) bool {
	return c.InstrumentType == model.InstrumentPercussion && c.InstrumentMode == model.ModeLoop
}

// Do runs the stage.
func (c *PercLoopCraft) Do() error {
	seg := c.fab.Segment()
	cfg := c.fab.Config()

	var prior []model.SegmentChoice
	if seg.Type == model.SegmentContinue {
		prior = c.fab.Retrospective().PreviousChoices(isPercLoopChoice)
	}

	var layers []string
	if len(prior) > 0 {
		for _, p := range prior {
			layers = append(layers, p.InstrumentID)
		}
	} else {
		ranked := rankInstruments(c.fab, model.InstrumentPercussion, model.ModeLoop)
		if len(ranked) == 0 {
			return fmt.Errorf("percussion loops for segment %d: %w", seg.Offset, fabricator.ErrNoValidChoice)
		}
		lo, hi := max(cfg.PercLoopLayerMin, 0), max(cfg.PercLoopLayerMax, cfg.PercLoopLayerMin, 0)
		n := max(lo+int(math.Round(seg.Density*float64(hi-lo))), 0)
		for _, inst := range ranked[:min(n, len(ranked))] {
			layers = append(layers, inst.ID)
		}
	}

	arc := 0
	if cfg.DeltaArcEnabled {
		var err error
		if arc, err = c.fab.MainProgramLengthBeats(); err != nil {
			return err
		}
	}
	priorWindows := PriorWindows(prior, isPercLoopChoice, func(p model.SegmentChoice) string { return p.InstrumentID })
	windows := PrecomputeDeltas(layers, priorWindows, arc, cfg.PercLoopPlateauRatio, seg.Density)

	for _, instrumentID := range layers {
		w := windows[instrumentID]
		choice, err := c.fab.PutChoice(model.SegmentChoice{
			InstrumentID: instrumentID,
			DeltaIn:      w.In,
			DeltaOut:     w.Out,
		})
		if err != nil {
			if len(prior) > 0 {
				return fmt.Errorf("%w: continue loop: %w", fabricator.ErrInvalidContinuity, err)
			}
			return err
		}
		au, ok := c.chooseAudio(instrumentID, prior)
		if !ok {
			return fmt.Errorf("%w: loop instrument %s has no audio", fabricator.ErrContentNotFound, instrumentID)
		}
		if err := c.arrangeLoop(choice, au); err != nil {
			return fmt.Errorf("arrange loop %s: %w", instrumentID, err)
		}
	}
	return nil
}

// chooseAudio keeps the previous segment's loop when continuing. Otherwise
// it takes the audio whose intensity is nearest the segment density,
// avoiding the audio the previous segment played on this instrument when
// another is available.
func (c *PercLoopCraft) chooseAudio(instrumentID string, prior []model.SegmentChoice) (model.InstrumentAudio, bool) {
	lib := c.fab.Library()
	retro := c.fab.Retrospective()
	audios := lib.Audios(instrumentID)
	if len(audios) == 0 {
		return model.InstrumentAudio{}, false
	}

	var previous string
	for _, p := range retro.PreviousChoices(isPercLoopChoice) {
		if p.InstrumentID != instrumentID {
			continue
		}
		if picks := retro.PreviousPicks(p.ID); len(picks) > 0 {
			previous = picks[0].InstrumentAudioID
		}
	}
	if previous != "" && len(prior) > 0 {
		for _, au := range audios {
			if au.ID == previous {
				return au, true
			}
		}
	}

	if previous != "" && len(audios) > 1 {
		others := audios[:0:0]
		for _, au := range audios {
			if au.ID != previous {
				others = append(others, au)
			}
		}
		audios = others
	}
	density := c.fab.Segment().Density
	slices.SortStableFunc(audios, func(a, b model.InstrumentAudio) int {
		return cmp.Compare(math.Abs(a.Intensity-density), math.Abs(b.Intensity-density))
	})
	return audios[0], true
}
