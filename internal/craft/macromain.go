package craft

import (
	"errors"
	"fmt"

	"github.com/satindergrewal/chaincraft/internal/content"
	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/isometry"
	"github.com/satindergrewal/chaincraft/internal/model"
)

// NextOffset returns the next available offset above current, wrapping to
// the lowest when current is already the highest. A wrap (a result not above
// current) means the offsets are exhausted.
func NextOffset(available []int, current int) int {
	if len(available) == 0 {
		return current
	}
	lowest, next, found := available[0], 0, false
	for _, o := range available {
		lowest = min(lowest, o)
		if o > current && (!found || o < next) {
			next, found = o, true
		}
	}
	if !found {
		return lowest
	}
	return next
}

// MacroMainCraft decides the segment type and chooses the macro and main
// programs, then sets the segment's musical attributes from them.
type MacroMainCraft struct {
	fab *fabricator.Fabricator
}

// NewMacroMainCraft wraps a fabricator.
func NewMacroMainCraft(fab *fabricator.Fabricator) *MacroMainCraft {
	return &MacroMainCraft{fab: fab}
}

// Do runs the stage.
func (c *MacroMainCraft) Do() error {
	lib := c.fab.Library()
	retro := c.fab.Retrospective()
	seg := c.fab.Segment()

	var macro, main model.ProgramSequenceBinding
	var err error

	prev, hasPrev := retro.Previous()
	if !hasPrev {
		seg.Type = model.SegmentInitial
		if macro, err = c.chooseFresh(model.ProgramMacro, isometry.NewMemeIsometry(nil), ""); err != nil {
			return err
		}
		if main, err = c.chooseFresh(model.ProgramMain, c.bindingIsometry(macro), ""); err != nil {
			return err
		}
		seg.Delta = 0
	} else {
		prevMacro, prevMacroBinding, err := c.previousBinding(model.ProgramMacro)
		if err != nil {
			return err
		}
		prevMain, prevMainBinding, err := c.previousBinding(model.ProgramMain)
		if err != nil {
			return err
		}

		nextMain := NextOffset(lib.BindingOffsets(prevMain.ProgramID), prevMainBinding.Offset)
		nextMacro := NextOffset(lib.BindingOffsets(prevMacro.ProgramID), prevMacroBinding.Offset)
		switch {
		case nextMain > prevMainBinding.Offset:
			seg.Type = model.SegmentContinue
			macro = prevMacroBinding
			main = c.bindingAt(prevMain.ProgramID, nextMain)
			seg.Delta = prev.Segment.Delta + prev.Segment.Total

		case nextMacro > prevMacroBinding.Offset:
			seg.Type = model.SegmentNextMain
			macro = c.bindingAt(prevMacro.ProgramID, nextMacro)
			if main, err = c.chooseFresh(model.ProgramMain, c.bindingIsometry(macro), prevMain.ProgramID); err != nil {
				return err
			}
			seg.Delta = 0

		default:
			seg.Type = model.SegmentNextMacro
			outgoing := isometry.NewMemeIsometry(lib.BindingMemes(prevMacroBinding.ID))
			if macro, err = c.chooseFresh(model.ProgramMacro, outgoing, prevMacro.ProgramID); err != nil {
				return err
			}
			if main, err = c.chooseFresh(model.ProgramMain, c.bindingIsometry(macro), prevMain.ProgramID); err != nil {
				return err
			}
			seg.Delta = 0
		}
	}

	for _, b := range []model.ProgramSequenceBinding{macro, main} {
		if _, err := c.fab.PutChoice(model.SegmentChoice{
			ProgramID:                b.ProgramID,
			ProgramSequenceBindingID: b.ID,
			DeltaIn:                  model.DeltaUnlimited,
			DeltaOut:                 model.DeltaUnlimited,
		}); err != nil {
			return err
		}
		for _, m := range lib.ProgramMemes(b.ProgramID) {
			c.fab.PutMeme(m)
		}
		for _, m := range lib.BindingMemes(b.ID) {
			c.fab.PutMeme(m)
		}
	}

	return c.applyAttributes(seg, macro, main)
}

// applyAttributes sets total, tempo, key and density from the chosen
// sequences and copies the main sequence's chords and voicings.
func (c *MacroMainCraft) applyAttributes(seg model.Segment, macro, main model.ProgramSequenceBinding) error {
	lib := c.fab.Library()
	macroSeq, err := lib.Sequence(macro.ProgramSequenceID)
	if err != nil {
		return fmt.Errorf("%w: %w", fabricator.ErrContentNotFound, err)
	}
	mainSeq, err := lib.Sequence(main.ProgramSequenceID)
	if err != nil {
		return fmt.Errorf("%w: %w", fabricator.ErrContentNotFound, err)
	}
	mainProgram, err := lib.Program(main.ProgramID)
	if err != nil {
		return fmt.Errorf("%w: %w", fabricator.ErrContentNotFound, err)
	}
	if mainProgram.Tempo <= 0 {
		return fmt.Errorf("%w: main program %s has tempo %v", fabricator.ErrMalformedInput, mainProgram.ID, mainProgram.Tempo)
	}

	seg.Total = mainSeq.Total
	seg.Tempo = mainProgram.Tempo
	seg.Key = mainSeq.Key
	if seg.Key == "" {
		seg.Key = mainProgram.Key
	}
	seg.Density = c.fab.Config().ClampDensity((macroSeq.Density + mainSeq.Density) / 2)
	if err := c.fab.SetSegment(seg); err != nil {
		return err
	}

	for _, ch := range lib.Chords(mainSeq.ID) {
		chord, err := c.fab.PutChord(model.SegmentChord{Position: ch.Position, Name: ch.Name})
		if err != nil {
			return err
		}
		for _, v := range lib.Voicings(ch.ID) {
			if _, err := c.fab.PutVoicing(model.SegmentChordVoicing{SegmentChordID: chord.ID, Type: v.Type, Notes: v.Notes}); err != nil {
				return err
			}
		}
	}
	return nil
}

// previousBinding resolves the previous segment's choice of a program type
// and the binding it was on.
func (c *MacroMainCraft) previousBinding(t model.ProgramType) (model.SegmentChoice, model.ProgramSequenceBinding, error) {
	choice, ok := c.fab.Retrospective().PreviousChoice(t)
	if !ok {
		return choice, model.ProgramSequenceBinding{}, fmt.Errorf("%w: previous segment has no %s choice", fabricator.ErrInvalidContinuity, t)
	}
	b, err := c.fab.Library().Binding(choice.ProgramSequenceBindingID)
	if errors.Is(err, content.ErrNotFound) || (err == nil && b.ProgramID != choice.ProgramID) {
		return choice, b, fmt.Errorf("%w: %s binding %q no longer resolves", fabricator.ErrInvalidContinuity, t, choice.ProgramSequenceBindingID)
	}
	return choice, b, err
}

// bindingAt picks one binding of a program at an offset. When several
// sequences share the offset the segment's random source decides.
func (c *MacroMainCraft) bindingAt(programID string, offset int) model.ProgramSequenceBinding {
	bs := c.fab.Library().BindingsAt(programID, offset)
	if len(bs) == 1 {
		return bs[0]
	}
	return bs[c.fab.Rand().IntN(len(bs))]
}

// bindingIsometry is the meme set a macro binding hands to the main choice:
// its program memes plus its own.
func (c *MacroMainCraft) bindingIsometry(b model.ProgramSequenceBinding) isometry.MemeIsometry {
	lib := c.fab.Library()
	iso := isometry.NewMemeIsometry(lib.ProgramMemes(b.ProgramID))
	iso.Add(lib.BindingMemes(b.ID)...)
	return iso
}

// chooseFresh picks the published program of a type whose opening memes
// score highest against the outgoing memes, starting at its first offset.
// Ties go to the lowest program id. The excluded program is only chosen
// when nothing else is available.
func (c *MacroMainCraft) chooseFresh(t model.ProgramType, outgoing isometry.MemeIsometry, exclude string) (model.ProgramSequenceBinding, error) {
	lib := c.fab.Library()
	candidates := lib.PublishedPrograms(t)
	if exclude != "" && len(candidates) > 1 {
		kept := candidates[:0]
		for _, p := range candidates {
			if p.ID != exclude {
				kept = append(kept, p)
			}
		}
		candidates = kept
	}

	var best model.ProgramSequenceBinding
	bestScore, found := 0.0, false
	for _, p := range candidates {
		offsets := lib.BindingOffsets(p.ID)
		if len(offsets) == 0 {
			continue
		}
		opening := c.bindingAt(p.ID, offsets[0])
		memes := append(lib.ProgramMemes(p.ID), lib.BindingMemes(opening.ID)...)
		score := outgoing.Score(memes)
		if !found || score > bestScore {
			best, bestScore, found = opening, score, true
		}
	}
	if !found {
		return best, fmt.Errorf("%w: no published %s program with sequence bindings", fabricator.ErrContentNotFound, t)
	}
	return best, nil
}
