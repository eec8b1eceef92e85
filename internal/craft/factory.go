package craft

import (
	"fmt"
	"log"

	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"
)

// Stage is one step of the craft pipeline.
type Stage interface {
	Do() error
}

// Factory builds the craft stages for a fabricator.
type Factory struct{}

// MacroMain returns the macro/main stage.
func (Factory) MacroMain(fab *fabricator.Fabricator) Stage { return NewMacroMainCraft(fab) }

// Detail returns the detail stage.
func (Factory) Detail(fab *fabricator.Fabricator) Stage { return NewDetailCraft(fab) }

// PercLoop returns the percussion loop stage.
func (Factory) PercLoop(fab *fabricator.Fabricator) Stage { return NewPercLoopCraft(fab) }

// Stages returns the pipeline in execution order.
func (f Factory) Stages(fab *fabricator.Fabricator) []Stage {
	return []Stage{f.MacroMain(fab), f.Detail(fab), f.PercLoop(fab)}
}

// Run crafts the fabricator's segment through every stage in order, then
// fixes its duration and marks it Crafted. Recoverable stage failures are
// logged and the stage is skipped; any other failure abandons the segment.
func Run(fab *fabricator.Fabricator) (model.SegmentCraft, error) {
	var f Factory
	for _, stage := range f.Stages(fab) {
		if err := stage.Do(); err != nil {
			if fabricator.IsFatal(err) {
				return model.SegmentCraft{}, fmt.Errorf("craft segment %d: %w", fab.Segment().Offset, err)
			}
			log.Printf("Segment %d: %v", fab.Segment().Offset, err)
		}
	}

	seg := fab.Segment()
	duration, err := fab.SecondsAtPosition(float64(seg.Total))
	if err != nil {
		return model.SegmentCraft{}, fmt.Errorf("craft segment %d: %w", seg.Offset, err)
	}
	seg.DurationSeconds = duration
	if err := seg.Transition(model.SegmentCrafted); err != nil {
		return model.SegmentCraft{}, fmt.Errorf("%w: %w", fabricator.ErrMalformedInput, err)
	}
	if err := fab.SetSegment(seg); err != nil {
		return model.SegmentCraft{}, err
	}
	return fab.Result(), nil
}
