package fabricator

import (
	"slices"

	"github.com/satindergrewal/chaincraft/internal/model"
)

// Retrospective is the read-only view of crafted segments that precede the
// one being fabricated, ascending by offset. Only the past is visible.
type Retrospective struct {
	segments []model.SegmentCraft
}

// NewRetrospective wraps prior crafted segments of one chain.
func NewRetrospective(crafts []model.SegmentCraft) *Retrospective {
	sorted := slices.Clone(crafts)
	slices.SortFunc(sorted, func(a, b model.SegmentCraft) int {
		return a.Segment.Offset - b.Segment.Offset
	})
	return &Retrospective{segments: sorted}
}

// Segments returns the prior segments, oldest first.
func (r *Retrospective) Segments() []model.SegmentCraft {
	if r == nil {
		return nil
	}
	return slices.Clone(r.segments)
}

// Previous returns the segment immediately before the current one.
func (r *Retrospective) Previous() (model.SegmentCraft, bool) {
	if r == nil || len(r.segments) == 0 {
		return model.SegmentCraft{}, false
	}
	return r.segments[len(r.segments)-1], true
}

// PreviousChoice returns the previous segment's choice of a program type.
func (r *Retrospective) PreviousChoice(t model.ProgramType) (model.SegmentChoice, bool) {
	prev, ok := r.Previous()
	if !ok {
		return model.SegmentChoice{}, false
	}
	for _, c := range prev.Choices {
		if c.ProgramType == t {
			return c, true
		}
	}
	return model.SegmentChoice{}, false
}

// PreviousChoices returns the previous segment's choices that pass the filter.
func (r *Retrospective) PreviousChoices(keep func(model.SegmentChoice) bool) []model.SegmentChoice {
	prev, ok := r.Previous()
	if !ok {
		return nil
	}
	var out []model.SegmentChoice
	for _, c := range prev.Choices {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// PreviousPicks returns the picks the previous segment made for one choice.
func (r *Retrospective) PreviousPicks(choiceID string) []model.SegmentChoiceArrangementPick {
	prev, ok := r.Previous()
	if !ok {
		return nil
	}
	arrangements := map[string]bool{}
	for _, a := range prev.Arrangements {
		if a.SegmentChoiceID == choiceID {
			arrangements[a.ID] = true
		}
	}
	var out []model.SegmentChoiceArrangementPick
	for _, p := range prev.Picks {
		if arrangements[p.SegmentChoiceArrangementID] {
			out = append(out, p)
		}
	}
	return out
}

// StickyBun finds the most recent sticky bun recorded for a pattern event.
func (r *Retrospective) StickyBun(eventID string) (model.StickyBun, bool) {
	if r == nil {
		return model.StickyBun{}, false
	}
	for i := len(r.segments) - 1; i >= 0; i-- {
		for _, b := range r.segments[i].StickyBuns {
			if b.EventID == eventID {
				return b, true
			}
		}
	}
	return model.StickyBun{}, false
}
