package fabricator

import (
	"github.com/satindergrewal/chaincraft/internal/content"
	"github.com/satindergrewal/chaincraft/internal/model"
)

// Factory builds fabricators that share one library and configuration.
type Factory struct {
	Library *content.Library
	Config  Config
}

// Fabricate returns a fresh fabricator for the segment.
func (fac Factory) Fabricate(segment model.Segment, retro *Retrospective) (*Fabricator, error) {
	return New(fac.Library, retro, segment, fac.Config)
}
