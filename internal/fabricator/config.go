package fabricator

import (
	"fmt"
	"slices"

	"github.com/satindergrewal/chaincraft/internal/model"
)

// Config tunes the craft pipeline. It is passed to every Fabricator at
// construction.
type Config struct {
	DeltaArcEnabled      bool
	DetailPlateauRatio   float64
	PercLoopPlateauRatio float64
	PercLoopLayerMin     int
	PercLoopLayerMax     int
	DensityFloor         float64
	DensityCeiling       float64
	IntroFadeBeats       float64
	InversionTypes       []model.InstrumentType
}

// DefaultConfig returns the stock fabrication settings.
func DefaultConfig() Config {
	return Config{
		DeltaArcEnabled:      true,
		DetailPlateauRatio:   0.38,
		PercLoopPlateauRatio: 0.38,
		PercLoopLayerMin:     1,
		PercLoopLayerMax:     3,
		DensityFloor:         0.1,
		DensityCeiling:       0.9,
		IntroFadeBeats:       4,
		InversionTypes:       []model.InstrumentType{model.InstrumentPad, model.InstrumentStab, model.InstrumentSticky},
	}
}

// SeeksInversions reports whether voicings of this type should be kept compact.
func (c Config) SeeksInversions(t model.InstrumentType) bool {
	return slices.Contains(c.InversionTypes, t)
}

// ClampDensity bounds a density to [DensityFloor, DensityCeiling].
func (c Config) ClampDensity(d float64) float64 {
	return min(max(d, c.DensityFloor), c.DensityCeiling)
}

// Validate rejects settings outside their valid range.
func (c Config) Validate() error {
	switch {
	case c.PercLoopLayerMin < 0:
		return fmt.Errorf("%w: perc loop layer min %d is negative", ErrMalformedInput, c.PercLoopLayerMin)
	case c.PercLoopLayerMax < c.PercLoopLayerMin:
		return fmt.Errorf("%w: perc loop layer max %d is below min %d", ErrMalformedInput, c.PercLoopLayerMax, c.PercLoopLayerMin)
	case c.DensityFloor < 0 || c.DensityFloor > c.DensityCeiling || c.DensityCeiling > 1:
		return fmt.Errorf("%w: density bounds [%v, %v] outside [0, 1]", ErrMalformedInput, c.DensityFloor, c.DensityCeiling)
	case !unitInterval(c.DetailPlateauRatio):
		return fmt.Errorf("%w: detail plateau ratio %v outside [0, 1]", ErrMalformedInput, c.DetailPlateauRatio)
	case !unitInterval(c.PercLoopPlateauRatio):
		return fmt.Errorf("%w: perc loop plateau ratio %v outside [0, 1]", ErrMalformedInput, c.PercLoopPlateauRatio)
	case c.IntroFadeBeats < 0:
		return fmt.Errorf("%w: intro fade %v beats is negative", ErrMalformedInput, c.IntroFadeBeats)
	}
	return nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
