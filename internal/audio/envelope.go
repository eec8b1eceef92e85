package audio

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// Envelope ramps a layer up over Fade beats from Start and down over Fade
// beats towards End. A side without a bound does not ramp. The beat at Start
// (or End) counts as the first (or last) beat of its ramp.
type Envelope struct {
	Start    float64
	End      float64
	HasStart bool
	HasEnd   bool
	Fade     float64
}

// Gain returns the envelope level at a beat position, in [0,1].
func (e Envelope) Gain(position float64) float64 {
	if e.Fade <= 0 {
		return 1
	}
	g := 1.0
	if e.HasStart {
		g *= Smoothstep((position - e.Start + 1) / e.Fade)
	}
	if e.HasEnd {
		g *= Smoothstep((e.End - position + 1) / e.Fade)
	}
	return g
}
