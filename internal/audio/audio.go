// Package audio shapes the loudness of arranged picks: volume scaling and
// smoothstep envelopes for layers entering or leaving mid-segment.
package audio

// Unity is the gain of a volume left unset in the content library.
const Unity = 1.0

// Volume returns v, or Unity when v is zero or negative.
func Volume(v float64) float64 {
	if v <= 0 {
		return Unity
	}
	return v
}

// Amplitude scales an event velocity by every volume in its signal chain
// and clamps the result to [0,1].
func Amplitude(velocity float64, volumes ...float64) float64 {
	a := velocity
	for _, v := range volumes {
		a *= Volume(v)
	}
	return min(max(a, 0), 1)
}
