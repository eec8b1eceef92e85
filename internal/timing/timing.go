// Package timing maps beat positions to elapsed seconds while the tempo
// ramps from one value to another across a segment.
package timing

import "fmt"

// Resolution is the number of integration steps across the whole segment.
const Resolution = 1024

// TimeComputer converts beat positions to seconds under a linear tempo ramp.
// Seconds-per-beat is interpolated linearly from the start tempo to the end
// tempo and integrated over Resolution steps; positions between steps are
// interpolated, and positions outside [0,total] extrapolate at the boundary
// rate.
type TimeComputer struct {
	total      float64
	startTempo float64
	endTempo   float64
	step       float64
	cumulative []float64 // seconds at each step boundary
}

// NewTimeComputer validates its inputs and precomputes the step table.
func NewTimeComputer(totalBeats, startTempo, endTempo float64) (*TimeComputer, error) {
	if totalBeats <= 0 {
		return nil, fmt.Errorf("total beats must be positive, got %v", totalBeats)
	}
	if startTempo <= 0 || endTempo <= 0 {
		return nil, fmt.Errorf("tempo must be positive, got %v -> %v", startTempo, endTempo)
	}
	tc := &TimeComputer{
		total:      totalBeats,
		startTempo: startTempo,
		endTempo:   endTempo,
		step:       totalBeats / Resolution,
		cumulative: make([]float64, Resolution+1),
	}
	for i := 1; i <= Resolution; i++ {
		tc.cumulative[i] = tc.cumulative[i-1] + tc.step*tc.secondsPerBeat(float64(i-1)*tc.step)
	}
	return tc, nil
}

// secondsPerBeat is the instantaneous beat length at a position in [0,total].
func (tc *TimeComputer) secondsPerBeat(position float64) float64 {
	from := 60 / tc.startTempo
	to := 60 / tc.endTempo
	return from + (to-from)*position/tc.total
}

// SecondsAtPosition returns the seconds elapsed from beat 0 to the position.
func (tc *TimeComputer) SecondsAtPosition(position float64) float64 {
	if tc.startTempo == tc.endTempo {
		return position * 60 / tc.startTempo
	}
	if position <= 0 {
		return position * tc.secondsPerBeat(0)
	}
	if position >= tc.total {
		return tc.cumulative[Resolution] + (position-tc.total)*tc.secondsPerBeat(tc.total)
	}
	i := int(position / tc.step)
	if i >= Resolution {
		i = Resolution - 1
	}
	return tc.cumulative[i] + (position-float64(i)*tc.step)*tc.secondsPerBeat(float64(i)*tc.step)
}

// TotalSeconds is the length of the whole segment.
func (tc *TimeComputer) TotalSeconds() float64 {
	return tc.SecondsAtPosition(tc.total)
}
