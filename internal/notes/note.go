// Package notes resolves abstract pattern notes and chord names into
// concrete pitches.
package notes

import (
	"fmt"
	"strconv"
	"strings"
)

// AtonalName is the tone name of a percussive (unpitched) note.
const AtonalName = "X"

// defaultOctave is assumed when a note name carries no octave.
const defaultOctave = 4

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var naturals = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// Note is a pitch on the MIDI scale (C4 = 60), or an atonal hit.
type Note struct {
	Pitch  int
	Atonal bool
}

// Atonal returns the unpitched note.
func Atonal() Note {
	return Note{Atonal: true}
}

// Parse reads names like "C4", "F#2", "Bb-1" or "X". A missing octave
// defaults to 4.
func Parse(name string) (Note, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return Note{}, fmt.Errorf("empty note name")
	}
	if strings.EqualFold(s, AtonalName) {
		return Atonal(), nil
	}
	class, rest, err := parsePitchClass(s)
	if err != nil {
		return Note{}, err
	}
	octave := defaultOctave
	if rest != "" {
		octave, err = strconv.Atoi(rest)
		if err != nil {
			return Note{}, fmt.Errorf("invalid octave in note %q", name)
		}
	}
	return Note{Pitch: (octave+1)*12 + class}, nil
}

// parsePitchClass reads a letter plus accidentals and returns the pitch class
// and the unread remainder.
func parsePitchClass(s string) (int, string, error) {
	class, ok := naturals[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, "", fmt.Errorf("invalid note name %q", s)
	}
	i := 1
	for i < len(s) {
		switch s[i] {
		case '#':
			class++
		case 'b':
			class--
		default:
			return (class + 12) % 12, s[i:], nil
		}
		i++
	}
	return (class + 12) % 12, "", nil
}

// ParseList reads a comma-separated list of note names, skipping blanks and
// anything unparseable.
func ParseList(csv string) []Note {
	var out []Note
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		n, err := Parse(part)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// JoinList prints notes as a comma-separated list.
func JoinList(ns []Note) string {
	names := make([]string, len(ns))
	for i, n := range ns {
		names[i] = n.String()
	}
	return strings.Join(names, ", ")
}

// PitchClass is the pitch modulo 12 (C = 0).
func (n Note) PitchClass() int {
	return ((n.Pitch % 12) + 12) % 12
}

// Octave is the scientific octave number (C4 = 60).
func (n Note) Octave() int {
	return floorDiv(n.Pitch, 12) - 1
}

// MIDI clamps the pitch into the 0-127 key range.
func (n Note) MIDI() uint8 {
	return uint8(min(max(n.Pitch, 0), 127))
}

// Transpose shifts a tonal note by semitones.
func (n Note) Transpose(semitones int) Note {
	if n.Atonal {
		return n
	}
	return Note{Pitch: n.Pitch + semitones}
}

func (n Note) String() string {
	if n.Atonal {
		return AtonalName
	}
	return sharpNames[n.PitchClass()] + strconv.Itoa(n.Octave())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// classDistance is the shortest way around the pitch-class circle.
func classDistance(a, b int) int {
	d := abs(a - b)
	return min(d, 12-d)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
