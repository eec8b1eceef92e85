package notes

import (
	"strings"
	"unicode"
)

// descriptorSynonyms maps spellings of a chord quality onto one canonical
// form. Matching is case-sensitive ("M" is major, "m" is minor) and the
// longest spelling wins.
var descriptorSynonyms = []struct {
	spelling  string
	canonical string
}{
	{"major7", "maj7"},
	{"Major7", "maj7"},
	{"minor", "m"},
	{"Minor", "m"},
	{"major", ""},
	{"Major", ""},
	{"maj7", "maj7"},
	{"Maj7", "maj7"},
	{"MAJ7", "maj7"},
	{"aug", "aug"},
	{"dim", "dim"},
	{"min", "m"},
	{"Min", "m"},
	{"MIN", "m"},
	{"maj", ""},
	{"Maj", ""},
	{"MAJ", ""},
	{"dom", ""},
	{"M7", "maj7"},
	{"Δ7", "maj7"},
	{"mi", "m"},
	{"Δ", "maj7"},
	{"°", "dim"},
	{"+", "aug"},
	{"-", "m"},
	{"M", ""},
}

// NormalizeChord returns a canonical spelling of a chord name: whitespace
// removed, flats written as sharps, quality synonyms folded. "CMadd9" and
// "C add9" both normalize to "Cadd9".
func NormalizeChord(name string) string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	if compact == "" {
		return ""
	}

	chord, bass, slashed := strings.Cut(compact, "/")
	out := normalizeChordBody(chord)
	if slashed {
		out += "/" + normalizeRoot(bass)
	}
	return out
}

// ChordRoot returns the normalized chord without any slash bass note.
func ChordRoot(name string) string {
	chord, _, _ := strings.Cut(NormalizeChord(name), "/")
	return chord
}

// ChordTonic returns the chord's root note in the default octave.
func ChordTonic(name string) (Note, bool) {
	root := ChordRoot(name)
	n := rootLength(root)
	if n == 0 {
		return Note{}, false
	}
	note, err := Parse(root[:n])
	return note, err == nil
}

// ChordsEquivalent reports whether two chord names spell the same chord.
func ChordsEquivalent(a, b string) bool {
	return NormalizeChord(a) == NormalizeChord(b)
}

// MatchChord finds the candidate that plays the target chord: an exact
// (normalized) match first, then for slash chords the candidate matching the
// chord above the slash. Returns the candidate index.
func MatchChord(target string, candidates []string) (int, bool) {
	if matches := MatchChords(target, candidates); len(matches) > 0 {
		return matches[0], true
	}
	return -1, false
}

// MatchChords returns the indexes of every candidate that matches the target
// equally well, in candidate order. Exact matches win over matches on the
// chord above the slash.
func MatchChords(target string, candidates []string) []int {
	want := NormalizeChord(target)
	if want == "" {
		return nil
	}
	if matches := matching(want, candidates); len(matches) > 0 {
		return matches
	}
	if root := ChordRoot(target); root != want {
		return matching(root, candidates)
	}
	return nil
}

func matching(want string, candidates []string) []int {
	var out []int
	for i, c := range candidates {
		if NormalizeChord(c) == want {
			out = append(out, i)
		}
	}
	return out
}

func normalizeChordBody(s string) string {
	root := rootLength(s)
	if root == 0 {
		return foldDescriptor(s)
	}
	return normalizeRoot(s[:root]) + foldDescriptor(s[root:])
}

// rootLength is the number of bytes of the leading note letter and accidentals.
func rootLength(s string) int {
	if s == "" {
		return 0
	}
	if _, ok := naturals[strings.ToUpper(s[:1])[0]]; !ok {
		return 0
	}
	i := 1
	for i < len(s) && (s[i] == '#' || s[i] == 'b') {
		i++
	}
	return i
}

func normalizeRoot(s string) string {
	class, rest, err := parsePitchClass(s)
	if err != nil {
		return s
	}
	return sharpNames[class] + rest
}

func foldDescriptor(s string) string {
	var b strings.Builder
	for len(s) > 0 {
		matched := false
		for _, syn := range descriptorSynonyms {
			if strings.HasPrefix(s, syn.spelling) {
				b.WriteString(syn.canonical)
				s = s[len(syn.spelling):]
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		b.WriteByte(s[0])
		s = s[1:]
	}
	return b.String()
}
