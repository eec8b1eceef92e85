package isometry

import "strings"

// digraphs collapse to a single consonant before vowels are dropped.
var digraphs = strings.NewReplacer(
	"CK", "K",
	"PH", "F",
	"SH", "X",
	"CH", "X",
	"TH", "0",
	"QU", "K",
)

// letters maps the remaining hard/soft variants onto one consonant.
var letters = map[rune]rune{
	'C': 'K',
	'Q': 'K',
	'Z': 'S',
}

// NameIsometry matches names by a coarse consonant skeleton, so "Kick",
// "kik" and "KICK 2" all land on the same stem "KK".
type NameIsometry struct {
	Isometry
	stems []string
}

// NewNameIsometry builds a NameIsometry of the given names.
func NewNameIsometry(names []string) NameIsometry {
	iso := NameIsometry{Isometry: New(names)}
	for _, s := range iso.sources {
		iso.stems = append(iso.stems, Stem(s))
	}
	return iso
}

// Stems returns the phonetic stems of the sources.
func (n NameIsometry) Stems() []string {
	out := make([]string, len(n.stems))
	copy(out, n.stems)
	return out
}

// Score counts candidate names whose stem matches a source stem.
func (n NameIsometry) Score(candidates []string) float64 {
	var score float64
	for _, c := range candidates {
		stem := Stem(c)
		for _, s := range n.stems {
			if s == stem {
				score++
				break
			}
		}
	}
	return score
}

// Similarity is the fraction of the candidate's stem that shares a common
// prefix with the closest source stem, in [0,1].
func (n NameIsometry) Similarity(candidate string) float64 {
	stem := Stem(candidate)
	if stem == "" {
		return 0
	}
	var best float64
	for _, s := range n.stems {
		common := 0
		for common < len(s) && common < len(stem) && s[common] == stem[common] {
			common++
		}
		longest := max(len(s), len(stem))
		if v := float64(common) / float64(longest); v > best {
			best = v
		}
	}
	return best
}

// Stem reduces a name to its consonant skeleton: upper-cased, digraphs
// folded, doubled letters collapsed, vowels and non-letters dropped.
func Stem(name string) string {
	upper := digraphs.Replace(strings.ToUpper(strings.TrimSpace(name)))

	var b strings.Builder
	var prev rune
	for _, r := range upper {
		if r < 'A' || r > 'Z' {
			if r != '0' {
				prev = 0
				continue
			}
		}
		if m, ok := letters[r]; ok {
			r = m
		}
		if r == prev {
			continue
		}
		prev = r
		switch r {
		case 'A', 'E', 'I', 'O', 'U', 'Y':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
