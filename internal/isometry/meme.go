package isometry

import "strings"

// NegationPenalty is the score contributed by a tag that its negation repels.
const NegationPenalty = -20.0

// MemeIsometry scores candidate meme sets against the source memes.
type MemeIsometry struct {
	Isometry
}

// NewMemeIsometry builds a MemeIsometry of the given memes.
func NewMemeIsometry(memes []string) MemeIsometry {
	return MemeIsometry{Isometry: New(memes)}
}

// Score sums, over every candidate meme, +1 if the source has it and
// NegationPenalty if the source negates it (or it negates a source meme).
func (m MemeIsometry) Score(candidates []string) float64 {
	var score float64
	for _, c := range New(candidates).sources {
		if m.Has(c) {
			score++
		}
		if m.Has(Negate(c)) {
			score += NegationPenalty
		}
	}
	return score
}

// IsAllowed reports whether no candidate meme conflicts with a source meme.
func (m MemeIsometry) IsAllowed(candidates []string) bool {
	for _, c := range candidates {
		if m.Has(Negate(strings.TrimSpace(c))) {
			return false
		}
	}
	return true
}

// Negate flips the negation marker on a meme: "X" -> "!X", "!X" -> "X".
func Negate(meme string) string {
	if strings.HasPrefix(meme, Negation) {
		return strings.TrimPrefix(meme, Negation)
	}
	return Negation + meme
}
