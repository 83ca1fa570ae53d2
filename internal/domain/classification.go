package domain

// Classification buckets a sender score.
type Classification string

const (
	Newsletter       Classification = "newsletter"
	LikelyNewsletter Classification = "likely_newsletter"
	Uncertain        Classification = "uncertain"
	Personal         Classification = "personal"
)

// Rank orders classifications for display: newsletters first. Anything not
// surfaced by ranking sorts last.
func (c Classification) Rank() int {
	switch c {
	case Newsletter:
		return 0
	case LikelyNewsletter:
		return 1
	case Uncertain:
		return 2
	}
	return 3
}
