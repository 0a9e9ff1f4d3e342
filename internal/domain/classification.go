package domain

// Confidence tier of a classification: exact keyword rules vs heuristic
// phrase matches. Heuristic results below the configured threshold are
// demoted to no-match by the classifier.
type Confidence string

const (
	ConfidenceExact     Confidence = "exact"
	ConfidenceHeuristic Confidence = "heuristic"
)

// Score maps the tier to the numeric scale used by MIN_CONFIDENCE.
func (c Confidence) Score() float64 {
	switch c {
	case ConfidenceExact:
		return 1.0
	case ConfidenceHeuristic:
		return 0.6
	default:
		return 0
	}
}

// Reference holds the fragments extracted from an email that the matcher
// uses to resolve a ledger record. All fields may be empty.
type Reference struct {
	JobID   string
	Company string
}

// Classification is the result of running the rule table over one email.
// Transient: recomputed each cycle, never persisted.
type Classification struct {
	Status     Status
	Reference  Reference
	Confidence Confidence
	Rule       string
}
