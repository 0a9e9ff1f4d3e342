// Package matcher resolves a classified email to an existing application
// record. Matching is deterministic and never guesses: when more than one
// record fits equally well, the outcome is Ambiguous and nothing is
// applied automatically.
package matcher

import (
	"strings"
	"time"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeUnmatched Outcome = "unmatched"
)

// Result carries the resolution of one classified email. Application is
// set only for OutcomeMatched. Candidates lists the job ids that tied
// when the outcome is Ambiguous.
type Result struct {
	Outcome     Outcome
	Application *domain.Application
	Candidates  []string
}

// Match resolves a classification against a snapshot of the ledger.
//
// Strategy, in order:
//  1. An extracted job reference equal to a known job id wins outright
//     (terminal records included, so a late rejection for a closed-out
//     record still resolves).
//  2. A known job id appearing in the subject or body as a whole token.
//     More than one id mentioned is Ambiguous, not first-wins.
//  3. Normalized company-name equality among non-terminal records. When
//     several remain, a title mentioned in the message narrows them, then
//     the record whose applied_at is closest to the email's received_at.
//  4. Candidates that tie after all narrowing come back Ambiguous.
//
// Unmatched means no record cleared any of the criteria.
func Match(apps []domain.Application, cls domain.Classification, m domain.EmailMessage) Result {
	if app := matchExactJobID(apps, cls.Reference.JobID); app != nil {
		return Result{Outcome: OutcomeMatched, Application: app}
	}

	if hits := matchMentionedJobID(apps, m); len(hits) > 0 {
		if len(hits) == 1 {
			return Result{Outcome: OutcomeMatched, Application: hits[0]}
		}
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.JobID
		}
		return Result{Outcome: OutcomeAmbiguous, Candidates: ids}
	}

	candidates := matchByCompany(apps, cls.Reference.Company)
	if len(candidates) == 0 {
		return Result{Outcome: OutcomeUnmatched}
	}
	if len(candidates) > 1 {
		candidates = narrowByTitle(candidates, m)
	}
	if len(candidates) > 1 {
		candidates = narrowByProximity(candidates, m.ReceivedAt)
	}
	if len(candidates) == 1 {
		return Result{Outcome: OutcomeMatched, Application: candidates[0]}
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.JobID
	}
	return Result{Outcome: OutcomeAmbiguous, Candidates: ids}
}

func matchExactJobID(apps []domain.Application, refID string) *domain.Application {
	refID = strings.ToLower(strings.TrimSpace(refID))
	if refID == "" {
		return nil
	}
	for i := range apps {
		if strings.ToLower(apps[i].JobID) == refID {
			return &apps[i]
		}
	}
	return nil
}

func matchMentionedJobID(apps []domain.Application, m domain.EmailMessage) []*domain.Application {
	text := strings.ToLower(m.Subject + " " + m.BodyText)
	var out []*domain.Application
	for i := range apps {
		id := strings.ToLower(apps[i].JobID)
		if id == "" {
			continue
		}
		if containsToken(text, id) {
			out = append(out, &apps[i])
		}
	}
	return out
}

// containsToken reports whether id occurs in text bounded by
// non-alphanumeric characters on both sides, so id "4" never matches
// inside a mention of job "42".
func containsToken(text, id string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], id)
		if i < 0 {
			return false
		}
		i += from
		before := i == 0 || !isAlnum(text[i-1])
		after := i+len(id) == len(text) || !isAlnum(text[i+len(id)])
		if before && after {
			return true
		}
		from = i + 1
	}
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func matchByCompany(apps []domain.Application, company string) []*domain.Application {
	norm := NormalizeCompany(company)
	if norm == "" {
		return nil
	}
	var out []*domain.Application
	for i := range apps {
		if apps[i].CurrentStatus.Terminal() {
			continue
		}
		if NormalizeCompany(apps[i].Company) == norm {
			out = append(out, &apps[i])
		}
	}
	return out
}

func narrowByTitle(candidates []*domain.Application, m domain.EmailMessage) []*domain.Application {
	text := strings.ToLower(m.Subject + " " + m.BodyText)
	var out []*domain.Application
	for _, c := range candidates {
		title := strings.ToLower(strings.TrimSpace(c.Title))
		if title != "" && strings.Contains(text, title) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

// narrowByProximity keeps only the candidates whose applied_at is
// closest to the email's received time. Equal distances all survive, so
// true ties still surface as Ambiguous.
func narrowByProximity(candidates []*domain.Application, received time.Time) []*domain.Application {
	var out []*domain.Application
	best := int64(-1)
	for _, c := range candidates {
		d := received.Sub(c.AppliedAt)
		if d < 0 {
			d = -d
		}
		ns := d.Nanoseconds()
		switch {
		case best < 0 || ns < best:
			best = ns
			out = out[:0]
			out = append(out, c)
		case ns == best:
			out = append(out, c)
		}
	}
	return out
}
