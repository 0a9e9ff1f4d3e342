package classifier

import (
	"strings"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

// Rule is one entry in the priority-ordered classification table.
// Rules are evaluated top to bottom; the first satisfied rule wins, so
// ordering is part of the contract (rejections before acknowledgements:
// a rejection email usually opens by thanking the candidate).
type Rule struct {
	Name       string
	Status     domain.Status
	Confidence domain.Confidence
	Match      func(subject, body, sender string) bool
}

// Phrase lists are matched against lowercased subject+body text.
// Rejection and offer phrasing follows what applicant-tracking systems
// actually send.
var (
	rejectionPhrases = []string{
		"regret to inform",
		"not selected",
		"not been selected",
		"pursuing other candidates",
		"decided to move forward with other",
		"not moving forward",
		"unable to employ",
		"unable to sponsor",
		"cannot sponsor",
		"no longer under consideration",
		"position has been filled",
	}

	softRejectionPhrases = []string{
		"unfortunately",
		"we encourage you to apply to future",
		"keep your resume on file",
	}

	offerPhrases = []string{
		"pleased to offer",
		"excited to offer",
		"offer of employment",
		"your offer letter",
		"extend an offer",
	}

	interviewPhrases = []string{
		"schedule your interview",
		"schedule an interview",
		"invite you to interview",
		"interview invitation",
		"book a time",
		"availability for an interview",
		"move forward with an interview",
	}

	viewedPhrases = []string{
		"your application was viewed",
		"viewed your application",
		"reviewed your application",
		"your application has been reviewed",
	}

	acknowledgedPhrases = []string{
		"thank you for applying",
		"thanks for applying",
		"application received",
		"we have received your application",
		"we received your application",
		"your application has been received",
		"application was sent",
		"successfully submitted",
	}

	interestPhrases = []string{
		"thank you for your interest",
		"thanks for your interest",
	}

	// Domains of applicant-tracking systems. Mail from these domains is
	// about an application even when the wording is vague.
	atsDomains = []string{
		"applytojob.com",
		"greenhouse.io",
		"greenhouse-mail.io",
		"lever.co",
		"hire.lever.co",
		"myworkday.com",
		"myworkdayjobs.com",
		"smartrecruiters.com",
		"ashbyhq.com",
		"icims.com",
		"jobvite.com",
		"bamboohr.com",
		"linkedin.com",
		"indeed.com",
	}
)

// DefaultRules returns the standard rule table in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "rejection-explicit",
			Status:     domain.StatusRejected,
			Confidence: domain.ConfidenceExact,
			Match:      containsAny(rejectionPhrases),
		},
		{
			Name:       "offer",
			Status:     domain.StatusOffer,
			Confidence: domain.ConfidenceExact,
			Match:      containsAny(offerPhrases),
		},
		{
			Name:       "interview",
			Status:     domain.StatusInterviewScheduled,
			Confidence: domain.ConfidenceExact,
			Match:      containsAny(interviewPhrases),
		},
		{
			Name:       "viewed",
			Status:     domain.StatusViewed,
			Confidence: domain.ConfidenceExact,
			Match:      containsAny(viewedPhrases),
		},
		{
			Name:       "acknowledged",
			Status:     domain.StatusAcknowledged,
			Confidence: domain.ConfidenceExact,
			Match:      containsAny(acknowledgedPhrases),
		},
		{
			// "Unfortunately ..." without an explicit rejection phrase.
			// Only trusted when the sender is a known ATS.
			Name:       "rejection-soft",
			Status:     domain.StatusRejected,
			Confidence: domain.ConfidenceHeuristic,
			Match: func(subject, body, sender string) bool {
				return fromATS(sender) && containsAny(softRejectionPhrases)(subject, body, sender)
			},
		},
		{
			Name:       "acknowledged-interest",
			Status:     domain.StatusAcknowledged,
			Confidence: domain.ConfidenceHeuristic,
			Match:      containsAny(interestPhrases),
		},
	}
}

func containsAny(phrases []string) func(subject, body, sender string) bool {
	return func(subject, body, sender string) bool {
		text := subject + " " + body
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}
}

func fromATS(sender string) bool {
	for _, d := range atsDomains {
		if strings.HasSuffix(sender, "@"+d) || strings.HasSuffix(sender, "."+d) {
			return true
		}
	}
	return false
}
