// Package classifier decides what, if anything, a mailbox message says
// about a job application. Classification is a pure function of the
// message: the same input always yields the same output.
package classifier

import (
	"strings"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

// Classifier applies an ordered rule table to inbound messages.
type Classifier struct {
	rules         []Rule
	minConfidence float64
}

// New builds a Classifier with the default rule table. Messages whose
// matched rule scores below minConfidence are reported as not relevant.
func New(minConfidence float64) *Classifier {
	return &Classifier{
		rules:         DefaultRules(),
		minConfidence: minConfidence,
	}
}

// WithRules replaces the rule table. Used by tests.
func (c *Classifier) WithRules(rules []Rule) *Classifier {
	c.rules = rules
	return c
}

// Classify inspects a message and returns the status it implies.
// The second return is false when the message is not recognizably
// about a job application, or when the only matching rule falls below
// the confidence floor.
func (c *Classifier) Classify(m domain.EmailMessage) (domain.Classification, bool) {
	subject := strings.ToLower(m.Subject)
	body := strings.ToLower(m.BodyText)
	sender := strings.ToLower(m.Sender)

	for _, rule := range c.rules {
		if !rule.Match(subject, body, sender) {
			continue
		}
		if rule.Confidence.Score() < c.minConfidence {
			return domain.Classification{}, false
		}
		return domain.Classification{
			Status:     rule.Status,
			Reference:  extractReference(m),
			Confidence: rule.Confidence,
			Rule:       rule.Name,
		}, true
	}
	return domain.Classification{}, false
}
