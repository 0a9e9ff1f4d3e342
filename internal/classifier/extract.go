package classifier

import (
	"regexp"
	"strings"

	"github.com/OPKYEI/FunctionalJobAutomation/internal/domain"
)

var (
	jobIDPattern = regexp.MustCompile(`(?i)\b(?:job|req(?:uisition)?|ref(?:erence)?|position)\s*(?:id|number|no\.?|#)?\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9_-]{2,24})`)

	// "your application to Acme", "your interest in Acme", "applying to Acme"
	companyPhrasePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)your application (?:to|at|with) ([A-Z][\w&.\- ]{1,40}?)[.,!\n]`),
		regexp.MustCompile(`(?i)your interest in (?:joining )?([A-Z][\w&.\- ]{1,40}?)[.,!\n]`),
		regexp.MustCompile(`(?i)(?:applying|application) (?:to|at|with) ([A-Z][\w&.\- ]{1,40}?)[.,!\n]`),
	}

	subjectSeparators = []string{" - ", " | ", " at ", " @ "}
)

// extractReference pulls a job id and a company name out of the message.
// Either field may come back empty; the matcher decides what to do with
// partial references.
func extractReference(m domain.EmailMessage) domain.Reference {
	ref := domain.Reference{}

	text := m.Subject + "\n" + m.BodyText
	if match := jobIDPattern.FindStringSubmatch(text); match != nil {
		ref.JobID = match[1]
	}

	for _, p := range companyPhrasePatterns {
		if match := p.FindStringSubmatch(text + "\n"); match != nil {
			ref.Company = strings.TrimSpace(match[1])
			break
		}
	}
	if ref.Company == "" {
		ref.Company = companyFromSubject(m.Subject)
	}
	if ref.Company == "" && fromATS(strings.ToLower(m.Sender)) {
		ref.Company = cleanSenderName(m.SenderName)
	}
	return ref
}

// companyFromSubject handles the common "Your application - Acme" and
// "Software Engineer at Acme" subject shapes. The company is assumed to
// be the last separated segment.
func companyFromSubject(subject string) string {
	for _, sep := range subjectSeparators {
		idx := strings.LastIndex(subject, sep)
		if idx < 0 {
			continue
		}
		candidate := strings.TrimSpace(subject[idx+len(sep):])
		if candidate == "" || len(candidate) > 60 {
			continue
		}
		if looksLikeStatusPhrase(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

// Subjects like "Acme - Application received" put the status text, not
// the company, after the separator.
func looksLikeStatusPhrase(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range []string{"application", "update", "received", "status", "interview", "offer", "position", "role", "job"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// cleanSenderName strips recruiting-system noise from a display name so
// "Acme Recruiting Team" becomes "Acme".
func cleanSenderName(name string) string {
	name = strings.TrimSpace(name)
	for _, suffix := range []string{"recruiting team", "talent acquisition", "recruiting", "recruitment", "careers", "hiring team", "talent team", "no-reply", "noreply"} {
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, suffix) {
			name = strings.TrimSpace(name[:len(name)-len(suffix)])
		}
	}
	return strings.Trim(name, " -|,")
}
