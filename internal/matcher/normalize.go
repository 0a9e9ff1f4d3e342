package matcher

import "strings"

// Corporate suffixes stripped before comparison so "Acme, Inc." and
// "Acme" refer to the same company.
var companySuffixes = []string{
	"incorporated",
	"corporation",
	"corp",
	"inc",
	"llc",
	"llp",
	"ltd",
	"limited",
	"company",
	"co",
	"gmbh",
	"plc",
}

// NormalizeCompany lowercases a company name, strips a trailing
// corporate suffix, and removes separator characters. The result is a
// comparison key, not a display value.
func NormalizeCompany(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	s = strings.TrimRight(s, ".")

	words := strings.Fields(strings.NewReplacer(",", " ", ".", " ").Replace(s))
	if len(words) > 1 {
		last := words[len(words)-1]
		for _, suffix := range companySuffixes {
			if last == suffix {
				words = words[:len(words)-1]
				break
			}
		}
	}
	s = strings.Join(words, "")

	return strings.NewReplacer("-", "", "_", "", "&", "and", "'", "").Replace(s)
}
