package retrieval

import "regexp"

// ukviAcronyms is the fixed UKVI acronym dictionary from spec §4.J.1.
var ukviAcronyms = map[string]string{
	"BNO":  "British National (Overseas)",
	"ILR":  "Indefinite Leave to Remain",
	"EUSS": "EU Settlement Scheme",
	"CoS":  "Certificate of Sponsorship",
	"PBS":  "Points-Based System",
	"UKVI": "UK Visas and Immigration",
	"HO":   "Home Office",
	"CTA":  "Common Travel Area",
	"BRP":  "Biometric Residence Permit",
	"EEA":  "European Economic Area",
}

// acronymPatterns is built once: a whole-word, case-insensitive matcher
// per acronym.
var acronymPatterns = buildAcronymPatterns()

type acronymPattern struct {
	re         *regexp.Regexp
	expansion  string
}

func buildAcronymPatterns() []acronymPattern {
	patterns := make([]acronymPattern, 0, len(ukviAcronyms))
	for acronym, expansion := range ukviAcronyms {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(acronym) + `\b`)
		patterns = append(patterns, acronymPattern{re: re, expansion: expansion})
	}
	return patterns
}

// ExpandAcronyms performs whole-word, case-insensitive replacement of
// every UKVI acronym found in query with its expansion, returning both
// the expanded and original query per spec §4.J.1.
func ExpandAcronyms(query string) (expanded, original string) {
	original = query
	expanded = query
	for _, p := range acronymPatterns {
		expanded = p.re.ReplaceAllString(expanded, p.expansion)
	}
	return expanded, original
}
