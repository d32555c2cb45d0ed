package analyzer

import "strings"

// stem applies a small set of English suffix-stripping rules. It is not a
// full Porter implementation; it collapses the common inflections (plurals,
// -ing, -ed, -ly, -ment, -ness, -tion) that matter for recall.
func stem(word string) string {
	if len(word) < 4 {
		return word
	}

	// Plurals first.
	switch {
	case strings.HasSuffix(word, "sses"):
		word = word[:len(word)-2]
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		word = word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ss"):
		// keep
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "us"):
		word = word[:len(word)-1]
	}

	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) && len(word)-len(rule.suffix) >= rule.minStem {
			word = word[:len(word)-len(rule.suffix)] + rule.replace
			break
		}
	}

	// Undouble trailing consonants left by -ing/-ed stripping (runn -> run).
	if n := len(word); n >= 4 && word[n-1] == word[n-2] && !isVowel(word[n-1]) {
		switch word[n-1] {
		case 'l', 's', 'z':
			// keep (fall, miss, buzz)
		default:
			word = word[:n-1]
		}
	}

	return word
}

var suffixRules = []struct {
	suffix  string
	replace string
	minStem int
}{
	{"ization", "ize", 3},
	{"fulness", "ful", 3},
	{"ousness", "ous", 3},
	{"iveness", "ive", 3},
	{"tional", "tion", 2},
	{"biliti", "ble", 3},
	{"ation", "ate", 3},
	{"ement", "", 4},
	{"ments", "ment", 3},
	{"ingly", "", 3},
	{"iness", "y", 3},
	{"ness", "", 3},
	{"tion", "t", 3},
	{"ing", "", 3},
	{"edly", "", 3},
	{"ed", "", 3},
	{"ly", "", 3},
	{"er", "", 4},
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
