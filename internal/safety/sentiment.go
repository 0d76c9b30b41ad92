package safety

import "strings"

// polarity is a coarse lexicon-based sentiment class.
type polarity int

const (
	sentimentNegative polarity = iota - 1
	sentimentNeutral
	sentimentPositive
)

// classifySentiment counts lexicon hits in text. A text is negative when
// negative words outnumber positive words by more than one, positive by
// the symmetric rule, otherwise neutral.
func classifySentiment(cfg *RuleConfig, text string) polarity {
	neg, pos := 0, 0
	for _, word := range tokenize(text) {
		if _, ok := cfg.NegativeWords[word]; ok {
			neg++
		}
		if _, ok := cfg.PositiveWords[word]; ok {
			pos++
		}
	}
	switch {
	case neg > pos+1:
		return sentimentNegative
	case pos > neg+1:
		return sentimentPositive
	default:
		return sentimentNeutral
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\''
}
