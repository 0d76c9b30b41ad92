package safety

import (
	"strings"
	"unicode/utf8"
)

// Detector runs the rule-based risk checks over one user/assistant text
// pair. Detection is pure and total: any input, including the empty
// string, yields a deterministic result and never an error.
type Detector struct {
	cfg *RuleConfig
}

// NewDetector creates a detector. A nil config falls back to the
// default rule tables.
func NewDetector(cfg *RuleConfig) *Detector {
	if cfg == nil {
		cfg = DefaultRuleConfig()
	}
	return &Detector{cfg: cfg}
}

// Detect scores a user/assistant pair against the rule tables and
// returns the summed weights plus the set of distinct trigger tags.
func (d *Detector) Detect(userText, assistantText string) RuleResult {
	var result RuleResult
	userLower := strings.ToLower(userText)
	assistantLower := strings.ToLower(assistantText)

	// Crisis keywords are only checked on the user side.
	for _, phrase := range d.cfg.CrisisPhrases {
		if strings.Contains(userLower, phrase) {
			result.add(d.cfg.CrisisWeight, TriggerCrisisKeyword)
			break
		}
	}

	for _, re := range d.cfg.InjectionPatterns {
		if re.MatchString(userText) {
			result.add(d.cfg.InjectionWeight, TriggerPromptInjectionAttempt)
			break
		}
	}

	for _, re := range d.cfg.AdvicePatterns {
		if re.MatchString(assistantText) {
			result.add(d.cfg.AdviceWeight, TriggerImperativeAdvice)
			break
		}
	}

	for _, re := range d.cfg.OverconfidencePatterns {
		if re.MatchString(assistantText) {
			result.add(d.cfg.OverconfidenceWeight, TriggerOverconfidence)
			break
		}
	}

	// Therapeutic terminology without a disclaimer stacks the advice
	// weight on top of the imperative-advice check.
	if containsAny(assistantLower, d.cfg.MedicalTerms) && !containsAny(assistantLower, d.cfg.DisclaimerPhrases) {
		result.add(d.cfg.AdviceWeight, TriggerMissingDisclaimer)
	}

	// Sentiment mismatch: a clearly negative user message answered with
	// a positive reply. Short user messages are skipped; lexicon
	// sentiment is too unreliable there. The gate counts runes, so
	// multi-byte text is measured the same as ASCII.
	if utf8.RuneCountInString(userText) > d.cfg.SentimentLengthGate {
		userMood := classifySentiment(d.cfg, userText)
		assistantMood := classifySentiment(d.cfg, assistantText)
		if userMood == sentimentNegative && assistantMood == sentimentPositive {
			result.add(d.cfg.MismatchWeight, TriggerSentimentMismatch)
		}
	}

	return result
}

func (r *RuleResult) add(weight int, trigger string) {
	r.Score += weight
	r.Triggers = append(r.Triggers, trigger)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
