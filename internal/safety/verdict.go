package safety

// RiskLevel classifies how risky an assistant reply is.
type RiskLevel string

const (
	RiskInfo   RiskLevel = "info"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel validates a risk level string (e.g. from critic output).
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(s) {
	case RiskInfo, RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s), true
	}
	return "", false
}

// Trigger tags emitted by the rule-based detector and the fusion engine.
const (
	TriggerCrisisKeyword             = "crisis_keyword"
	TriggerPromptInjectionAttempt    = "prompt_injection_attempt"
	TriggerImperativeAdvice          = "imperative_advice"
	TriggerOverconfidence            = "overconfidence"
	TriggerMissingDisclaimer         = "missing_disclaimer"
	TriggerSentimentMismatch         = "sentiment_mismatch"
	TriggerPromptInjectionSuccessful = "prompt_injection_successful"
	TriggerPromptInjectionResisted   = "prompt_injection_resisted"
)

// Issue tags the critic adapter adds on degraded evaluations.
const (
	IssueCriticError      = "safety_critic_error"
	IssueCriticUnparsable = "safety_critic_unparsable"
)

// RuleResult is the output of the rule-based detector.
type RuleResult struct {
	Score    int
	Triggers []string
}

// CriticVerdict is the normalized judgment from the external critic.
type CriticVerdict struct {
	Issues                    []string
	RiskLevel                 RiskLevel
	Explanation               string
	PromptInjectionDetected   bool
	PromptInjectionSuccessful bool
}

// RiskVerdict is the fused verdict for one assistant reply.
// It is computed fresh per message and immutable once returned.
type RiskVerdict struct {
	RiskLevel                 RiskLevel
	RiskScore                 int
	RuleTriggers              []string
	CriticIssues              []string
	Explanation               string
	Flagged                   bool
	PromptInjectionDetected   bool
	PromptInjectionSuccessful bool
}
