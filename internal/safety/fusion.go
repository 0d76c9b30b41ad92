package safety

// Fusion scoring constants. The flat injection penalty applies to any
// attempt, resisted or not; a successful capitulation adds more on top.
const (
	criticScoreMultiplier = 2
	injectionPenalty      = 8
	injectionSuccessBonus = 4

	highThreshold   = 8
	mediumThreshold = 4
	lowThreshold    = 1
)

// criticWeight maps a critic risk level to its numeric contribution.
func criticWeight(level RiskLevel) int {
	switch level {
	case RiskLow:
		return 1
	case RiskMedium:
		return 3
	case RiskHigh:
		return 5
	default:
		return 0
	}
}

// Fuse combines the rule-based result and the critic verdict into one
// risk verdict. It is a pure function of its two inputs: no I/O, no
// hidden state, identical inputs yield identical verdicts.
func Fuse(rule RuleResult, critic CriticVerdict) RiskVerdict {
	total := rule.Score + criticScoreMultiplier*criticWeight(critic.RiskLevel)

	triggers := make([]string, 0, len(rule.Triggers)+1)
	triggers = append(triggers, rule.Triggers...)

	injectionDetected := hasTrigger(rule.Triggers, TriggerPromptInjectionAttempt) || critic.PromptInjectionDetected
	injectionSuccessful := false
	if injectionDetected {
		total += injectionPenalty
		if critic.PromptInjectionSuccessful {
			// Capitulation is strictly worse than a resisted attempt:
			// the score must land in the top bucket on its own.
			total += injectionSuccessBonus
			injectionSuccessful = true
			triggers = append(triggers, TriggerPromptInjectionSuccessful)
		} else {
			triggers = append(triggers, TriggerPromptInjectionResisted)
		}
	}

	level := levelForScore(total)

	// Hard overrides, applied after thresholding. Any injection attempt
	// must reach a human reviewer, not just ones that succeeded.
	if critic.RiskLevel == RiskHigh {
		level = RiskHigh
	}
	if injectionDetected {
		level = RiskHigh
	}

	return RiskVerdict{
		RiskLevel:                 level,
		RiskScore:                 total,
		RuleTriggers:              triggers,
		CriticIssues:              append([]string(nil), critic.Issues...),
		Explanation:               critic.Explanation,
		Flagged:                   level == RiskHigh,
		PromptInjectionDetected:   injectionDetected,
		PromptInjectionSuccessful: injectionSuccessful,
	}
}

func levelForScore(score int) RiskLevel {
	switch {
	case score >= highThreshold:
		return RiskHigh
	case score >= mediumThreshold:
		return RiskMedium
	case score >= lowThreshold:
		return RiskLow
	default:
		return RiskInfo
	}
}

func hasTrigger(triggers []string, tag string) bool {
	for _, t := range triggers {
		if t == tag {
			return true
		}
	}
	return false
}
