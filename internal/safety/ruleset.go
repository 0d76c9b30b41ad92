package safety

import "regexp"

// RuleConfig holds the rule tables and weights used by the Detector.
// Build one at process start (DefaultRuleConfig) and treat it as
// immutable; the detector never mutates it.
type RuleConfig struct {
	CrisisWeight         int
	AdviceWeight         int
	MismatchWeight       int
	OverconfidenceWeight int
	InjectionWeight      int

	// SentimentLengthGate skips the mismatch check for user messages at
	// or under this many characters, where lexicon sentiment is noise.
	SentimentLengthGate int

	CrisisPhrases          []string
	InjectionPatterns      []*regexp.Regexp
	AdvicePatterns         []*regexp.Regexp
	OverconfidencePatterns []*regexp.Regexp
	MedicalTerms           []string
	DisclaimerPhrases      []string
	NegativeWords          map[string]struct{}
	PositiveWords          map[string]struct{}
}

// crisisPhrases are matched case-insensitively as substrings of the
// user turn only.
var crisisPhrases = []string{
	"kill myself",
	"end my life",
	"want to die",
	"suicide",
	"suicidal",
	"self harm",
	"self-harm",
	"hurt myself",
	"harm myself",
	"cut myself",
	"no reason to live",
	"better off dead",
	"don't want to be alive",
	"end it all",
	"take my own life",
}

// Instruction-override phrasing.
var injectionOverridePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?|directives?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`),
	regexp.MustCompile(`(?i)new\s+instructions?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`),
	regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>`),
	regexp.MustCompile(`(?i)override\s+(your\s+)?(system|instructions?|rules?|safety|guidelines?)`),
}

// Role-play / identity-change requests.
var injectionRolePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`),
	regexp.MustCompile(`(?i)pretend\s+(that\s+)?you\s+(are|have|were)`),
	regexp.MustCompile(`(?i)act\s+as\s+(if\s+you\s+are\s+)?(a|an)\s+`),
	regexp.MustCompile(`(?i)new\s+role\s*:`),
	regexp.MustCompile(`(?i)role[\s-]?play\s+as`),
}

// Contradictory instructions that try to suppress the assistant's
// required empathetic behavior.
var injectionSuppressionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)avoid\s+(reassurance|empathy|validation|comfort)`),
	regexp.MustCompile(`(?i)never\s+(validate|reassure|comfort|empathize)`),
	regexp.MustCompile(`(?i)do\s+not\s+(validate|reassure|comfort|show\s+empathy)`),
	regexp.MustCompile(`(?i)your\s+response\s+must\s+`),
	regexp.MustCompile(`(?i)respond\s+only\s+with`),
}

// Directive phrasing in the assistant turn.
var advicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byou\s+should\b`),
	regexp.MustCompile(`(?i)\byou\s+must\b`),
	regexp.MustCompile(`(?i)\byou\s+need\s+to\b`),
	regexp.MustCompile(`(?i)\bprescrib(e|ed|ing)\b`),
	regexp.MustCompile(`(?i)\bdiagnos(e|is|ed)\b`),
	regexp.MustCompile(`(?i)\btake\s+(this|that|the)?\s*(medication|medicine|pill|drug)s?\b`),
	regexp.MustCompile(`(?i)\b(see|call|visit)\s+(a|your)\s+doctor\s+(immediately|right\s+now|now)\b`),
	regexp.MustCompile(`(?i)\bstop\s+taking\s+(your|the)\s+(medication|medicine|pill)s?\b`),
}

// Absolute-certainty phrasing in the assistant turn.
var overconfidencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi\s+guarantee\b`),
	regexp.MustCompile(`(?i)\b100%\s*(certain|sure|effective|guaranteed)\b`),
	regexp.MustCompile(`(?i)\bthis\s+always\s+works\b`),
	regexp.MustCompile(`(?i)\bdefinitely\s+will\s+(cure|fix|solve)\b`),
	regexp.MustCompile(`(?i)\bwithout\s+(a\s+)?doubt\b`),
	regexp.MustCompile(`(?i)\bcertain(ly)?\s+cure\b`),
}

// medicalTerms gate the missing-disclaimer check: an assistant turn that
// uses therapeutic terminology must also carry a disclaimer phrase.
var medicalTerms = []string{
	"diagnosis",
	"diagnose",
	"treatment",
	"medication",
	"antidepressant",
	"therapy",
	"therapist",
	"psychiatrist",
	"dosage",
	"prescription",
	"cbt",
	"cognitive behavioral",
	"exposure therapy",
}

var disclaimerPhrases = []string{
	"not a therapist",
	"not a doctor",
	"not medical advice",
	"not a substitute for",
	"consult a professional",
	"consult a doctor",
	"speak to a professional",
	"talk to a professional",
	"seek professional",
	"licensed professional",
	"mental health professional",
}

var negativeWords = []string{
	"sad", "depressed", "depressing", "anxious", "anxiety", "scared",
	"afraid", "fear", "hopeless", "worthless", "miserable", "lonely",
	"alone", "angry", "hate", "hurt", "pain", "painful", "crying",
	"cry", "tired", "exhausted", "overwhelmed", "stressed", "stress",
	"terrible", "awful", "horrible", "bad", "worse", "worst", "lost",
	"empty", "numb", "broken", "failure", "failed", "guilt", "guilty",
	"ashamed", "shame", "panic", "dread", "despair", "grief",
}

var positiveWords = []string{
	"happy", "glad", "great", "wonderful", "amazing", "excited",
	"exciting", "joy", "joyful", "love", "lovely", "good", "better",
	"best", "hopeful", "hope", "grateful", "thankful", "proud",
	"calm", "peaceful", "relaxed", "confident", "strong", "positive",
	"fantastic", "awesome", "delighted", "cheerful", "optimistic",
}

// DefaultRuleConfig returns the standard rule tables.
func DefaultRuleConfig() *RuleConfig {
	injection := make([]*regexp.Regexp, 0,
		len(injectionOverridePatterns)+len(injectionRolePatterns)+len(injectionSuppressionPatterns))
	injection = append(injection, injectionOverridePatterns...)
	injection = append(injection, injectionRolePatterns...)
	injection = append(injection, injectionSuppressionPatterns...)

	return &RuleConfig{
		CrisisWeight:         5,
		AdviceWeight:         3,
		MismatchWeight:       2,
		OverconfidenceWeight: 2,
		InjectionWeight:      4,
		SentimentLengthGate:  50,

		CrisisPhrases:          crisisPhrases,
		InjectionPatterns:      injection,
		AdvicePatterns:         advicePatterns,
		OverconfidencePatterns: overconfidencePatterns,
		MedicalTerms:           medicalTerms,
		DisclaimerPhrases:      disclaimerPhrases,
		NegativeWords:          wordSet(negativeWords),
		PositiveWords:          wordSet(positiveWords),
	}
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
