package domain

import "strings"

// Complexity is the response-size tier of a message
type Complexity int

const (
	ComplexitySimple Complexity = iota
	ComplexityMedium
	ComplexityComplex
)

func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityComplex:
		return "complex"
	default:
		return "medium"
	}
}

// DefaultComplexKeywords mark explanatory or how-to requests
var DefaultComplexKeywords = []string{
	"how to", "how do", "how can", "explain", "why", "theory", "technique",
	"difference between", "step by step", "teach", "routine", "meaning of",
	"interpret", "breakdown", "analyze", "progression",
}

// DefaultSimpleKeywords mark greetings and acknowledgments
var DefaultSimpleKeywords = []string{
	"hi", "hello", "hey", "thanks", "thank you", "good morning",
	"good night", "lol", "amen", "cool", "nice", "okay", "yes",
}

// Classifier maps message text to a complexity tier
type Classifier struct {
	complex []string
	simple  []string
}

// NewClassifier creates a classifier from keyword tables
func NewClassifier(complexKeywords, simpleKeywords []string) *Classifier {
	return &Classifier{
		complex: normalizeAll(complexKeywords),
		simple:  normalizeAll(simpleKeywords),
	}
}

// Classify checks complex keywords first, then simple ones; anything else is medium
func (c *Classifier) Classify(text string) Complexity {
	text = strings.ToLower(text)
	for _, kw := range c.complex {
		if strings.Contains(text, kw) {
			return ComplexityComplex
		}
	}
	for _, kw := range c.simple {
		if strings.Contains(text, kw) {
			return ComplexitySimple
		}
	}
	return ComplexityMedium
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = NormalizeText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TierBudget holds the output-token ceiling of one tier per chat kind
type TierBudget struct {
	Group   int `yaml:"group"`
	Private int `yaml:"private"`
}

// BudgetPolicy maps complexity and chat kind to a max-token ceiling
type BudgetPolicy struct {
	Simple  TierBudget `yaml:"simple"`
	Medium  TierBudget `yaml:"medium"`
	Complex TierBudget `yaml:"complex"`
	Max     int        `yaml:"max"` // Absolute ceiling for the truncation retry
}

// DefaultBudgetPolicy returns the stock ceilings
func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		Simple:  TierBudget{Group: 150, Private: 200},
		Medium:  TierBudget{Group: 300, Private: 500},
		Complex: TierBudget{Group: 600, Private: 1000},
		Max:     1500,
	}
}

// Budget returns the token ceiling for a reply
func (p BudgetPolicy) Budget(chatType ChatType, c Complexity) int {
	tier := p.Medium
	switch c {
	case ComplexitySimple:
		tier = p.Simple
	case ComplexityComplex:
		tier = p.Complex
	}
	if chatType.IsGroup() {
		return tier.Group
	}
	return tier.Private
}

// RetryBudget doubles budget, capped at Max when Max is set
func (p BudgetPolicy) RetryBudget(budget int) int {
	doubled := budget * 2
	if p.Max > 0 && doubled > p.Max {
		return p.Max
	}
	return doubled
}
