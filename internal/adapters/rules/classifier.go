package rules

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
)

// Classifier is the rule-based classification strategy. It keeps the system
// testable and operational without a reachable language-model service: a
// deterministic keyword scan over subject and body. Phrase matches carry high
// confidence, single-word matches low confidence, so ambiguous emails stay
// below the irreversible-action threshold.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a new rule-based classifier.
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

type keywordRule struct {
	kind    core.IntentKind
	phrases []string
	words   []string
}

// Rules are evaluated in order; the first-listed intent wins score ties,
// keeping classification deterministic.
var keywordRules = []keywordRule{
	{
		kind: core.IntentOrderCancellation,
		phrases: []string{
			"cancel my order", "cancel order", "cancel the order",
			"want to cancel", "order cancellation",
		},
		words: []string{"cancel", "cancellation"},
	},
	{
		kind: core.IntentOrderModification,
		phrases: []string{
			"change address", "modify address", "change the address",
			"change shipping address", "update address", "change my shipping",
			"add product", "remove product", "change my order",
			"modify order", "modify my order", "update my order",
		},
		words: []string{"modify", "change"},
	},
	{
		kind: core.IntentOrderMerge,
		phrases: []string{
			"merge order", "merge orders", "merge my orders",
			"combine order", "combine orders", "combine my orders",
		},
		words: []string{"merge", "combine"},
	},
	{
		kind: core.IntentPriceInquiry,
		phrases: []string{
			"price inquiry", "check price", "price quote", "quotation",
			"how much", "best price",
		},
		words: []string{"price", "cost", "pricing", "quote"},
	},
	{
		kind: core.IntentInventoryInquiry,
		phrases: []string{
			"in stock", "check stock", "stock status", "stock level",
			"inventory status", "lead time",
		},
		words: []string{"stock", "inventory", "availability", "available"},
	},
	{
		kind: core.IntentLogisticsInquiry,
		phrases: []string{
			"track order", "track my order", "tracking number",
			"shipping status", "where is my order", "delivery status",
		},
		words: []string{"shipping", "delivery", "tracking", "logistics"},
	},
}

const (
	phraseConfidence  = 0.85
	wordConfidence    = 0.45
	phraseBonus       = 0.05
	maxConfidence     = 0.95
	fallbackConfident = 0.3
)

// Classify always returns exactly one intent from the closed taxonomy and
// never fails: emails matching nothing come back as GeneralInquiry with low
// confidence.
func (c *Classifier) Classify(_ context.Context, email *core.NormalizedEmail) (*core.Intent, error) {
	text := strings.ToLower(email.Subject + "\n" + email.Body)

	var (
		best        core.IntentKind
		bestScore   float64
		bestMatches []string
	)

	for _, rule := range keywordRules {
		score, matches := scoreRule(text, rule)
		if score > bestScore {
			best = rule.kind
			bestScore = score
			bestMatches = matches
		}
	}

	if bestScore == 0 {
		return &core.Intent{
			Kind:       core.IntentGeneralInquiry,
			Confidence: fallbackConfident,
			Rationale:  "no triage keywords matched; treating as a general inquiry",
			Model:      "rules",
		}, nil
	}

	intent := &core.Intent{
		Kind:       best,
		Confidence: bestScore,
		Rationale:  fmt.Sprintf("matched keywords: %s", strings.Join(bestMatches, ", ")),
		Model:      "rules",
	}

	c.logger.Debug("Rule-based classification",
		zap.String("email_id", email.ID),
		zap.String("intent", string(intent.Kind)),
		zap.Float64("confidence", intent.Confidence),
		zap.Strings("matches", bestMatches))

	return intent, nil
}

func scoreRule(text string, rule keywordRule) (float64, []string) {
	var (
		score   float64
		matches []string
	)

	for _, phrase := range rule.phrases {
		if strings.Contains(text, phrase) {
			matches = append(matches, phrase)
			if score == 0 {
				score = phraseConfidence
			} else {
				score += phraseBonus
			}
		}
	}
	if score > 0 {
		if score > maxConfidence {
			score = maxConfidence
		}
		return score, matches
	}

	for _, word := range rule.words {
		if containsWord(text, word) {
			matches = append(matches, word)
			score = wordConfidence
		}
	}
	return score, matches
}

// containsWord matches whole words only, so "change" does not fire on
// "exchange rate".
func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		startOK := start == 0 || !isWordChar(text[start-1])
		endOK := end == len(text) || !isWordChar(text[end])
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
