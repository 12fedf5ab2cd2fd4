package usecase

import (
	"strings"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/lexicon"
)

// ClassifierWeights are the fixed scoring constants of the completeness
// heuristic. They are configuration, not code (see config.Load).
type ClassifierWeights struct {
	Ingredients float64
	Steps       float64
	VerbHit     float64
	LineCount   float64
	MinLines    int
	Threshold   float64
}

func DefaultClassifierWeights() ClassifierWeights {
	return ClassifierWeights{
		Ingredients: 0.35,
		Steps:       0.35,
		VerbHit:     0.15,
		LineCount:   0.15,
		MinLines:    3,
		Threshold:   0.5,
	}
}

// Classifier scores how much structured content a recipe already carries.
// Pure and cheap: it runs on every recipe on every sync pass.
type Classifier struct {
	lex     *lexicon.Lexicon
	weights ClassifierWeights
}

func NewClassifier(lex *lexicon.Lexicon, weights ClassifierWeights) *Classifier {
	if weights.Threshold <= 0 {
		weights = DefaultClassifierWeights()
	}
	return &Classifier{lex: lex, weights: weights}
}

// Classify never fails; unexpected input yields a low score, not an error.
func (c *Classifier) Classify(r domain.Recipe) (score float64, complete bool) {
	if len(r.Ingredients) > 0 {
		score += c.weights.Ingredients
	}
	if len(r.Steps) > 0 {
		score += c.weights.Steps
	}
	if c.hasCookingVerb(r) {
		score += c.weights.VerbHit
	}
	if c.lineCount(r) >= c.weights.MinLines {
		score += c.weights.LineCount
	}
	return score, score >= c.weights.Threshold
}

func (c *Classifier) hasCookingVerb(r domain.Recipe) bool {
	for _, token := range splitAlphaNumLower(r.Body) {
		if c.lex.IsCookingVerb(token) {
			return true
		}
	}
	for _, step := range r.Steps {
		for _, token := range splitAlphaNumLower(step) {
			if c.lex.IsCookingVerb(token) {
				return true
			}
		}
	}
	return false
}

func (c *Classifier) lineCount(r domain.Recipe) int {
	count := len(r.Ingredients) + len(r.Steps)
	for _, line := range strings.Split(r.Body, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
