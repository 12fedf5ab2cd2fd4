package usecase

import (
	"sort"
	"strings"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/lexicon"
)

// RankWeights are the documented overlap-scoring constants: a plain
// weighted hit count, not a Jaccard ratio.
type RankWeights struct {
	IngredientHit float64
	BodyHit       float64
	MultiHitBonus float64
	DefaultTopK   int
}

func DefaultRankWeights() RankWeights {
	return RankWeights{
		IngredientHit: 3,
		BodyHit:       1,
		MultiHitBonus: 2,
		DefaultTopK:   5,
	}
}

// Ranker scores and orders recipes against a user ingredient query.
// Read-only: it never mutates its inputs and performs no external calls.
type Ranker struct {
	lex        *lexicon.Lexicon
	classifier *Classifier
	weights    RankWeights
}

func NewRanker(lex *lexicon.Lexicon, classifier *Classifier, weights RankWeights) *Ranker {
	if weights.DefaultTopK <= 0 {
		weights = DefaultRankWeights()
	}
	return &Ranker{lex: lex, classifier: classifier, weights: weights}
}

// Rank returns at most topK recipes ordered by overlap score descending,
// then completeness, then original ingestion order. An empty query yields
// an empty list. Recipes without any overlap are dropped.
func (rk *Ranker) Rank(recipes []domain.Recipe, query domain.Query) []domain.RankedRecipe {
	want := normalizeQueryTokens(query.RequestedIngredients)
	if len(want) == 0 {
		return nil
	}

	topK := query.Options.TopK
	if topK <= 0 {
		topK = rk.weights.DefaultTopK
	}

	ranked := make([]domain.RankedRecipe, 0, len(recipes))
	for _, r := range recipes {
		if matchesExcluded(r, query.Exclude) {
			continue
		}

		ingredientSet := rk.ingredientTokenSet(r)
		if query.Options.Strict && !isSubset(ingredientSet, want) {
			continue
		}

		bodySet := toFoldedTokenSet(r.Body)
		ingredientHits, bodyHits := 0, 0
		for _, token := range want {
			if _, ok := ingredientSet[token]; ok {
				ingredientHits++
			}
			if _, ok := bodySet[token]; ok {
				bodyHits++
			}
		}

		score := float64(ingredientHits)*rk.weights.IngredientHit + float64(bodyHits)*rk.weights.BodyHit
		if ingredientHits >= 2 {
			score += rk.weights.MultiHitBonus
		}
		if score <= 0 {
			continue
		}

		_, complete := rk.classifier.Classify(r)
		ranked = append(ranked, domain.RankedRecipe{
			Recipe:     r.Clone(),
			Score:      score,
			IsComplete: complete,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].IsComplete != ranked[j].IsComplete {
			return ranked[i].IsComplete
		}
		return ranked[i].Recipe.Position < ranked[j].Recipe.Position
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// ingredientTokenSet folds an ingredient list into comparable tokens,
// dropping quantities and units so "2 cups flour" reduces to {flour}.
func (rk *Ranker) ingredientTokenSet(r domain.Recipe) map[string]struct{} {
	out := make(map[string]struct{})
	for _, line := range r.Ingredients {
		for _, token := range splitAlphaNumLower(line) {
			if token[0] >= '0' && token[0] <= '9' {
				continue
			}
			if rk.lex.IsUnit(token) {
				continue
			}
			out[foldPlural(token)] = struct{}{}
		}
	}
	return out
}

func normalizeQueryTokens(requested []string) []string {
	folded := make([]string, 0, len(requested))
	for _, raw := range requested {
		for _, token := range splitAlphaNumLower(raw) {
			if len(token) > 1 {
				folded = append(folded, foldPlural(token))
			}
		}
	}
	return dedupKeepOrder(folded)
}

func isSubset(set map[string]struct{}, of []string) bool {
	allowed := make(map[string]struct{}, len(of))
	for _, token := range of {
		allowed[token] = struct{}{}
	}
	for token := range set {
		if _, ok := allowed[token]; !ok {
			return false
		}
	}
	return true
}

func matchesExcluded(r domain.Recipe, exclude []string) bool {
	if len(exclude) == 0 {
		return false
	}
	haystack := strings.ToLower(r.Title + " " + strings.Join(r.Ingredients, " "))
	for _, term := range exclude {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
