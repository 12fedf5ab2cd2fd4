package usecase

import (
	"reflect"
	"testing"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/lexicon"
)

func newTestRanker() *Ranker {
	lex := lexicon.Default()
	return NewRanker(lex, NewClassifier(lex, DefaultClassifierWeights()), DefaultRankWeights())
}

func query(ingredients ...string) domain.Query {
	return domain.Query{RequestedIngredients: ingredients}
}

func testRecipes() []domain.Recipe {
	return []domain.Recipe{
		{
			ID:          "carrot-soup",
			Title:       "Carrot soup",
			Body:        "A warming soup with ginger.",
			Ingredients: []string{"4 carrots", "1 onion", "ginger"},
			Steps:       []string{"Chop everything", "Simmer until soft"},
			Position:    0,
		},
		{
			ID:          "carrot-cake",
			Title:       "Carrot cake",
			Ingredients: []string{"2 carrots", "200 g flour", "2 eggs"},
			Steps:       []string{"Bake at 180C"},
			Position:    1,
		},
		{
			ID:          "pancakes",
			Title:       "Pancakes",
			Ingredients: []string{"2 cups flour", "2 eggs", "milk"},
			Steps:       []string{"Whisk and fry"},
			Position:    2,
		},
	}
}

func TestRankScoresIngredientOverlap(t *testing.T) {
	rk := newTestRanker()

	ranked := rk.Rank(testRecipes(), query("carrots", "onion"))
	if len(ranked) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(ranked))
	}
	// Soup: two ingredient hits (3+3) plus the multi-hit bonus (2).
	if ranked[0].Recipe.ID != "carrot-soup" {
		t.Fatalf("expected carrot-soup first, got %s", ranked[0].Recipe.ID)
	}
	if ranked[0].Score != 8 {
		t.Fatalf("expected score 8 (2 ingredient hits + bonus), got %v", ranked[0].Score)
	}
	if ranked[1].Recipe.ID != "carrot-cake" || ranked[1].Score != 3 {
		t.Fatalf("expected carrot-cake with score 3, got %s %v", ranked[1].Recipe.ID, ranked[1].Score)
	}
}

func TestRankCountsBodyHits(t *testing.T) {
	rk := newTestRanker()

	ranked := rk.Rank(testRecipes(), query("ginger"))
	if len(ranked) != 1 {
		t.Fatalf("expected 1 match, got %d", len(ranked))
	}
	// One ingredient hit (3) plus one body hit (1).
	if ranked[0].Score != 4 {
		t.Fatalf("expected score 4, got %v", ranked[0].Score)
	}
}

func TestRankFoldsPluralsBetweenQueryAndRecipe(t *testing.T) {
	rk := newTestRanker()

	singular := rk.Rank(testRecipes(), query("carrot"))
	plural := rk.Rank(testRecipes(), query("carrots"))
	if len(singular) == 0 || len(singular) != len(plural) {
		t.Fatalf("plural folding diverged: %d vs %d", len(singular), len(plural))
	}
	if singular[0].Score != plural[0].Score {
		t.Fatalf("scores diverged: %v vs %v", singular[0].Score, plural[0].Score)
	}
}

func TestRankDropsRecipesWithoutOverlap(t *testing.T) {
	rk := newTestRanker()

	ranked := rk.Rank(testRecipes(), query("tofu"))
	if len(ranked) != 0 {
		t.Fatalf("expected no matches, got %d", len(ranked))
	}
}

func TestRankEmptyQueryYieldsNothing(t *testing.T) {
	rk := newTestRanker()

	if got := rk.Rank(testRecipes(), query()); got != nil {
		t.Fatalf("expected nil for empty query, got %v", got)
	}
	// Single-letter tokens are dropped during normalization.
	if got := rk.Rank(testRecipes(), query("a", "x")); got != nil {
		t.Fatalf("expected nil for sub-token query, got %v", got)
	}
}

func TestRankExcludeFiltersTitleAndIngredients(t *testing.T) {
	rk := newTestRanker()

	q := query("carrots", "eggs")
	q.Exclude = []string{"cake"}
	ranked := rk.Rank(testRecipes(), q)
	for _, r := range ranked {
		if r.Recipe.ID == "carrot-cake" {
			t.Fatal("excluded term in title must drop the recipe")
		}
	}

	q.Exclude = []string{"flour"}
	ranked = rk.Rank(testRecipes(), q)
	for _, r := range ranked {
		if r.Recipe.ID == "carrot-cake" || r.Recipe.ID == "pancakes" {
			t.Fatalf("excluded ingredient must drop %s", r.Recipe.ID)
		}
	}
}

func TestRankStrictRequiresIngredientSubset(t *testing.T) {
	rk := newTestRanker()

	// Quantities are dropped from the recipe side, so "4 carrots" and
	// "1 onion" do not demand numeric tokens in the pantry.
	q := query("carrots", "onion", "ginger")
	q.Options.Strict = true
	ranked := rk.Rank(testRecipes(), q)
	if len(ranked) != 1 || ranked[0].Recipe.ID != "carrot-soup" {
		t.Fatalf("strict mode should keep only the fully covered recipe, got %v", ranked)
	}

	q = query("carrot")
	q.Options.Strict = true
	ranked = rk.Rank(testRecipes(), q)
	if len(ranked) != 0 {
		t.Fatalf("soup needs onion and ginger too, got %v", ranked)
	}
}

func TestRankTieBreaksByCompletenessThenPosition(t *testing.T) {
	rk := newTestRanker()

	recipes := []domain.Recipe{
		{ID: "late-complete", Title: "Late", Ingredients: []string{"tofu", "rice", "soy"}, Steps: []string{"Fry the tofu"}, Position: 5},
		{ID: "early-bare", Title: "Early", Ingredients: []string{"tofu"}, Position: 1},
		{ID: "early-complete", Title: "Also early", Ingredients: []string{"tofu", "rice", "soy"}, Steps: []string{"Boil the rice"}, Position: 2},
	}

	ranked := rk.Rank(recipes, query("tofu"))
	if len(ranked) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(ranked))
	}
	// All score 3; complete recipes sort before incomplete, position breaks
	// the remaining tie.
	gotIDs := []string{ranked[0].Recipe.ID, ranked[1].Recipe.ID, ranked[2].Recipe.ID}
	if !reflect.DeepEqual(gotIDs, []string{"early-complete", "late-complete", "early-bare"}) {
		t.Fatalf("unexpected order: %v", gotIDs)
	}
}

func TestRankTruncatesToTopK(t *testing.T) {
	rk := newTestRanker()

	var recipes []domain.Recipe
	for i := 0; i < 8; i++ {
		recipes = append(recipes, domain.Recipe{
			ID:          string(rune('a' + i)),
			Title:       "T",
			Ingredients: []string{"tofu"},
			Position:    i,
		})
	}

	if got := rk.Rank(recipes, query("tofu")); len(got) != 5 {
		t.Fatalf("expected default top-k of 5, got %d", len(got))
	}

	q := query("tofu")
	q.Options.TopK = 2
	if got := rk.Rank(recipes, q); len(got) != 2 {
		t.Fatalf("expected top-k override of 2, got %d", len(got))
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	rk := newTestRanker()

	recipes := testRecipes()
	ranked := rk.Rank(recipes, query("carrots"))
	if len(ranked) == 0 {
		t.Fatal("expected matches")
	}

	ranked[0].Recipe.Ingredients[0] = "mutated"
	ranked[0].Recipe.Steps = append(ranked[0].Recipe.Steps, "extra")
	if recipes[0].Ingredients[0] != "4 carrots" {
		t.Fatal("ranked results must be clones, not aliases")
	}
}
