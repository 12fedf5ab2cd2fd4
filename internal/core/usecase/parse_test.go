package usecase

import (
	"reflect"
	"testing"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/lexicon"
)

func segs(kinds ...domain.RawSegment) []domain.RawSegment { return kinds }

func para(text string) domain.RawSegment {
	return domain.RawSegment{Kind: domain.SegmentParagraph, Text: text}
}

func bullet(text string) domain.RawSegment {
	return domain.RawSegment{Kind: domain.SegmentBullet, Text: text}
}

func divider() domain.RawSegment {
	return domain.RawSegment{Kind: domain.SegmentDivider}
}

func TestParseSplitsOnDividersAndClassifiesBullets(t *testing.T) {
	parser := NewParser(lexicon.Default())

	recipes, err := parser.Parse(segs(
		para("Carrot soup"),
		para("A quick weeknight dinner."),
		bullet("4 carrots"),
		bullet("1 onion"),
		bullet("Peel and chop the carrots"),
		bullet("Simmer until tender"),
		divider(),
		para("Pancakes"),
		bullet("2 cups flour"),
		bullet("2 eggs"),
	))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(recipes) != 2 {
		t.Fatalf("expected 2 recipes, got %d", len(recipes))
	}

	soup := recipes[0]
	if soup.ID != "carrot-soup" || soup.Title != "Carrot soup" {
		t.Fatalf("unexpected first recipe: id=%q title=%q", soup.ID, soup.Title)
	}
	if soup.Body != "A quick weeknight dinner." {
		t.Fatalf("unexpected body: %q", soup.Body)
	}
	if !reflect.DeepEqual(soup.Ingredients, []string{"4 carrots", "1 onion"}) {
		t.Fatalf("unexpected ingredients: %v", soup.Ingredients)
	}
	if !reflect.DeepEqual(soup.Steps, []string{"Peel and chop the carrots", "Simmer until tender"}) {
		t.Fatalf("unexpected steps: %v", soup.Steps)
	}
	if soup.Source != domain.OriginNative || soup.EnrichmentStatus != domain.EnrichmentPending {
		t.Fatalf("unexpected provenance: source=%q status=%q", soup.Source, soup.EnrichmentStatus)
	}
	if soup.Position != 0 || recipes[1].Position != 1 {
		t.Fatalf("positions must follow input order: %d, %d", soup.Position, recipes[1].Position)
	}
}

func TestParseOrdinalBulletsAreStepsNotQuantities(t *testing.T) {
	parser := NewParser(lexicon.Default())

	recipes, err := parser.Parse(segs(
		para("Omelette"),
		bullet("3 eggs"),
		bullet("1. Whisk the eggs"),
		bullet("2) Fry in butter"),
		bullet("step 3 serve hot"),
	))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	r := recipes[0]
	if !reflect.DeepEqual(r.Ingredients, []string{"3 eggs"}) {
		t.Fatalf("unexpected ingredients: %v", r.Ingredients)
	}
	if len(r.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %v", r.Steps)
	}
}

func TestParseShortNounPhraseBulletIsIngredient(t *testing.T) {
	parser := NewParser(lexicon.Default())

	recipes, err := parser.Parse(segs(
		para("Salad"),
		bullet("fresh basil"),
		bullet("salt"),
	))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(recipes[0].Ingredients, []string{"fresh basil", "salt"}) {
		t.Fatalf("unexpected ingredients: %v", recipes[0].Ingredients)
	}
}

func TestParseTitleFallsBackToFirstBullet(t *testing.T) {
	parser := NewParser(lexicon.Default())

	recipes, err := parser.Parse(segs(
		bullet("Grandma's goulash"),
		bullet("500 g beef"),
	))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if recipes[0].Title != "Grandma's goulash" {
		t.Fatalf("expected bullet title fallback, got %q", recipes[0].Title)
	}
	if len(recipes[0].Ingredients) != 1 {
		t.Fatalf("title bullet must not also be an ingredient: %v", recipes[0].Ingredients)
	}
}

func TestParseUsesPlaceholderTitleForBlankSpans(t *testing.T) {
	parser := NewParser(lexicon.Default())

	recipes, err := parser.Parse(segs(
		para("Carrot soup"),
		divider(),
		bullet("   "),
	))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(recipes) != 2 {
		t.Fatalf("expected 2 recipes, got %d", len(recipes))
	}
	if recipes[1].Title != "Untitled recipe #2" {
		t.Fatalf("expected placeholder title, got %q", recipes[1].Title)
	}
}

func TestParseDisambiguatesDuplicateIDsKeepingTitles(t *testing.T) {
	parser := NewParser(lexicon.Default())

	recipes, err := parser.Parse(segs(
		para("Pancakes"),
		divider(),
		para("Pancakes"),
	))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if recipes[0].ID != "pancakes" || recipes[1].ID != "pancakes-2" {
		t.Fatalf("unexpected ids: %q, %q", recipes[0].ID, recipes[1].ID)
	}
	if recipes[0].Title != recipes[1].Title {
		t.Fatalf("display titles must stay identical: %q vs %q", recipes[0].Title, recipes[1].Title)
	}
}

func TestParseSkipsUnknownSegmentKinds(t *testing.T) {
	parser := NewParser(lexicon.Default())

	recipes, err := parser.Parse(segs(
		para("Toast"),
		domain.RawSegment{Kind: "table", Text: "ignored"},
		bullet("2 slices bread"),
	))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(recipes) != 1 {
		t.Fatalf("expected 1 recipe, got %d", len(recipes))
	}
	if recipes[0].Body != "" {
		t.Fatalf("unknown kinds must not leak into the body: %q", recipes[0].Body)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	parser := NewParser(lexicon.Default())
	input := segs(
		para("Carrot soup"),
		bullet("4 carrots"),
		bullet("Simmer until tender"),
		divider(),
		para("Pancakes"),
		bullet("2 cups flour"),
	)

	first, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("first Parse() error = %v", err)
	}
	second, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("second Parse() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parsing twice diverged:\n%+v\n%+v", first, second)
	}
}

func TestParseRejectsNilSegments(t *testing.T) {
	parser := NewParser(lexicon.Default())

	_, err := parser.Parse(nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestParseEmptySliceYieldsNoRecipes(t *testing.T) {
	parser := NewParser(lexicon.Default())

	recipes, err := parser.Parse([]domain.RawSegment{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(recipes) != 0 {
		t.Fatalf("expected no recipes, got %d", len(recipes))
	}
}
