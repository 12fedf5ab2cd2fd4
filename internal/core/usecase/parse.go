package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/lexicon"
)

// Parser turns the raw segment sequence of one sync pass into structured
// recipe records. Parsing is pure and deterministic: identical input yields
// identical output, span order follows input order.
type Parser struct {
	lex *lexicon.Lexicon
}

func NewParser(lex *lexicon.Lexicon) *Parser {
	return &Parser{lex: lex}
}

var ordinalMarkerRe = regexp.MustCompile(`^(?:\d+\s*[.)]|step\s+\d+)\s*`)

func (p *Parser) Parse(segments []domain.RawSegment) ([]domain.Recipe, error) {
	if segments == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse segments", errors.New("nil segment sequence"))
	}

	spans := splitSpans(segments)
	recipes := make([]domain.Recipe, 0, len(spans))
	slugCounts := make(map[string]int, len(spans))

	for i, span := range spans {
		recipe := p.parseSpan(span, i+1)

		slug := slugify(recipe.Title)
		slugCounts[slug]++
		if n := slugCounts[slug]; n > 1 {
			// Disambiguate the id, not the display title.
			recipe.ID = fmt.Sprintf("%s-%d", slug, n)
		} else {
			recipe.ID = slug
		}

		recipe.Position = len(recipes)
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

// splitSpans groups segments into divider-delimited spans, skipping
// segments of unknown kind. Without dividers the whole input is one span.
func splitSpans(segments []domain.RawSegment) [][]domain.RawSegment {
	var spans [][]domain.RawSegment
	var current []domain.RawSegment

	for _, seg := range segments {
		if !seg.Kind.Valid() {
			continue
		}
		if seg.Kind == domain.SegmentDivider {
			if len(current) > 0 {
				spans = append(spans, current)
				current = nil
			}
			continue
		}
		current = append(current, seg)
	}
	if len(current) > 0 {
		spans = append(spans, current)
	}
	return spans
}

func (p *Parser) parseSpan(span []domain.RawSegment, ordinal int) domain.Recipe {
	titleIdx := -1
	title := ""

	for i, seg := range span {
		if seg.Kind == domain.SegmentParagraph && strings.TrimSpace(seg.Text) != "" {
			titleIdx = i
			title = strings.TrimSpace(seg.Text)
			break
		}
	}
	if titleIdx < 0 {
		for i, seg := range span {
			if seg.Kind == domain.SegmentBullet && strings.TrimSpace(seg.Text) != "" {
				titleIdx = i
				title = strings.TrimSpace(seg.Text)
				break
			}
		}
	}
	if titleIdx < 0 {
		title = fmt.Sprintf("Untitled recipe #%d", ordinal)
	}

	recipe := domain.Recipe{
		Title:            title,
		Ingredients:      []string{},
		Steps:            []string{},
		Source:           domain.OriginNative,
		EnrichmentStatus: domain.EnrichmentPending,
	}

	var bodyLines []string
	for i, seg := range span {
		if i == titleIdx {
			continue
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		switch seg.Kind {
		case domain.SegmentParagraph:
			bodyLines = append(bodyLines, text)
		case domain.SegmentBullet:
			switch p.classifyBullet(text) {
			case bulletIngredient:
				recipe.Ingredients = append(recipe.Ingredients, text)
			case bulletStep:
				recipe.Steps = append(recipe.Steps, text)
			default:
				bodyLines = append(bodyLines, text)
			}
		}
	}

	recipe.Body = strings.Join(bodyLines, "\n")
	return recipe
}

type bulletClass int

const (
	bulletBody bulletClass = iota
	bulletIngredient
	bulletStep
)

func (p *Parser) classifyBullet(text string) bulletClass {
	// Ordinal markers ("1.", "2)", "step 3") beat the quantity heuristic,
	// otherwise numbered steps would read as quantities.
	if ordinalMarkerRe.MatchString(strings.ToLower(text)) {
		return bulletStep
	}
	if p.hasQuantityOrUnit(text) {
		return bulletIngredient
	}

	tokens := splitAlphaNumLower(text)
	if len(tokens) > 0 && p.lex.IsCookingVerb(tokens[0]) {
		return bulletStep
	}
	// A short noun phrase without verbs reads as a bare ingredient
	// ("salt", "fresh basil").
	if len(tokens) > 0 && len(tokens) <= 3 && !p.containsCookingVerb(tokens) {
		return bulletIngredient
	}
	return bulletBody
}

func (p *Parser) hasQuantityOrUnit(text string) bool {
	for _, token := range splitAlphaNumLower(text) {
		if token[0] >= '0' && token[0] <= '9' {
			return true
		}
		if p.lex.IsUnit(token) {
			return true
		}
	}
	return false
}

func (p *Parser) containsCookingVerb(tokens []string) bool {
	for _, t := range tokens {
		if p.lex.IsCookingVerb(t) {
			return true
		}
	}
	return false
}

func slugify(title string) string {
	tokens := splitAlphaNumLower(title)
	if len(tokens) == 0 {
		return "recipe"
	}
	return strings.Join(tokens, "-")
}
