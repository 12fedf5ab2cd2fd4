package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/core/ports"
	"github.com/pantrypilot/recipe-agent/internal/lexicon"
)

// Recipes are assumed to serve this many people when a scaling request
// does not say otherwise.
const defaultServings = 2

var (
	personsRe = regexp.MustCompile(`for\s+(\d+)\s+(?:people|persons?|servings?|portions?)`)
	excludeRe = regexp.MustCompile(`(?:without|no)\s+([a-z\- ]+)`)
	scaleNumRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)(\s?(?:g|kg|ml|l|oz|lb|tbsp|tsp|cups?)?)`)
)

// AgentUseCase routes a free-text message to one of the recipe tools
// (plan, substitute, scale, shopping list) without any model in the loop;
// the generative collaborator only phrases a reply when asked to.
type AgentUseCase struct {
	planner   ports.RecipePlanner
	lex       *lexicon.Lexicon
	generator ports.ExplanationGenerator
}

func NewAgentUseCase(planner ports.RecipePlanner, lex *lexicon.Lexicon, generator ports.ExplanationGenerator) *AgentUseCase {
	return &AgentUseCase{planner: planner, lex: lex, generator: generator}
}

type agentEntities struct {
	pantry  []string
	exclude []string
	persons int
}

func (uc *AgentUseCase) Handle(ctx context.Context, message string, useGenerative bool) (*domain.AgentReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "agent handle", fmt.Errorf("empty message"))
	}

	intent := routeIntent(message)
	entities := uc.extractEntities(message)

	switch intent {
	case domain.IntentPlan:
		return uc.handlePlan(ctx, message, entities, useGenerative)
	case domain.IntentSubstitute:
		return uc.handleSubstitute(ctx, entities)
	case domain.IntentScale:
		return uc.handleScale(ctx, entities)
	case domain.IntentShoppingList:
		return uc.handleShoppingList(ctx, entities)
	default:
		return &domain.AgentReply{
			Intent: domain.IntentUnknown,
			Reply:  "Not sure what you need. Try: 'I have carrots and onion', 'without feta' or 'for 5 people'.",
		}, nil
	}
}

func routeIntent(message string) domain.Intent {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "shopping list") || strings.Contains(m, "grocery list"):
		return domain.IntentShoppingList
	case strings.Contains(m, "replace") || strings.Contains(m, "substitute") ||
		strings.Contains(m, "alternative") || strings.Contains(m, "without "):
		return domain.IntentSubstitute
	case personsRe.MatchString(m):
		return domain.IntentScale
	default:
		return domain.IntentPlan
	}
}

func (uc *AgentUseCase) extractEntities(message string) agentEntities {
	m := strings.ToLower(message)
	out := agentEntities{}

	if match := personsRe.FindStringSubmatch(m); match != nil {
		out.persons, _ = strconv.Atoi(match[1])
	}

	for _, match := range excludeRe.FindAllStringSubmatch(m, -1) {
		for _, token := range splitAlphaNumLower(match[1]) {
			if len(token) > 1 {
				out.exclude = append(out.exclude, token)
			}
		}
	}
	out.exclude = dedupKeepOrder(out.exclude)

	excluded := make(map[string]struct{}, len(out.exclude))
	for _, token := range out.exclude {
		excluded[token] = struct{}{}
	}
	for _, token := range splitAlphaNumLower(m) {
		if len(token) < 3 || uc.lex.IsStopword(token) {
			continue
		}
		if token[0] >= '0' && token[0] <= '9' {
			continue
		}
		if _, ok := excluded[token]; ok {
			continue
		}
		out.pantry = append(out.pantry, token)
	}
	out.pantry = dedupKeepOrder(out.pantry)
	return out
}

func (uc *AgentUseCase) handlePlan(ctx context.Context, message string, entities agentEntities, useGenerative bool) (*domain.AgentReply, error) {
	pantryText := strings.Join(entities.pantry, " ")
	if pantryText == "" {
		pantryText = message
	}
	query := BuildQuery(pantryText, entities.exclude, domain.QueryOptions{
		TopK:   5,
		Strict: len(entities.pantry) >= 2,
	})

	results, err := uc.planner.Plan(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("plan recipes: %w", err)
	}

	reply := formatPlanReply(results, pantryText)
	if useGenerative && uc.generator != nil && len(results) > 0 {
		if phrased, err := uc.generator.Explain(ctx, message, results); err == nil {
			reply = phrased
		} else {
			slog.Warn("explanation_generator_failed", "error", err)
		}
	}

	var suggestions []string
	if len(results) > 0 {
		suggestions = []string{"Make a shopping list", "Scale for 4 people", "Without feta"}
		if results[0].Score < 3 {
			suggestions = append(suggestions, "Name another ingredient")
		}
	}

	return &domain.AgentReply{
		Intent:      domain.IntentPlan,
		Reply:       reply,
		Results:     results,
		Suggestions: suggestions,
	}, nil
}

func (uc *AgentUseCase) handleSubstitute(ctx context.Context, entities agentEntities) (*domain.AgentReply, error) {
	title := "your recipe"
	if top, err := uc.topMatch(ctx, entities); err == nil && top != nil {
		title = top.Recipe.Title
	}

	terms := entities.exclude
	if len(terms) == 0 {
		terms = entities.pantry
	}

	substitutions := make(map[string][]string, len(terms))
	for _, term := range terms {
		if alternatives, ok := uc.lex.Substitutes(term); ok {
			substitutions[term] = alternatives
		} else {
			substitutions[term] = []string{"something with a similar profile", "balance with extra salt or acidity"}
		}
	}

	lines := []string{fmt.Sprintf("Substitution ideas for %s:", title)}
	for _, term := range terms {
		lines = append(lines, fmt.Sprintf("- %s: %s", term, strings.Join(substitutions[term], ", ")))
	}

	return &domain.AgentReply{
		Intent:        domain.IntentSubstitute,
		Reply:         strings.Join(lines, "\n"),
		Substitutions: substitutions,
	}, nil
}

func (uc *AgentUseCase) handleScale(ctx context.Context, entities agentEntities) (*domain.AgentReply, error) {
	top, err := uc.topMatch(ctx, entities)
	if err != nil {
		return nil, err
	}
	if top == nil {
		return &domain.AgentReply{Intent: domain.IntentScale, Reply: "No recipes found to scale."}, nil
	}

	persons := entities.persons
	if persons <= 0 {
		persons = defaultServings
	}
	scaled := scaleIngredients(top.Recipe.Ingredients, defaultServings, persons)

	reply := fmt.Sprintf("Scaled ingredients for %s (about %d people):\n- %s",
		top.Recipe.Title, persons, strings.Join(scaled, "\n- "))
	return &domain.AgentReply{
		Intent:            domain.IntentScale,
		Reply:             reply,
		ScaledIngredients: scaled,
	}, nil
}

func (uc *AgentUseCase) handleShoppingList(ctx context.Context, entities agentEntities) (*domain.AgentReply, error) {
	query := BuildQuery(strings.Join(entities.pantry, " "), nil, domain.QueryOptions{TopK: 3})
	results, err := uc.planner.Plan(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("plan recipes: %w", err)
	}

	list := consolidateShoppingList(results)
	titles := make([]string, 0, len(results))
	for _, r := range results {
		titles = append(titles, r.Recipe.Title)
	}

	reply := "Shopping list:\n- " + strings.Join(list, "\n- ")
	if len(list) == 0 {
		reply = "Nothing to put on a shopping list yet."
	}
	return &domain.AgentReply{
		Intent:       domain.IntentShoppingList,
		Reply:        reply,
		Results:      results,
		ShoppingList: list,
		Suggestions:  titles,
	}, nil
}

func (uc *AgentUseCase) topMatch(ctx context.Context, entities agentEntities) (*domain.RankedRecipe, error) {
	query := BuildQuery(strings.Join(entities.pantry, " "), nil, domain.QueryOptions{TopK: 1})
	results, err := uc.planner.Plan(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("plan recipes: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func formatPlanReply(results []domain.RankedRecipe, query string) string {
	if len(results) == 0 {
		return "No matching recipes for: " + query
	}

	lines := []string{"Best matches for: " + query, ""}
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%d. %s  (source: %s, score: %.0f)", i+1, r.Recipe.Title, r.Recipe.Source, r.Score))
		if len(r.Recipe.Ingredients) > 0 {
			preview := r.Recipe.Ingredients
			suffix := ""
			if len(preview) > 6 {
				preview = preview[:6]
				suffix = " ..."
			}
			lines = append(lines, "   Ingredients: "+strings.Join(preview, ", ")+suffix)
		}
	}
	return strings.Join(lines, "\n")
}

// scaleIngredients rescales numeric quantities in ingredient lines,
// leaving units and everything unparseable untouched.
func scaleIngredients(ingredients []string, from, to int) []string {
	if from <= 0 {
		from = defaultServings
	}
	factor := float64(to) / float64(from)

	out := make([]string, 0, len(ingredients))
	for _, line := range ingredients {
		out = append(out, scaleNumRe.ReplaceAllStringFunc(line, func(match string) string {
			parts := scaleNumRe.FindStringSubmatch(match)
			value, err := strconv.ParseFloat(strings.ReplaceAll(parts[1], ",", "."), 64)
			if err != nil {
				return match
			}
			return formatQuantity(value*factor) + parts[2]
		}))
	}
	return out
}

func formatQuantity(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 1, 64), "0"), ".")
}

func consolidateShoppingList(results []domain.RankedRecipe) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range results {
		for _, ingredient := range r.Recipe.Ingredients {
			trimmed := strings.TrimSpace(ingredient)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, trimmed)
		}
	}
	return out
}
