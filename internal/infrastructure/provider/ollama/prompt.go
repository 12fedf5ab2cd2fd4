package ollama

import (
	"fmt"
	"strings"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

func buildEnrichmentPrompt(title, body string) string {
	const maxSnippet = 2000
	snippet := strings.TrimSpace(body)
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	prompt := `You are a recipe assistant.
Produce a plausible ingredient list and 6-8 cooking steps for the recipe below.
Return a strict JSON object with keys:
ingredients (array of strings with quantities), steps (array of strings).
No markdown, no extra keys, no commentary.

Recipe title: ` + strings.TrimSpace(title)
	if snippet != "" {
		prompt += "\n\nKnown notes:\n" + snippet
	}
	return prompt
}

func buildExplanationPrompt(question string, results []domain.RankedRecipe) string {
	const maxCandidates = 5
	const maxIngredients = 8

	var candidates strings.Builder
	for idx, result := range results {
		if idx == maxCandidates {
			break
		}
		ingredients := result.Recipe.Ingredients
		if len(ingredients) > maxIngredients {
			ingredients = ingredients[:maxIngredients]
		}
		candidates.WriteString(fmt.Sprintf(
			"[%d] title=%s source=%s score=%.0f\nkey ingredients: %s\n\n",
			idx+1,
			result.Recipe.Title,
			result.Recipe.Source,
			result.Score,
			strings.Join(ingredients, ", "),
		))
	}

	return fmt.Sprintf(`You are a kitchen planning assistant.
Recommend 2-3 of the best options below with a one-line reason each.
Keep the answer under 6 sentences. If no candidate fits, say so directly
and suggest a pragmatic alternative.

User question:
%s

Candidates:
%s`, question, candidates.String())
}
