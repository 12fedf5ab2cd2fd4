package usecase

import (
	"context"
	"fmt"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/core/ports"
)

// BuildQuery turns free pantry text into a transient ranking query.
func BuildQuery(text string, exclude []string, opts domain.QueryOptions) domain.Query {
	tokens := make([]string, 0, 8)
	for _, token := range splitAlphaNumLower(text) {
		if len(token) > 1 {
			tokens = append(tokens, token)
		}
	}
	return domain.Query{
		RawText:              text,
		RequestedIngredients: dedupKeepOrder(tokens),
		Exclude:              exclude,
		Options:              opts,
	}
}

// PlanRecipesUseCase ranks the stored recipe base against a pantry query.
type PlanRecipesUseCase struct {
	repo   ports.RecipeRepository
	ranker *Ranker
}

func NewPlanRecipesUseCase(repo ports.RecipeRepository, ranker *Ranker) *PlanRecipesUseCase {
	return &PlanRecipesUseCase{repo: repo, ranker: ranker}
}

// Plan ranks against a stable snapshot of the recipe base at call time.
func (uc *PlanRecipesUseCase) Plan(ctx context.Context, query domain.Query) ([]domain.RankedRecipe, error) {
	recipes, err := uc.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return uc.ranker.Rank(recipes, query), nil
}
