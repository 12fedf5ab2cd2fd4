package ports

import (
	"context"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

// RecipeSyncer is the inbound contract for one full ingestion pass.
type RecipeSyncer interface {
	SyncByPassID(ctx context.Context, passID string) (*domain.SyncReport, error)
}

// RecipePlanner is the inbound contract for ingredient-based ranking.
type RecipePlanner interface {
	Plan(ctx context.Context, query domain.Query) ([]domain.RankedRecipe, error)
}

// RecipeReader is the inbound read model for stored recipes.
type RecipeReader interface {
	GetByID(ctx context.Context, id string) (*domain.Recipe, error)
}

// ChatAgent is the inbound contract for free-text requests.
type ChatAgent interface {
	Handle(ctx context.Context, message string, useGenerative bool) (*domain.AgentReply, error)
}
