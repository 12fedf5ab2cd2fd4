package ports

import (
	"context"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

// SegmentSource pulls the ordered raw segment sequence from the personal
// notes source. No assumption about total count or nesting depth.
type SegmentSource interface {
	FetchSegments(ctx context.Context) ([]domain.RawSegment, error)
}

// RecipeRepository persists the recipe base across sync passes.
type RecipeRepository interface {
	UpsertRecipes(ctx context.Context, recipes []domain.Recipe) error
	GetByID(ctx context.Context, id string) (*domain.Recipe, error)
	ListAll(ctx context.Context) ([]domain.Recipe, error)
}

// EnrichmentCache is the durable store of previously fetched enrichment
// results. Get returns domain.ErrCacheMiss for absent or unreadable
// entries; Put overwrites wholesale.
type EnrichmentCache interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Put(ctx context.Context, entry domain.CacheEntry) error
}

// EnrichmentProvider is one external source in the fallback chain.
// Transient transport failures are wrapped with domain.ErrTemporary.
type EnrichmentProvider interface {
	Name() string
	Enrich(ctx context.Context, title, body string) (domain.ProviderResult, error)
}

// ExplanationGenerator phrases an already-ranked result list for the user.
type ExplanationGenerator interface {
	Explain(ctx context.Context, question string, results []domain.RankedRecipe) (string, error)
}

// MessageQueue publishes/consumes sync-pass events.
type MessageQueue interface {
	PublishSyncRequested(ctx context.Context, passID string) error
	SubscribeSyncRequested(ctx context.Context, handler func(context.Context, string) error) error
}
