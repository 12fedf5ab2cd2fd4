package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/core/ports"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/resilience"
)

const defaultEnrichWorkers = 4

// EnrichStats counts enrichment outcomes of one pass.
type EnrichStats struct {
	CacheHits     atomic.Int64
	ProviderCalls atomic.Int64
	Coalesced     atomic.Int64
	Failures      atomic.Int64
}

// EnrichRecipesUseCase coordinates cache lookup, the provider fallback
// chain and cache write-through for incomplete recipes.
//
// Requests sharing a cache key are coalesced: at most one outstanding
// provider call exists per key, late arrivals await the in-flight result.
type EnrichRecipesUseCase struct {
	cache     ports.EnrichmentCache
	providers []ports.EnrichmentProvider
	executor  *resilience.Executor
	workers   int

	group singleflight.Group
}

func NewEnrichRecipesUseCase(
	cache ports.EnrichmentCache,
	providers []ports.EnrichmentProvider,
	executor *resilience.Executor,
	workers int,
) *EnrichRecipesUseCase {
	if workers <= 0 {
		workers = defaultEnrichWorkers
	}
	return &EnrichRecipesUseCase{
		cache:     cache,
		providers: providers,
		executor:  executor,
		workers:   workers,
	}
}

// Enrich fills the empty fields of a single incomplete recipe and updates
// its enrichment status. The input record is never mutated; enrichment
// never overwrites a non-empty native field. Failure is a per-recipe
// outcome recorded on the returned record, not an error.
func (uc *EnrichRecipesUseCase) Enrich(ctx context.Context, r domain.Recipe) domain.Recipe {
	var stats EnrichStats
	return uc.enrichOne(ctx, r, &stats)
}

// EnrichAll enriches every pending recipe with bounded concurrency.
// Output order equals input order regardless of completion order.
func (uc *EnrichRecipesUseCase) EnrichAll(ctx context.Context, recipes []domain.Recipe) ([]domain.Recipe, *EnrichStats) {
	out := make([]domain.Recipe, len(recipes))
	stats := &EnrichStats{}

	g := new(errgroup.Group)
	g.SetLimit(uc.workers)
	for i, r := range recipes {
		i, r := i, r
		g.Go(func() error {
			if r.EnrichmentStatus != domain.EnrichmentPending {
				out[i] = r
				return nil
			}
			out[i] = uc.enrichOne(ctx, r, stats)
			return nil
		})
	}
	// Workers never return errors: a failed recipe keeps its original data
	// and must not abort enrichment of the remaining set.
	_ = g.Wait()
	return out, stats
}

func (uc *EnrichRecipesUseCase) enrichOne(ctx context.Context, r domain.Recipe, stats *EnrichStats) domain.Recipe {
	key := domain.CacheKey(r.Title, r.Body)

	v, err, shared := uc.group.Do(key, func() (any, error) {
		return uc.lookupOrFetch(ctx, key, r.Title, r.Body, stats)
	})
	if shared {
		stats.Coalesced.Add(1)
	}
	if err != nil {
		stats.Failures.Add(1)
		slog.Warn("recipe_enrichment_failed", "recipe_id", r.ID, "error", err)
		out := r.Clone()
		out.EnrichmentStatus = domain.EnrichmentFailed
		return out
	}
	return mergeEnrichment(r, v.(*domain.CacheEntry))
}

func (uc *EnrichRecipesUseCase) lookupOrFetch(
	ctx context.Context,
	key, title, body string,
	stats *EnrichStats,
) (*domain.CacheEntry, error) {
	entry, err := uc.cache.Get(ctx, key)
	if err == nil {
		stats.CacheHits.Add(1)
		return entry, nil
	}
	if !domain.IsKind(err, domain.ErrCacheMiss) {
		// Read failures degrade to a miss; re-enrichment repairs the entry.
		slog.Warn("enrichment_cache_read_error", "key", key, "error", err)
	}

	var lastErr error
	for _, provider := range uc.providers {
		stats.ProviderCalls.Add(1)

		var result domain.ProviderResult
		err := uc.executor.Execute(ctx, "enrich."+provider.Name(), func(ctx context.Context) error {
			res, err := provider.Enrich(ctx, title, body)
			if err != nil {
				return err
			}
			result = res
			return nil
		}, classifyProviderError)
		if err != nil {
			lastErr = err
			slog.Warn("enrichment_provider_failed", "provider", provider.Name(), "error", err)
			continue
		}
		if result.Empty() {
			continue
		}

		fetched := &domain.CacheEntry{
			Key:         key,
			Ingredients: emptyIfNil(result.Ingredients),
			Steps:       emptyIfNil(result.Steps),
			Provider:    provider.Name(),
			FetchedAt:   time.Now().UTC(),
		}
		if err := uc.cache.Put(ctx, *fetched); err != nil {
			// The result is still usable this pass; only reuse is lost.
			slog.Warn("enrichment_cache_write_error", "key", key, "error", err)
		}
		return fetched, nil
	}

	if lastErr == nil {
		lastErr = errors.New("all providers returned empty results")
	}
	return nil, domain.WrapError(domain.ErrNoProviderResult, "enrich recipe", lastErr)
}

// mergeEnrichment fills only the empty fields of r from the cache entry.
func mergeEnrichment(r domain.Recipe, entry *domain.CacheEntry) domain.Recipe {
	out := r.Clone()
	filled := false

	if len(out.Ingredients) == 0 && len(entry.Ingredients) > 0 {
		out.Ingredients = append([]string(nil), entry.Ingredients...)
		filled = true
	}
	if len(out.Steps) == 0 && len(entry.Steps) > 0 {
		out.Steps = append([]string(nil), entry.Steps...)
		filled = true
	}
	if filled {
		out.Source = domain.OriginEnriched
		out.EnrichmentProvider = entry.Provider
	}
	out.EnrichmentStatus = domain.EnrichmentEnriched
	return out
}

func classifyProviderError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) || domain.IsKind(err, domain.ErrTemporary) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func emptyIfNil(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
