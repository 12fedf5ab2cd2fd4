package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/core/ports"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/resilience"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	getErr  error
	putErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.CacheEntry)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	entry, ok := c.entries[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrCacheMiss, "fake get", errors.New(key))
	}
	return &entry, nil
}

func (c *fakeCache) Put(_ context.Context, entry domain.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.entries[entry.Key] = entry
	return nil
}

type fakeProvider struct {
	name   string
	result domain.ProviderResult
	err    error
	calls  atomic.Int64
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Enrich(context.Context, string, string) (domain.ProviderResult, error) {
	p.calls.Add(1)
	if p.err != nil {
		return domain.ProviderResult{}, p.err
	}
	return p.result, nil
}

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    1,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func pendingRecipe(id, title string) domain.Recipe {
	return domain.Recipe{
		ID:               id,
		Title:            title,
		Ingredients:      []string{},
		Steps:            []string{},
		Source:           domain.OriginNative,
		EnrichmentStatus: domain.EnrichmentPending,
	}
}

func TestEnrichCacheHitSkipsProviders(t *testing.T) {
	cache := newFakeCache()
	r := pendingRecipe("carrot-soup", "Carrot soup")
	key := domain.CacheKey(r.Title, r.Body)
	cache.entries[key] = domain.CacheEntry{
		Key:         key,
		Ingredients: []string{"4 carrots"},
		Steps:       []string{"Simmer until tender"},
		Provider:    "spoonacular",
	}
	provider := &fakeProvider{name: "spoonacular"}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{provider}, newTestExecutor(), 1)

	out, stats := uc.EnrichAll(context.Background(), []domain.Recipe{r})
	if provider.calls.Load() != 0 {
		t.Fatalf("cache hit must not call providers, got %d calls", provider.calls.Load())
	}
	if stats.CacheHits.Load() != 1 || stats.ProviderCalls.Load() != 0 {
		t.Fatalf("unexpected stats: hits=%d calls=%d", stats.CacheHits.Load(), stats.ProviderCalls.Load())
	}
	if out[0].EnrichmentStatus != domain.EnrichmentEnriched || out[0].EnrichmentProvider != "spoonacular" {
		t.Fatalf("unexpected result: %+v", out[0])
	}
}

func TestEnrichFallsBackPastFailingProvider(t *testing.T) {
	cache := newFakeCache()
	failing := &fakeProvider{
		name: "spoonacular",
		err:  domain.WrapError(domain.ErrTemporary, "spoonacular search", errors.New("503")),
	}
	working := &fakeProvider{
		name: "ollama",
		result: domain.ProviderResult{
			Ingredients: []string{"2 eggs"},
			Steps:       []string{"Whisk the eggs"},
		},
	}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{failing, working}, newTestExecutor(), 1)

	out := uc.Enrich(context.Background(), pendingRecipe("omelette", "Omelette"))
	if out.EnrichmentStatus != domain.EnrichmentEnriched {
		t.Fatalf("expected enriched, got %s", out.EnrichmentStatus)
	}
	if out.EnrichmentProvider != "ollama" || out.Source != domain.OriginEnriched {
		t.Fatalf("unexpected provenance: provider=%q source=%q", out.EnrichmentProvider, out.Source)
	}
	if working.calls.Load() != 1 {
		t.Fatalf("fallback provider should be called once, got %d", working.calls.Load())
	}
	if cache.puts != 1 {
		t.Fatalf("successful fetch must be written through, got %d puts", cache.puts)
	}
}

func TestEnrichEmptyResultAdvancesChainWithoutFailure(t *testing.T) {
	cache := newFakeCache()
	noMatch := &fakeProvider{name: "spoonacular"} // zero-value result: no match
	working := &fakeProvider{
		name:   "ollama",
		result: domain.ProviderResult{Ingredients: []string{"salt"}, Steps: []string{"Season to taste"}},
	}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{noMatch, working}, newTestExecutor(), 1)

	out, stats := uc.EnrichAll(context.Background(), []domain.Recipe{pendingRecipe("x", "Mystery dish")})
	if out[0].EnrichmentStatus != domain.EnrichmentEnriched || out[0].EnrichmentProvider != "ollama" {
		t.Fatalf("unexpected result: %+v", out[0])
	}
	if stats.Failures.Load() != 0 {
		t.Fatalf("an empty result is not a failure, got %d", stats.Failures.Load())
	}
	if stats.ProviderCalls.Load() != 2 {
		t.Fatalf("both providers should be consulted, got %d", stats.ProviderCalls.Load())
	}
}

func TestEnrichExhaustedChainKeepsNativeData(t *testing.T) {
	cache := newFakeCache()
	failing := &fakeProvider{
		name: "spoonacular",
		err:  domain.WrapError(domain.ErrTemporary, "spoonacular search", errors.New("down")),
	}
	r := pendingRecipe("carrot-soup", "Carrot soup")
	r.Ingredients = []string{"4 carrots"}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{failing}, newTestExecutor(), 1)

	out, stats := uc.EnrichAll(context.Background(), []domain.Recipe{r})
	if out[0].EnrichmentStatus != domain.EnrichmentFailed {
		t.Fatalf("expected failed status, got %s", out[0].EnrichmentStatus)
	}
	if len(out[0].Ingredients) != 1 || out[0].Ingredients[0] != "4 carrots" {
		t.Fatalf("native data must survive a failed pass: %v", out[0].Ingredients)
	}
	if out[0].Source != domain.OriginNative {
		t.Fatalf("failure must not change the origin: %s", out[0].Source)
	}
	if stats.Failures.Load() != 1 {
		t.Fatalf("expected one failure, got %d", stats.Failures.Load())
	}
	if cache.puts != 0 {
		t.Fatal("nothing to cache on an exhausted chain")
	}
}

func TestEnrichMergeFillsOnlyEmptyFields(t *testing.T) {
	cache := newFakeCache()
	provider := &fakeProvider{
		name: "spoonacular",
		result: domain.ProviderResult{
			Ingredients: []string{"provider carrots"},
			Steps:       []string{"Provider step"},
		},
	}
	r := pendingRecipe("carrot-soup", "Carrot soup")
	r.Ingredients = []string{"4 carrots", "1 onion"}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{provider}, newTestExecutor(), 1)

	out := uc.Enrich(context.Background(), r)
	if out.Ingredients[0] != "4 carrots" {
		t.Fatalf("native ingredients must win: %v", out.Ingredients)
	}
	if len(out.Steps) != 1 || out.Steps[0] != "Provider step" {
		t.Fatalf("empty steps should be filled: %v", out.Steps)
	}
	if out.Source != domain.OriginEnriched || out.EnrichmentProvider != "spoonacular" {
		t.Fatalf("filling a field marks the recipe enriched: %+v", out)
	}
}

func TestEnrichAllCoalescesIdenticalRecipes(t *testing.T) {
	cache := newFakeCache()
	provider := &fakeProvider{
		name:   "spoonacular",
		result: domain.ProviderResult{Ingredients: []string{"flour"}, Steps: []string{"Mix well"}},
	}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{provider}, newTestExecutor(), 4)

	// Same title and body everywhere: one cache key. Whether a worker joins
	// the in-flight call or lands on the freshly written cache entry, the
	// provider runs exactly once.
	recipes := make([]domain.Recipe, 6)
	for i := range recipes {
		recipes[i] = pendingRecipe("pancakes", "Pancakes")
		recipes[i].Position = i
	}

	out, _ := uc.EnrichAll(context.Background(), recipes)
	if provider.calls.Load() != 1 {
		t.Fatalf("identical recipes must coalesce to one provider call, got %d", provider.calls.Load())
	}
	for i, r := range out {
		if r.EnrichmentStatus != domain.EnrichmentEnriched {
			t.Fatalf("recipe %d not enriched: %s", i, r.EnrichmentStatus)
		}
		if r.Position != i {
			t.Fatalf("output order must follow input order: got position %d at index %d", r.Position, i)
		}
	}
}

func TestEnrichAllSkipsNonPendingRecipes(t *testing.T) {
	cache := newFakeCache()
	provider := &fakeProvider{name: "spoonacular"}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{provider}, newTestExecutor(), 2)

	done := pendingRecipe("done", "Done dish")
	done.EnrichmentStatus = domain.EnrichmentNotNeeded

	out, stats := uc.EnrichAll(context.Background(), []domain.Recipe{done})
	if provider.calls.Load() != 0 {
		t.Fatalf("non-pending recipes must be passed through, got %d calls", provider.calls.Load())
	}
	if out[0].EnrichmentStatus != domain.EnrichmentNotNeeded {
		t.Fatalf("status must be preserved: %s", out[0].EnrichmentStatus)
	}
	if stats.ProviderCalls.Load() != 0 {
		t.Fatalf("unexpected provider calls: %d", stats.ProviderCalls.Load())
	}
}

func TestEnrichCacheWriteFailureDoesNotFailThePass(t *testing.T) {
	cache := newFakeCache()
	cache.putErr = errors.New("disk full")
	provider := &fakeProvider{
		name:   "spoonacular",
		result: domain.ProviderResult{Ingredients: []string{"rice"}, Steps: []string{"Boil the rice"}},
	}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{provider}, newTestExecutor(), 1)

	out := uc.Enrich(context.Background(), pendingRecipe("rice", "Plain rice"))
	if out.EnrichmentStatus != domain.EnrichmentEnriched {
		t.Fatalf("the fetched result is still usable this pass: %s", out.EnrichmentStatus)
	}
}

func TestEnrichCacheReadErrorDegradesToMiss(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("permission denied")
	provider := &fakeProvider{
		name:   "spoonacular",
		result: domain.ProviderResult{Ingredients: []string{"beans"}, Steps: []string{"Stew the beans"}},
	}
	uc := NewEnrichRecipesUseCase(cache, []ports.EnrichmentProvider{provider}, newTestExecutor(), 1)

	out := uc.Enrich(context.Background(), pendingRecipe("beans", "Bean stew"))
	if out.EnrichmentStatus != domain.EnrichmentEnriched {
		t.Fatalf("a broken cache read must fall through to the providers: %s", out.EnrichmentStatus)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("expected one provider call, got %d", provider.calls.Load())
	}
}
