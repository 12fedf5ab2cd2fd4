package bootstrap

import (
	"context"
	"fmt"

	"github.com/pantrypilot/recipe-agent/internal/config"
	"github.com/pantrypilot/recipe-agent/internal/core/ports"
	"github.com/pantrypilot/recipe-agent/internal/core/usecase"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/cache/fscache"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/provider/ollama"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/provider/spoonacular"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/queue/nats"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/repository/postgres"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/resilience"
	"github.com/pantrypilot/recipe-agent/internal/infrastructure/source/notion"
	"github.com/pantrypilot/recipe-agent/internal/lexicon"
)

type App struct {
	Config config.Config

	Queue   ports.MessageQueue
	Repo    ports.RecipeRepository
	SyncUC  ports.RecipeSyncer
	PlanUC  ports.RecipePlanner
	AgentUC ports.ChatAgent

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewRecipeRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cache, err := fscache.New(cfg.EnrichmentCachePath)
	if err != nil {
		return nil, fmt.Errorf("init enrichment cache: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	lex := lexicon.Default()
	if cfg.LexiconPath != "" {
		lex, err = lexicon.LoadFile(cfg.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
	}

	source := notion.New(cfg.NotionBaseURL, cfg.NotionToken, cfg.NotionPageID, cfg.NotionPageSize)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel)
	generator := ollama.NewGenerator(ollamaClient)

	// Lookup first; the generative provider only runs when nothing external
	// matched.
	providers := []ports.EnrichmentProvider{}
	if cfg.SpoonacularAPIKey != "" {
		providers = append(providers, spoonacular.New(cfg.SpoonacularBaseURL, cfg.SpoonacularAPIKey, cfg.SpoonacularRPS))
	}
	providers = append(providers, ollama.NewProvider(ollamaClient))

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	classifierWeights := usecase.DefaultClassifierWeights()
	if cfg.CompletenessThreshold > 0 {
		classifierWeights.Threshold = cfg.CompletenessThreshold
	}
	classifier := usecase.NewClassifier(lex, classifierWeights)
	parser := usecase.NewParser(lex)

	rankWeights := usecase.DefaultRankWeights()
	if cfg.PlanTopK > 0 {
		rankWeights.DefaultTopK = cfg.PlanTopK
	}
	ranker := usecase.NewRanker(lex, classifier, rankWeights)

	enrichUC := usecase.NewEnrichRecipesUseCase(cache, providers, executor, cfg.EnrichWorkers)
	syncUC := usecase.NewSyncRecipesUseCase(source, parser, classifier, enrichUC, repo)
	planUC := usecase.NewPlanRecipesUseCase(repo, ranker)
	agentUC := usecase.NewAgentUseCase(planUC, lex, generator)

	return &App{
		Config: cfg,

		Queue:   queue,
		Repo:    repo,
		SyncUC:  syncUC,
		PlanUC:  planUC,
		AgentUC: agentUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
