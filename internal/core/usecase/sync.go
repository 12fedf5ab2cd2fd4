package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/core/ports"
)

// SyncRecipesUseCase runs one full ingestion pass: fetch segments, parse,
// classify, enrich the incomplete subset, and upsert the result set.
// A single recipe's enrichment failure never aborts the pass.
type SyncRecipesUseCase struct {
	source     ports.SegmentSource
	parser     *Parser
	classifier *Classifier
	enricher   *EnrichRecipesUseCase
	repo       ports.RecipeRepository
}

func NewSyncRecipesUseCase(
	source ports.SegmentSource,
	parser *Parser,
	classifier *Classifier,
	enricher *EnrichRecipesUseCase,
	repo ports.RecipeRepository,
) *SyncRecipesUseCase {
	return &SyncRecipesUseCase{
		source:     source,
		parser:     parser,
		classifier: classifier,
		enricher:   enricher,
		repo:       repo,
	}
}

func (uc *SyncRecipesUseCase) SyncByPassID(ctx context.Context, passID string) (*domain.SyncReport, error) {
	started := time.Now()

	segments, err := uc.source.FetchSegments(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch segments: %w", err)
	}

	recipes, err := uc.parser.Parse(segments)
	if err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}

	report := &domain.SyncReport{PassID: passID, Parsed: len(recipes)}
	now := time.Now().UTC()
	for i := range recipes {
		score, complete := uc.classifier.Classify(recipes[i])
		recipes[i].CompletenessScore = score
		if complete {
			recipes[i].EnrichmentStatus = domain.EnrichmentNotNeeded
			report.Complete++
		}
		recipes[i].SyncPassID = passID
		recipes[i].CreatedAt = now
		recipes[i].UpdatedAt = now
	}

	enriched, stats := uc.enricher.EnrichAll(ctx, recipes)
	for i := range enriched {
		if enriched[i].EnrichmentStatus != domain.EnrichmentEnriched {
			continue
		}
		// Refresh the score now that enrichment filled the gaps.
		score, _ := uc.classifier.Classify(enriched[i])
		enriched[i].CompletenessScore = score
		enriched[i].UpdatedAt = time.Now().UTC()
		report.Enriched++
	}
	report.Failed = int(stats.Failures.Load())
	report.CacheHits = int(stats.CacheHits.Load())
	report.ProviderCalls = int(stats.ProviderCalls.Load())

	if err := uc.repo.UpsertRecipes(ctx, enriched); err != nil {
		return nil, fmt.Errorf("upsert recipes: %w", err)
	}

	report.Duration = time.Since(started)
	return report, nil
}
