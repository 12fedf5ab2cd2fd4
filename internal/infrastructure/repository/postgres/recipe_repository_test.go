package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*RecipeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RecipeRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, title, body, ingredients, steps").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDScansJSONColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "title", "body", "ingredients", "steps", "source",
		"completeness_score", "enrichment_status", "enrichment_provider",
		"position", "sync_pass_id", "created_at", "updated_at",
	}).AddRow(
		"carrot-soup", "Carrot soup", "quick dinner",
		[]byte(`["4 carrots","1 onion"]`), []byte(`["Peel.","Simmer."]`),
		"enriched", 0.8, "enriched", "spoonacular", 2, "pass-1", now, now,
	)

	mock.ExpectQuery("SELECT id, title, body, ingredients, steps").
		WithArgs("carrot-soup").
		WillReturnRows(rows)

	recipe, err := repo.GetByID(context.Background(), "carrot-soup")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(recipe.Ingredients) != 2 || recipe.Ingredients[0] != "4 carrots" {
		t.Fatalf("unexpected ingredients: %v", recipe.Ingredients)
	}
	if recipe.Source != domain.OriginEnriched {
		t.Fatalf("unexpected source: %v", recipe.Source)
	}
	if recipe.EnrichmentProvider != "spoonacular" {
		t.Fatalf("unexpected provider: %v", recipe.EnrichmentProvider)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertRecipesWritesPassInOneTransaction(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	recipes := []domain.Recipe{
		{
			ID: "carrot-soup", Title: "Carrot soup", Ingredients: []string{"4 carrots"},
			Steps: []string{"Simmer."}, Source: domain.OriginNative,
			EnrichmentStatus: domain.EnrichmentNotNeeded, Position: 0,
			SyncPassID: "pass-1", CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "pancakes", Title: "Pancakes", Source: domain.OriginNative,
			EnrichmentStatus: domain.EnrichmentFailed, Position: 1,
			SyncPassID: "pass-1", CreatedAt: now, UpdatedAt: now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO recipes").
		WithArgs("carrot-soup", "Carrot soup", "", []byte(`["4 carrots"]`), []byte(`["Simmer."]`),
			"native", 0.0, "not-needed", "", 0, "pass-1", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO recipes").
		WithArgs("pancakes", "Pancakes", "", []byte(`[]`), []byte(`[]`),
			"native", 0.0, "failed", "", 1, "pass-1", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpsertRecipes(context.Background(), recipes); err != nil {
		t.Fatalf("UpsertRecipes() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertRecipesNoopOnEmptySlice(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	if err := repo.UpsertRecipes(context.Background(), nil); err != nil {
		t.Fatalf("UpsertRecipes() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListAllOrdersByPosition(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "title", "body", "ingredients", "steps", "source",
		"completeness_score", "enrichment_status", "enrichment_provider",
		"position", "sync_pass_id", "created_at", "updated_at",
	}).
		AddRow("carrot-soup", "Carrot soup", "", []byte(`[]`), []byte(`[]`), "native", 0.6, "not-needed", "", 0, "pass-1", now, now).
		AddRow("pancakes", "Pancakes", "", []byte(`[]`), []byte(`[]`), "enriched", 0.9, "enriched", "ollama", 1, "pass-1", now, now)

	mock.ExpectQuery("SELECT id, title, body, ingredients, steps(?s:.+)ORDER BY position").
		WillReturnRows(rows)

	recipes, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(recipes) != 2 {
		t.Fatalf("expected 2 recipes, got %d", len(recipes))
	}
	if recipes[0].ID != "carrot-soup" || recipes[1].ID != "pancakes" {
		t.Fatalf("unexpected order: %s, %s", recipes[0].ID, recipes[1].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
