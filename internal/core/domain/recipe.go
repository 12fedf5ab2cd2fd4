package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type EnrichmentStatus string

const (
	EnrichmentNotNeeded EnrichmentStatus = "not-needed"
	EnrichmentPending   EnrichmentStatus = "pending"
	EnrichmentEnriched  EnrichmentStatus = "enriched"
	EnrichmentFailed    EnrichmentStatus = "failed"
)

type RecipeOrigin string

const (
	OriginNative   RecipeOrigin = "native"
	OriginEnriched RecipeOrigin = "enriched"
)

type Recipe struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Body               string           `json:"body,omitempty"`
	Ingredients        []string         `json:"ingredients"`
	Steps              []string         `json:"steps"`
	Source             RecipeOrigin     `json:"source"`
	CompletenessScore  float64          `json:"completeness_score"`
	EnrichmentStatus   EnrichmentStatus `json:"enrichment_status"`
	EnrichmentProvider string           `json:"enrichment_provider,omitempty"`
	Position           int              `json:"-"`
	SyncPassID         string           `json:"-"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Clone returns a deep copy so pipeline stages never alias slices of the
// record they received.
func (r Recipe) Clone() Recipe {
	out := r
	if r.Ingredients != nil {
		out.Ingredients = append([]string(nil), r.Ingredients...)
	}
	if r.Steps != nil {
		out.Steps = append([]string(nil), r.Steps...)
	}
	return out
}

type CacheEntry struct {
	Key         string    `json:"key"`
	Ingredients []string  `json:"ingredients"`
	Steps       []string  `json:"steps"`
	Provider    string    `json:"provider"`
	FetchedAt   time.Time `json:"timestamp"`
}

type ProviderResult struct {
	Ingredients []string
	Steps       []string
}

func (r ProviderResult) Empty() bool {
	return len(r.Ingredients) == 0 && len(r.Steps) == 0
}

// CacheKey derives the deterministic enrichment cache key from a recipe's
// normalized title and body.
func CacheKey(title, body string) string {
	normalized := normalizeForKey(title) + "\n" + normalizeForKey(body)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func normalizeForKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

type SyncReport struct {
	PassID        string        `json:"pass_id"`
	Parsed        int           `json:"parsed"`
	Complete      int           `json:"complete"`
	Enriched      int           `json:"enriched"`
	Failed        int           `json:"failed"`
	CacheHits     int           `json:"cache_hits"`
	ProviderCalls int           `json:"provider_calls"`
	Duration      time.Duration `json:"-"`
}
