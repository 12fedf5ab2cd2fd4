package spoonacular

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

const defaultBaseURL = "https://api.spoonacular.com"

// Client looks up recipes through the Spoonacular REST API. Enrichment is a
// two-step flow: complexSearch resolves the best-matching recipe id, then the
// information endpoint returns ingredients and instructions.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(baseURL, apiKey string, requestsPerSecond float64) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (c *Client) Name() string { return "spoonacular" }

// Enrich returns an empty result (not an error) when no recipe matches the
// title, so the fallback chain can advance to the next provider.
func (c *Client) Enrich(ctx context.Context, title, _ string) (domain.ProviderResult, error) {
	id, err := c.searchID(ctx, title)
	if err != nil {
		return domain.ProviderResult{}, wrapTemporaryIfNeeded("search", err)
	}
	if id == 0 {
		return domain.ProviderResult{}, nil
	}

	result, err := c.fetchInformation(ctx, id)
	if err != nil {
		return domain.ProviderResult{}, wrapTemporaryIfNeeded("information", err)
	}
	return result, nil
}

func (c *Client) searchID(ctx context.Context, title string) (int, error) {
	query := url.Values{}
	query.Set("apiKey", c.apiKey)
	query.Set("query", strings.TrimSpace(title))
	query.Set("number", "1")

	var response struct {
		Results []struct {
			ID int `json:"id"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "/recipes/complexSearch", query, &response, "search"); err != nil {
		return 0, err
	}
	if len(response.Results) == 0 {
		return 0, nil
	}
	return response.Results[0].ID, nil
}

func (c *Client) fetchInformation(ctx context.Context, id int) (domain.ProviderResult, error) {
	query := url.Values{}
	query.Set("apiKey", c.apiKey)
	query.Set("includeNutrition", "false")

	var response struct {
		ExtendedIngredients []struct {
			Original string `json:"original"`
		} `json:"extendedIngredients"`
		AnalyzedInstructions []struct {
			Steps []struct {
				Step string `json:"step"`
			} `json:"steps"`
		} `json:"analyzedInstructions"`
		Instructions string `json:"instructions"`
	}
	path := fmt.Sprintf("/recipes/%d/information", id)
	if err := c.getJSON(ctx, path, query, &response, "information"); err != nil {
		return domain.ProviderResult{}, err
	}

	result := domain.ProviderResult{
		Ingredients: []string{},
		Steps:       []string{},
	}
	for _, ing := range response.ExtendedIngredients {
		if text := strings.TrimSpace(ing.Original); text != "" {
			result.Ingredients = append(result.Ingredients, text)
		}
	}
	for _, block := range response.AnalyzedInstructions {
		for _, step := range block.Steps {
			if text := strings.TrimSpace(step.Step); text != "" {
				result.Steps = append(result.Steps, text)
			}
		}
	}
	if len(result.Steps) == 0 {
		result.Steps = splitPlainInstructions(response.Instructions)
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any, operation string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spoonacular %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

var (
	htmlTagRe      = regexp.MustCompile(`<[^>]+>`)
	sentenceEndRe  = regexp.MustCompile(`[.\n]+`)
	maxPlainSteps  = 12
	minPlainLength = 4
)

func splitPlainInstructions(instructions string) []string {
	plain := strings.TrimSpace(htmlTagRe.ReplaceAllString(instructions, ""))
	if plain == "" {
		return []string{}
	}

	steps := []string{}
	for _, part := range sentenceEndRe.Split(plain, -1) {
		part = strings.TrimSpace(part)
		if len(part) < minPlainLength {
			continue
		}
		steps = append(steps, part)
		if len(steps) == maxPlainSteps {
			break
		}
	}
	return steps
}
