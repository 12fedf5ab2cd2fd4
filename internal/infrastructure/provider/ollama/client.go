package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

// Client talks to a local Ollama instance. It backs two adapters: the
// generative enrichment provider (last link in the fallback chain) and the
// answer phrasing generator the chat agent uses.
type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
}

func New(baseURL, genModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Provider asks the model for a plausible ingredient list and cooking steps
// when no lookup provider produced anything.
type Provider struct {
	client *Client
}

func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Enrich(ctx context.Context, title, body string) (domain.ProviderResult, error) {
	respText, err := p.client.generateJSON(ctx, buildEnrichmentPrompt(title, body))
	if err != nil {
		return domain.ProviderResult{}, wrapTemporaryIfNeeded("enrich", err)
	}

	var parsed struct {
		Ingredients []string `json:"ingredients"`
		Steps       []string `json:"steps"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &parsed); err != nil {
		return domain.ProviderResult{}, fmt.Errorf("parse enrichment json: %w", err)
	}

	result := domain.ProviderResult{
		Ingredients: trimNonEmpty(parsed.Ingredients),
		Steps:       trimNonEmpty(parsed.Steps),
	}
	return result, nil
}

// Generator phrases a ranked result list as a short recommendation.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Explain(ctx context.Context, question string, results []domain.RankedRecipe) (string, error) {
	text, err := g.client.generateText(ctx, buildExplanationPrompt(question, results))
	if err != nil {
		return "", wrapTemporaryIfNeeded("explain", err)
	}
	return text, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func trimNonEmpty(values []string) []string {
	out := []string{}
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
