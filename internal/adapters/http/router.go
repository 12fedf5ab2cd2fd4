package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
	"github.com/pantrypilot/recipe-agent/internal/core/ports"
	"github.com/pantrypilot/recipe-agent/internal/core/usecase"
	"github.com/pantrypilot/recipe-agent/internal/observability/metrics"
)

type Router struct {
	planner ports.RecipePlanner
	agent   ports.ChatAgent
	reader  ports.RecipeReader
	queue   ports.MessageQueue
	metrics *metrics.HTTPServerMetrics
	service string
}

func NewRouter(
	planner ports.RecipePlanner,
	agent ports.ChatAgent,
	reader ports.RecipeReader,
	queue ports.MessageQueue,
	httpMetrics *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		planner: planner,
		agent:   agent,
		reader:  reader,
		queue:   queue,
		metrics: httpMetrics,
		service: service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/sync", rt.requestSync)
	mux.HandleFunc("/v1/plan", rt.planRecipes)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/recipes/", rt.getRecipeByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestSync accepts the pass and hands it to the worker over the queue;
// parsing and enrichment happen asynchronously.
func (rt *Router) requestSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	passID := uuid.NewString()
	if err := rt.queue.PublishSyncRequested(r.Context(), passID); err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSyncRequest(rt.service)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"pass_id": passID,
		"status":  "accepted",
	})
}

type planRequest struct {
	Ingredients string   `json:"ingredients"`
	Exclude     []string `json:"exclude"`
	TopK        int      `json:"top_k"`
	Strict      bool     `json:"strict"`
}

type rankedRecipeResponse struct {
	Recipe     domain.Recipe `json:"recipe"`
	Score      float64       `json:"score"`
	IsComplete bool          `json:"is_complete"`
}

func (rt *Router) planRecipes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Ingredients) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ingredients is required"})
		return
	}

	start := time.Now()
	query := usecase.BuildQuery(req.Ingredients, req.Exclude, domain.QueryOptions{
		TopK:   req.TopK,
		Strict: req.Strict,
	})
	results, err := rt.planner.Plan(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordPlanObservation(rt.service, "/v1/plan", len(results), time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": toRankedResponses(results),
	})
}

type chatRequest struct {
	Message       string `json:"message"`
	UseGenerative bool   `json:"use_generative"`
}

type chatResponse struct {
	domain.AgentReply
	Results []rankedRecipeResponse `json:"results,omitempty"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	reply, err := rt.agent.Handle(r.Context(), req.Message, req.UseGenerative)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordChatIntent(rt.service, string(reply.Intent))
	}
	writeJSON(w, http.StatusOK, chatResponse{
		AgentReply: *reply,
		Results:    toRankedResponses(reply.Results),
	})
}

func (rt *Router) getRecipeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/recipes/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recipe id is required"})
		return
	}

	recipe, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func toRankedResponses(results []domain.RankedRecipe) []rankedRecipeResponse {
	out := make([]rankedRecipeResponse, 0, len(results))
	for _, result := range results {
		out = append(out, rankedRecipeResponse{
			Recipe:     result.Recipe,
			Score:      result.Score,
			IsComplete: result.IsComplete,
		})
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
