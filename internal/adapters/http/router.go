// Package httpadapter exposes the query pipeline over HTTP.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
	"github.com/kirillkom/kb-orchestrator/internal/core/ports"
	"github.com/kirillkom/kb-orchestrator/internal/observability/metrics"
)

type Router struct {
	ask     ports.QueryService
	search  ports.SearchService
	results ports.ResultReader
	metrics *metrics.HTTPServerMetrics
	cfg     RouterConfig
}

type RouterConfig struct {
	Service string

	// Health reporting: which partitions have a knowledge base bound.
	GeneralConfigured bool
	SupportConfigured bool

	// Traffic control. Zero values disable the respective gate.
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	ask ports.QueryService,
	search ports.SearchService,
	results ports.ResultReader,
	m *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	if cfg.Service == "" {
		cfg.Service = "api"
	}
	return &Router{
		ask:     ask,
		search:  search,
		results: results,
		metrics: m,
		cfg:     cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/queries", rt.postQuery)
	mux.HandleFunc("/v1/search", rt.postSearch)
	mux.HandleFunc("/v1/jobs/", rt.getJobResult)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, 50*time.Millisecond)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.Service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"partitions": map[string]bool{
			"general": rt.cfg.GeneralConfigured,
			"support": rt.cfg.SupportConfigured,
		},
	})
}

type askRequest struct {
	Query       string   `json:"query"`
	PartitionID string   `json:"partitionId"`
	Language    string   `json:"language"`
	TopK        int      `json:"topK"`
	ScoreFloor  *float64 `json:"scoreFloor"`
	CallbackURL string   `json:"callbackUrl"`
	JobID       string   `json:"jobId"`
}

type acceptedResponse struct {
	Accepted bool   `json:"accepted"`
	JobID    string `json:"jobId"`
}

func (rt *Router) postQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	outcome, err := rt.ask.Ask(r.Context(), domain.Query{
		Text:        req.Query,
		PartitionID: domain.PartitionID(req.PartitionID),
		Language:    req.Language,
		TopK:        req.TopK,
		ScoreFloor:  req.ScoreFloor,
		CallbackURL: req.CallbackURL,
		JobID:       req.JobID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	rt.recordQueryOutcome(outcome, req.CallbackURL != "", time.Since(start))

	if outcome.Accepted {
		writeJSON(w, http.StatusOK, acceptedResponse{Accepted: true, JobID: outcome.JobID})
		return
	}
	writeJSON(w, http.StatusOK, outcome.Result)
}

func (rt *Router) postSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.search.Search(r.Context(), domain.Query{
		Text:        req.Query,
		PartitionID: domain.PartitionID(req.PartitionID),
		Language:    req.Language,
		TopK:        req.TopK,
		ScoreFloor:  req.ScoreFloor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getJobResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.results == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "job store not configured"})
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if jobID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	result, err := rt.results.GetByJobID(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) recordQueryOutcome(outcome *domain.DispatchOutcome, hadCallback bool, duration time.Duration) {
	if rt.metrics == nil || outcome == nil || outcome.Result == nil {
		return
	}

	partition := string(outcome.Routing.PartitionID)
	rt.metrics.RecordQuery(
		rt.cfg.Service,
		partition,
		string(outcome.Result.Mode),
		len(outcome.Result.Citations),
		duration,
	)
	if hadCallback {
		status := "delivered"
		if outcome.Result.CallbackError != "" {
			status = "failed"
		}
		rt.metrics.RecordWebhookDelivery(rt.cfg.Service, status)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
