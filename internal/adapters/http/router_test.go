package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

type fakeQueryService struct {
	outcome *domain.DispatchOutcome
	err     error
	lastQ   domain.Query
}

func (f *fakeQueryService) Ask(_ context.Context, q domain.Query) (*domain.DispatchOutcome, error) {
	f.lastQ = q
	return f.outcome, f.err
}

type fakeSearchService struct {
	result *domain.SearchResult
	err    error
}

func (f *fakeSearchService) Search(context.Context, domain.Query) (*domain.SearchResult, error) {
	return f.result, f.err
}

type fakeResultReader struct {
	result *domain.Result
	err    error
}

func (f *fakeResultReader) GetByJobID(context.Context, string) (*domain.Result, error) {
	return f.result, f.err
}

func newTestRouter(ask *fakeQueryService, search *fakeSearchService, reader *fakeResultReader) *Router {
	return NewRouter(ask, search, reader, nil, RouterConfig{
		Service:           "api",
		GeneralConfigured: true,
		SupportConfigured: true,
	})
}

func TestPostQueryReturnsInlineResult(t *testing.T) {
	ask := &fakeQueryService{outcome: &domain.DispatchOutcome{
		JobID: "job-1",
		Result: &domain.Result{
			JobID:  "job-1",
			Prompt: "how do I fix the label printer",
			Answer: "restart it [1]",
			Citations: []domain.Citation{
				{Ref: 1, Title: "Printer guide"},
			},
			Mode: domain.ModeRetrieval,
			TopK: 8,
			TS:   1724600000,
		},
	}}
	handler := newTestRouter(ask, &fakeSearchService{}, nil).Handler()

	body := `{"query":"how do I fix the label printer","topK":8}`
	req := httptest.NewRequest(http.MethodPost, "/v1/queries", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded["jobId"] != "job-1" || decoded["answer"] != "restart it [1]" {
		t.Fatalf("unexpected response: %v", decoded)
	}
	if decoded["mode"] != "retrieval" {
		t.Fatalf("mode not serialized: %v", decoded["mode"])
	}
	if ask.lastQ.TopK != 8 {
		t.Fatalf("topK not passed through: %d", ask.lastQ.TopK)
	}
}

func TestPostQueryAcceptedResponseOmitsResult(t *testing.T) {
	ask := &fakeQueryService{outcome: &domain.DispatchOutcome{
		Accepted: true,
		JobID:    "job-2",
		Result:   &domain.Result{JobID: "job-2", Answer: "delivered elsewhere"},
	}}
	handler := newTestRouter(ask, &fakeSearchService{}, nil).Handler()

	body := `{"query":"anything","callbackUrl":"https://hooks.example/cb"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/queries", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var decoded map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded["accepted"] != true || decoded["jobId"] != "job-2" {
		t.Fatalf("unexpected accepted response: %v", decoded)
	}
	if _, ok := decoded["answer"]; ok {
		t.Fatalf("accepted response must not inline the result: %v", decoded)
	}
}

func TestPostQueryErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "validate query", errors.New("empty")), http.StatusBadRequest},
		{"backend", domain.WrapError(domain.ErrBackend, "retrieve", errors.New("down")), http.StatusBadGateway},
		{"unsupported model", domain.WrapError(domain.ErrUnsupportedModel, "invoke", errors.New("titan")), http.StatusBadGateway},
		{"temporary", domain.WrapError(domain.ErrTemporary, "bus", errors.New("flaky")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(&fakeQueryService{err: tc.err}, &fakeSearchService{}, nil).Handler()
			req := httptest.NewRequest(http.MethodPost, "/v1/queries", strings.NewReader(`{"query":"q"}`))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestPostSearchReturnsRoutingEcho(t *testing.T) {
	search := &fakeSearchService{result: &domain.SearchResult{
		Content: []domain.Passage{{Text: "passage", Partition: domain.PartitionSupport}},
		Routing: domain.SearchRouting{
			PartitionID: domain.PartitionSupport,
			Language:    domain.LangEnglish,
			TopK:        5,
			ScoreFloor:  0.4,
		},
	}}
	handler := newTestRouter(&fakeQueryService{}, search, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":"broken screen","topK":5,"scoreFloor":0.4}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var decoded struct {
		Content []map[string]any `json:"content"`
		Routing map[string]any   `json:"routing"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Routing["partitionId"] != "support" || decoded.Routing["topK"] != float64(5) {
		t.Fatalf("routing echo missing: %v", decoded.Routing)
	}
	if len(decoded.Content) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(decoded.Content))
	}
}

func TestGetJobResult(t *testing.T) {
	reader := &fakeResultReader{result: &domain.Result{JobID: "job-3", Answer: "stored"}}
	handler := newTestRouter(&fakeQueryService{}, &fakeSearchService{}, reader).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-3", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"job-3"`) {
		t.Fatalf("stored result not returned: %s", res.Body.String())
	}
}

func TestGetJobResultNotFound(t *testing.T) {
	reader := &fakeResultReader{err: domain.WrapError(domain.ErrJobNotFound, "get query result", errors.New(`job "missing"`))}
	handler := newTestRouter(&fakeQueryService{}, &fakeSearchService{}, reader).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestHealthzReportsPartitionBindings(t *testing.T) {
	router := NewRouter(&fakeQueryService{}, &fakeSearchService{}, nil, nil, RouterConfig{
		Service:           "api",
		GeneralConfigured: true,
	})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	router.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var decoded struct {
		Status     string          `json:"status"`
		Partitions map[string]bool `json:"partitions"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Status != "ok" || !decoded.Partitions["general"] || decoded.Partitions["support"] {
		t.Fatalf("unexpected health payload: %+v", decoded)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	handler := newTestRouter(&fakeQueryService{}, &fakeSearchService{}, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id not echoed, got %q", got)
	}
}
