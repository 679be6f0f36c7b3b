package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/msgdex/internal/domain"
	"github.com/kailas-cloud/msgdex/internal/domain/search/criteria"
	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
	"github.com/kailas-cloud/msgdex/internal/domain/segment"
	"github.com/kailas-cloud/msgdex/internal/metrics"
	healthuc "github.com/kailas-cloud/msgdex/internal/usecase/health"
	jobsuc "github.com/kailas-cloud/msgdex/internal/usecase/jobs"
	searchuc "github.com/kailas-cloud/msgdex/internal/usecase/search"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

type fakeBackend struct {
	lastStrategy string
	lastCriteria criteria.Criteria
	res          result.Result
	err          error
	terms        []string
	stats        searchuc.Statistics
}

func (b *fakeBackend) search(name string, c criteria.Criteria) (result.Result, error) {
	b.lastStrategy = name
	b.lastCriteria = c
	return b.res, b.err
}

func (b *fakeBackend) SearchInvertedIndex(_ context.Context, c criteria.Criteria) (result.Result, error) {
	return b.search("inverted_index", c)
}

func (b *fakeBackend) SearchVector(_ context.Context, c criteria.Criteria) (result.Result, error) {
	return b.search("vector", c)
}

func (b *fakeBackend) SearchSyntax(_ context.Context, c criteria.Criteria) (result.Result, error) {
	return b.search("syntax", c)
}

func (b *fakeBackend) SearchHybrid(_ context.Context, c criteria.Criteria) (result.Result, error) {
	return b.search("hybrid", c)
}

func (b *fakeBackend) GetSuggestions(_ context.Context, _ string, _ int) ([]string, error) {
	return b.terms, b.err
}

func (b *fakeBackend) GetStatistics(_ context.Context) (searchuc.Statistics, error) {
	return b.stats, b.err
}

type memJobStore struct {
	jobs map[string]*jobsuc.SegmentationJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*jobsuc.SegmentationJob)}
}

func (s *memJobStore) Save(_ context.Context, j *jobsuc.SegmentationJob) error {
	s.jobs[j.ID()] = j
	return nil
}

func (s *memJobStore) Load(_ context.Context, id string) (*jobsuc.SegmentationJob, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	return j, nil
}

type stubSegmentWriter struct {
	saved int
}

func (w *stubSegmentWriter) Save(_ context.Context, _ segment.Segment) error {
	w.saved++
	return nil
}

func (w *stubSegmentWriter) IsSpanProcessed(_ context.Context, _ int64, _ []segment.Message) (bool, error) {
	return false, nil
}

type stubIndexer struct {
	indexed int
}

func (x *stubIndexer) IndexSegment(_ context.Context, _ segment.Segment, _ [][]float32) error {
	x.indexed++
	return nil
}

func (x *stubIndexer) AddSuggestions(_ context.Context, _ []string) error { return nil }

type stubEmbedder struct {
	err error
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type okPinger struct{}

func (okPinger) Ping(_ context.Context) error { return nil }

type testEnv struct {
	server  *Server
	backend *fakeBackend
	store   *memJobStore
	embed   *stubEmbedder
}

func newTestEnv() *testEnv {
	backend := &fakeBackend{}
	store := newMemJobStore()
	embed := &stubEmbedder{}
	logger := zap.NewNop()

	srv := NewServer(
		searchuc.New(backend, logger),
		jobsuc.New(store, &stubSegmentWriter{}, &stubIndexer{}, embed, logger),
		healthuc.New(okPinger{}, nil),
		logger,
	)
	return &testEnv{server: srv, backend: backend, store: store, embed: embed}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestSearch_OK(t *testing.T) {
	env := newTestEnv()
	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	items := []result.Item{
		result.NewItem(1, 7, "deployment rolled back", ts, 42, nil, 0.9, nil, nil),
		result.NewItem(2, 7, "deployment fixed", ts.Add(time.Minute), 43, nil, 0.7, nil, nil),
	}
	env.backend.res = result.New(items, 2, 0, 20, "inverted_index")

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search",
		map[string]any{"query": "deployment"})

	if rr.Code != http.StatusOK {
		t.Fatalf("search: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody[searchResponse](t, rr)
	if resp.SessionID == "" {
		t.Error("search response has empty session_id")
	}
	if resp.Strategy != "inverted_index" {
		t.Errorf("strategy = %q, want %q", resp.Strategy, "inverted_index")
	}
	if len(resp.Items) != 2 || resp.Total != 2 {
		t.Errorf("items = %d, total = %d, want 2, 2", len(resp.Items), resp.Total)
	}
	if resp.Items[0].Content != "deployment rolled back" {
		t.Errorf("first item content = %q", resp.Items[0].Content)
	}
	if env.backend.lastStrategy != "inverted_index" {
		t.Errorf("backend strategy = %q, want default inverted_index", env.backend.lastStrategy)
	}
}

func TestSearch_OmittedTakeDefaults(t *testing.T) {
	env := newTestEnv()
	env.backend.res = result.New(nil, 0, 0, criteria.DefaultTake, "inverted_index")

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search",
		map[string]any{"query": "deployment"})

	if rr.Code != http.StatusOK {
		t.Fatalf("search: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got := env.backend.lastCriteria.Take(); got != criteria.DefaultTake {
		t.Errorf("backend take = %d, want %d", got, criteria.DefaultTake)
	}
}

func TestSearch_StrategyDispatch(t *testing.T) {
	for _, strat := range []string{"inverted_index", "vector", "syntax", "hybrid"} {
		env := newTestEnv()
		env.backend.res = result.New(nil, 0, 0, 20, "inverted_index")

		rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search",
			map[string]any{"query": "q", "strategy": strat})

		if rr.Code != http.StatusOK {
			t.Errorf("strategy %s: got %d, want %d", strat, rr.Code, http.StatusOK)
		}
		if env.backend.lastStrategy != strat {
			t.Errorf("backend called with %q, want %q", env.backend.lastStrategy, strat)
		}
	}
}

func TestSearch_UnknownStrategy_400(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search",
		map[string]any{"query": "q", "strategy": "semantic"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown strategy: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != CodeStrategyNotSupported {
		t.Errorf("code = %q, want %q", resp.Code, CodeStrategyNotSupported)
	}
}

func TestSearch_EmptyQuery_400(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search",
		map[string]any{"query": "   "})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty query: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != CodeValidationFailed {
		t.Errorf("code = %q, want %q", resp.Code, CodeValidationFailed)
	}
}

func TestSearch_InvalidDateRangeFilter_400(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search", map[string]any{
		"query": "q",
		"filter": map[string]any{
			"start_date": "2025-06-02T00:00:00Z",
			"end_date":   "2025-06-01T00:00:00Z",
		},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid filter: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearch_BackendUnavailable_503(t *testing.T) {
	env := newTestEnv()
	env.backend.err = fmt.Errorf("dial: %w", domain.ErrBackendUnavailable)

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search",
		map[string]any{"query": "q"})

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("backend down: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != CodeBackendUnavailable {
		t.Errorf("code = %q, want %q", resp.Code, CodeBackendUnavailable)
	}
}

func TestSearch_LargeTakeWarning(t *testing.T) {
	env := newTestEnv()
	env.backend.res = result.New(nil, 0, 0, 80, "inverted_index")

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search",
		map[string]any{"query": "q", "take": 80})

	if rr.Code != http.StatusOK {
		t.Fatalf("large take: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeBody[searchResponse](t, rr)
	if len(resp.Warnings) == 0 {
		t.Error("expected a warning for take over the soft limit")
	}
}

func TestAnalyzeQuery(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search/analyze",
		map[string]any{"query": `"error budget" -staging from:alice`})

	if rr.Code != http.StatusOK {
		t.Fatalf("analyze: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeBody[map[string]any](t, rr)
	if resp["has_advanced_syntax"] != true {
		t.Errorf("has_advanced_syntax = %v, want true", resp["has_advanced_syntax"])
	}
}

func TestAnalyzeQuery_Empty_400(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search/analyze",
		map[string]any{"query": ""})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty analyze query: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSuggest(t *testing.T) {
	env := newTestEnv()
	env.backend.terms = []string{"deploy", "deployment"}

	rr := doJSON(t, env.server.Routes(), "GET", "/api/v1/search/suggest?prefix=dep", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("suggest: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeBody[map[string][]string](t, rr)
	if len(resp["suggestions"]) != 2 {
		t.Errorf("suggestions = %v, want 2 terms", resp["suggestions"])
	}
}

func TestSuggest_MissingPrefix_400(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "GET", "/api/v1/search/suggest", nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing prefix: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStatistics(t *testing.T) {
	env := newTestEnv()
	env.backend.stats = searchuc.Statistics{TotalDocuments: 120, TotalTerms: 900, IndexSizeBytes: 4096}

	rr := doJSON(t, env.server.Routes(), "GET", "/api/v1/search/stats", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("stats: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeBody[map[string]int64](t, rr)
	if resp["total_documents"] != 120 {
		t.Errorf("total_documents = %d, want 120", resp["total_documents"])
	}
}

func jobMessages(n int) []map[string]any {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msgs := make([]map[string]any, n)
	for i := range msgs {
		msgs[i] = map[string]any{
			"id":        int64(i + 1),
			"author_id": int64(100 + i%2),
			"content":   "discussing deployment rollout details again",
			"timestamp": base.Add(time.Duration(i) * time.Minute),
		}
	}
	return msgs
}

func TestJobLifecycle(t *testing.T) {
	env := newTestEnv()
	routes := env.server.Routes()

	rr := doJSON(t, routes, "POST", "/api/v1/jobs", map[string]any{
		"conversation_id": 7,
		"messages":        jobMessages(6),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create job: got %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	created := decodeBody[jobResponse](t, rr)
	if created.ID == "" {
		t.Fatal("created job has empty id")
	}
	if created.Status != "pending" {
		t.Errorf("created status = %q, want pending", created.Status)
	}
	if loc := rr.Header().Get("Location"); !strings.HasSuffix(loc, created.ID) {
		t.Errorf("Location = %q, want suffix %q", loc, created.ID)
	}

	rr = doJSON(t, routes, "POST", "/api/v1/jobs/"+created.ID+"/run", map[string]any{})
	if rr.Code != http.StatusOK {
		t.Fatalf("run job: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	ran := decodeBody[jobResponse](t, rr)
	if ran.Status != "completed" {
		t.Fatalf("run status = %q, want completed", ran.Status)
	}
	if ran.Result == nil || !ran.Result.Success {
		t.Fatalf("run result = %+v, want success", ran.Result)
	}
	if ran.StartedAt == nil || ran.CompletedAt == nil {
		t.Error("completed job is missing started_at or completed_at")
	}

	rr = doJSON(t, routes, "GET", "/api/v1/jobs/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get job: got %d, want %d", rr.Code, http.StatusOK)
	}
	got := decodeBody[jobResponse](t, rr)
	if got.Status != "completed" {
		t.Errorf("get status = %q, want completed", got.Status)
	}
}

func TestCreateJob_MissingMessages_400(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/jobs", map[string]any{
		"conversation_id": 7,
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing messages: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != CodeValidationFailed {
		t.Errorf("code = %q, want %q", resp.Code, CodeValidationFailed)
	}
}

func TestGetJob_Missing_404(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "GET", "/api/v1/jobs/nope", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing job: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRunJob_EmbedFailure_ReportsFailedJob(t *testing.T) {
	env := newTestEnv()
	env.embed.err = fmt.Errorf("quota: %w", domain.ErrEmbeddingProviderError)
	routes := env.server.Routes()

	rr := doJSON(t, routes, "POST", "/api/v1/jobs", map[string]any{
		"conversation_id": 7,
		"messages":        jobMessages(6),
	})
	created := decodeBody[jobResponse](t, rr)

	rr = doJSON(t, routes, "POST", "/api/v1/jobs/"+created.ID+"/run", map[string]any{})
	if rr.Code != http.StatusOK {
		t.Fatalf("run failing job: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	failed := decodeBody[jobResponse](t, rr)
	if failed.Status != "failed" {
		t.Fatalf("status = %q, want failed", failed.Status)
	}
	if failed.Result == nil || failed.Result.ErrorKind != "embedding_error" {
		t.Errorf("result = %+v, want error_kind embedding_error", failed.Result)
	}
	if !failed.CanRetry {
		t.Error("failed job should still be retryable")
	}

	// Fix the provider and retry through the API.
	env.embed.err = nil
	rr = doJSON(t, routes, "POST", "/api/v1/jobs/"+created.ID+"/retry", map[string]any{})
	if rr.Code != http.StatusOK {
		t.Fatalf("retry: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	retried := decodeBody[jobResponse](t, rr)
	if retried.Status != "pending" || retried.RetryCount != 1 {
		t.Fatalf("retried = %s/%d, want pending/1", retried.Status, retried.RetryCount)
	}

	rr = doJSON(t, routes, "POST", "/api/v1/jobs/"+created.ID+"/run", map[string]any{})
	done := decodeBody[jobResponse](t, rr)
	if done.Status != "completed" {
		t.Errorf("after retry status = %q, want completed", done.Status)
	}
}

func TestRetryJob_Pending_409(t *testing.T) {
	env := newTestEnv()
	routes := env.server.Routes()

	rr := doJSON(t, routes, "POST", "/api/v1/jobs", map[string]any{
		"conversation_id": 7,
		"messages":        jobMessages(6),
	})
	created := decodeBody[jobResponse](t, rr)

	rr = doJSON(t, routes, "POST", "/api/v1/jobs/"+created.ID+"/retry", map[string]any{})
	if rr.Code != http.StatusConflict {
		t.Fatalf("retry pending: got %d, want %d", rr.Code, http.StatusConflict)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != CodeInvalidTransition {
		t.Errorf("code = %q, want %q", resp.Code, CodeInvalidTransition)
	}
}

func TestCancelJob(t *testing.T) {
	env := newTestEnv()
	routes := env.server.Routes()

	rr := doJSON(t, routes, "POST", "/api/v1/jobs", map[string]any{
		"conversation_id": 7,
		"messages":        jobMessages(6),
	})
	created := decodeBody[jobResponse](t, rr)

	rr = doJSON(t, routes, "POST", "/api/v1/jobs/"+created.ID+"/cancel",
		map[string]any{"reason": "superseded"})
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	cancelled := decodeBody[jobResponse](t, rr)
	if cancelled.Status != "cancelled" {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}

	rr = doJSON(t, routes, "POST", "/api/v1/jobs/"+created.ID+"/run", map[string]any{})
	if rr.Code != http.StatusConflict {
		t.Errorf("run cancelled: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCancelJob_MissingReason_400(t *testing.T) {
	env := newTestEnv()
	routes := env.server.Routes()

	rr := doJSON(t, routes, "POST", "/api/v1/jobs", map[string]any{
		"conversation_id": 7,
		"messages":        jobMessages(6),
	})
	created := decodeBody[jobResponse](t, rr)

	rr = doJSON(t, routes, "POST", "/api/v1/jobs/"+created.ID+"/cancel", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("cancel without reason: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "GET", "/health", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("health: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.server.Routes(), "GET", "/metrics", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "msgdex") {
		t.Error("metrics output does not expose application collectors")
	}
}

func TestErrorHandlers_UnknownError_500(t *testing.T) {
	env := newTestEnv()
	env.backend.err = errors.New("boom")

	rr := doJSON(t, env.server.Routes(), "POST", "/api/v1/search",
		map[string]any{"query": "q"})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("opaque error: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Code != CodeInternalError {
		t.Errorf("code = %q, want %q", resp.Code, CodeInternalError)
	}
	if strings.Contains(resp.Message, "boom") {
		t.Errorf("internal error leaked details: %q", resp.Message)
	}
}
