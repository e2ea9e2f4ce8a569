package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"intelpipeline/internal/config"
	"intelpipeline/internal/domain"
	"intelpipeline/internal/infrastructure/publish"
	"intelpipeline/internal/infrastructure/storage"
	"intelpipeline/internal/usecase"
)

type stubSource struct {
	ds        domain.IntelligenceDataset
	companies map[string]domain.Company
}

func (s *stubSource) FetchIntelligence(context.Context) (domain.IntelligenceDataset, error) {
	return s.ds, nil
}

func (s *stubSource) FetchCompanies(context.Context) (map[string]domain.Company, error) {
	return s.companies, nil
}

func newTestRouter(t *testing.T, source *stubSource, store *storage.MemoryStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch, err := usecase.NewOrchestrator(usecase.Deps{
		Store:     store,
		Source:    source,
		Publisher: publish.NewStorePublisher(store, nil),
		Relevance: config.RelevanceConfig{Threshold: 80},
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	r := gin.New()
	RegisterRoutes(r, NewHandler(orch, func() any {
		return map[string]any{"total_api_calls": 3}
	}))
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid response JSON: %v\n%s", err, w.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &stubSource{}, storage.NewMemoryStore(0, 0))
	w := doRequest(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRefreshIntelligenceTrigger(t *testing.T) {
	t.Parallel()

	source := &stubSource{ds: domain.IntelligenceDataset{
		Articles: []domain.Article{{Title: "A", RelevanceScore: 90}},
	}}
	store := storage.NewMemoryStore(0, 0)
	r := newTestRouter(t, source, store)

	w := doRequest(r, http.MethodPost, "/v1/ops/refresh-intelligence?actor=tester", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	meta := body["meta"].(map[string]any)
	if meta["success"] != true {
		t.Fatalf("unexpected meta %v", meta)
	}

	snap, _ := store.Intelligence(context.Background())
	if len(snap.Dataset.Articles) != 1 {
		t.Fatal("trigger did not persist the snapshot")
	}

	logs, _ := store.RecentLogs(context.Background(), 1)
	if len(logs) != 1 || logs[0].UserID != "tester" {
		t.Fatalf("actor not recorded: %+v", logs)
	}
}

func TestGenerateInsightNothingToDo(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &stubSource{}, storage.NewMemoryStore(0, 0))
	w := doRequest(r, http.MethodPost, "/v1/ops/generate-insight", "")

	// NoData is an expected outcome, not an upstream failure.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	meta := decodeBody(t, w)["meta"].(map[string]any)
	if meta["success"] != false || meta["error_reason"] != "NoData" {
		t.Fatalf("unexpected meta %v", meta)
	}
}

func TestUpdateCompanyStatus(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore(0, 0)
	if err := store.SetCompanies(context.Background(), domain.CompanyDataset{
		"acme": {ID: "acme", Name: "Acme", Status: domain.StatusUnknown},
	}); err != nil {
		t.Fatal(err)
	}
	r := newTestRouter(t, &stubSource{}, store)

	w := doRequest(r, http.MethodPut, "/v1/companies/acme/status", `{"status":"Signatory","notes":"confirmed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	companies, _ := store.Companies(context.Background())
	if companies["acme"].Status != domain.StatusSignatory {
		t.Fatalf("status not applied: %+v", companies["acme"])
	}

	w = doRequest(r, http.MethodPut, "/v1/companies/acme/status", `{"notes":"missing status"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing status accepted: %d", w.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore(0, 0)
	for i := 0; i < 5; i++ {
		_ = store.AppendLog(context.Background(), domain.LogEntry{EventType: "test", Message: "e"})
	}
	r := newTestRouter(t, &stubSource{}, store)

	w := doRequest(r, http.MethodGet, "/v1/logs?limit=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	meta := body["meta"].(map[string]any)
	if meta["count"] != float64(3) {
		t.Fatalf("unexpected meta %v", meta)
	}
}

func TestExportEndpoint(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &stubSource{}, storage.NewMemoryStore(0, 0))
	w := doRequest(r, http.MethodGet, "/v1/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("export not served as attachment: %q", got)
	}
	var report map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("export not JSON: %v", err)
	}
	if report["plugin_version"] != usecase.Version {
		t.Fatalf("unexpected export %v", report)
	}
}

func TestCompaniesEndpoint(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore(0, 0)
	_ = store.SetCompanies(context.Background(), domain.CompanyDataset{
		"beta": {ID: "beta", Name: "Beta"},
		"acme": {ID: "acme", Name: "Acme"},
	})
	r := newTestRouter(t, &stubSource{}, store)

	w := doRequest(r, http.MethodGet, "/v1/companies", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	data := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("unexpected data %v", data)
	}
	first := data[0].(map[string]any)
	if first["id"] != "acme" {
		t.Fatalf("companies not sorted by id: %v", first)
	}
}

func TestUsageEndpoint(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &stubSource{}, storage.NewMemoryStore(0, 0))
	w := doRequest(r, http.MethodGet, "/v1/usage", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := decodeBody(t, w)["data"].(map[string]any)
	if data["total_api_calls"] != float64(3) {
		t.Fatalf("unexpected usage data %v", data)
	}
}
