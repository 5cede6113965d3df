package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"custos/internal/core"
	"custos/internal/services"
	"custos/internal/sheets/memory"
	"custos/internal/storage"
)

type fakeHistory struct {
	loads []storage.LoadRecord
	err   error
}

func (f fakeHistory) RecentLoads(_ context.Context, limit int) ([]storage.LoadRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.loads) {
		return f.loads[:limit], nil
	}
	return f.loads, nil
}

type missingReader struct{}

func (missingReader) Source() string { return "custos.xlsx" }
func (missingReader) ReadTable(context.Context) (core.RawTable, error) {
	return core.RawTable{}, fmt.Errorf("open custos.xlsx: %w", core.ErrSourceNotFound)
}

func newLoadedServer(t *testing.T, history LoadHistory) *Server {
	t.Helper()
	svc := services.NewDashboardService(memory.NewSample(), core.DefaultSchema(), core.Options{TopN: 10, ReportDropped: true})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	srv := NewServer(":0", svc, history, nil)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func do(srv *Server, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newLoadedServer(t, nil)

	rr := do(srv, http.MethodGet, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Visualização de Custos com Filtro",
		"Base de dados &#39;memória&#39; carregada com sucesso!",
		"Subtotal de Gastos (Grupos e Tipos Selecionados)",
		"R$ 10.561,50",
		"Top Ordens com Maiores Custos",
		"Posição",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing security headers: %v", rr.Header())
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(srv, http.MethodGet, path); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	if rr := do(srv, http.MethodGet, "/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/static/style.css"); rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
}

func TestAPIDashboardFilters(t *testing.T) {
	srv := newLoadedServer(t, nil)

	rr := do(srv, http.MethodGet, "/api/dashboard?grupo=MEC&tipo=PM01")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var d core.Dashboard
	if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Filtered != 2 || d.SubtotalDisplay != "R$ 3.560,75" {
		t.Fatalf("unexpected dashboard filtered=%d subtotal=%q", d.Filtered, d.SubtotalDisplay)
	}
	if len(d.Views) != 6 {
		t.Fatalf("expected 6 views, got %d", len(d.Views))
	}
	found := false
	for _, n := range d.Notices {
		if strings.Contains(n.Message, "1 linha(s) sem valor numérico") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dropped rows notice, got %+v", d.Notices)
	}

	rr = do(srv, http.MethodGet, "/api/dashboard?grupo=")
	if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Filtered != 0 {
		t.Fatalf("empty selection should match nothing, got %d", d.Filtered)
	}

	rr = do(srv, http.MethodGet, "/api/filters")
	var filters []core.FilterState
	if err := json.Unmarshal(rr.Body.Bytes(), &filters); err != nil {
		t.Fatalf("decode filters: %v", err)
	}
	if len(filters) != 2 || filters[0].Options[0] != core.AllValues {
		t.Fatalf("unexpected filters %+v", filters)
	}
}

func TestParseSelections(t *testing.T) {
	q := url.Values{"grupo": {"A", " B ", ""}, "tipo": {""}}
	sel := parseSelections(q)
	if got := sel[core.FieldPlanningGroup]; len(got) != 2 || got[1] != "B" {
		t.Fatalf("grupo = %v", got)
	}
	if got, ok := sel[core.FieldOrderType]; !ok || len(got) != 0 {
		t.Fatalf("tipo should be an empty selection, got %v (present=%v)", got, ok)
	}
	if _, ok := parseSelections(url.Values{})[core.FieldPlanningGroup]; ok {
		t.Fatalf("absent parameter must not restrict")
	}
}

func TestLoadFailure(t *testing.T) {
	svc := services.NewDashboardService(missingReader{}, core.DefaultSchema(), core.Options{})
	_ = svc.Load(context.Background())
	srv := NewServer(":0", svc, nil, nil)
	defer srv.rateLimiter.stop()

	rr := do(srv, http.MethodGet, "/api/dashboard")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	var apiErr apiError
	if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apiErr.Error != "source_not_found" || apiErr.Path != "/api/dashboard" {
		t.Fatalf("unexpected error body %+v", apiErr)
	}
	if !strings.Contains(apiErr.Message, "ERRO: O arquivo 'custos.xlsx' não foi encontrado.") {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}

	rr = do(srv, http.MethodGet, "/")
	if rr.Code != http.StatusNotFound || !strings.Contains(rr.Body.String(), "Verifique se o arquivo está na mesma pasta") {
		t.Fatalf("index should show guidance, status=%d", rr.Code)
	}
	if rr := do(srv, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
}

func TestAPIReload(t *testing.T) {
	srv := newLoadedServer(t, nil)

	if rr := do(srv, http.MethodGet, "/api/reload"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET reload status=%d", rr.Code)
	}

	rr := do(srv, http.MethodPost, "/api/reload")
	var res services.ReloadResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Code != http.StatusOK || res.Changed {
		t.Fatalf("unchanged reload: status=%d res=%+v", rr.Code, res)
	}

	rr = do(srv, http.MethodPost, "/api/reload?force=true")
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Changed || res.Records != 6 {
		t.Fatalf("forced reload: %+v", res)
	}
}

func TestReloadRateLimit(t *testing.T) {
	srv := newLoadedServer(t, nil)
	var last int
	for i := 0; i <= postRequestsPerMinute; i++ {
		last = do(srv, http.MethodPost, "/api/reload").Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after %d posts, got %d", postRequestsPerMinute, last)
	}

	var health struct {
		Security map[string]int64 `json:"security"`
	}
	rr := do(srv, http.MethodGet, "/healthz")
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Security["rate_limit_hits"] != 1 {
		t.Fatalf("healthz security = %v, want one rate limit hit", health.Security)
	}
}

func TestAPILoads(t *testing.T) {
	srv := newLoadedServer(t, nil)
	if rr := do(srv, http.MethodGet, "/api/loads"); rr.Code != http.StatusNotFound {
		t.Fatalf("disabled history status=%d", rr.Code)
	}

	history := fakeHistory{loads: []storage.LoadRecord{
		{ID: "b", Source: "custos.xlsx", LoadedAt: time.Now(), RowsKept: 6},
		{ID: "a", Source: "custos.xlsx", LoadedAt: time.Now().Add(-time.Hour), Error: "source not found"},
	}}
	srv = newLoadedServer(t, history)

	rr := do(srv, http.MethodGet, "/api/loads?limit=1")
	var loads []storage.LoadRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &loads); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(loads) != 1 || loads[0].ID != "b" {
		t.Fatalf("unexpected loads %+v", loads)
	}
	if rr := do(srv, http.MethodGet, "/api/loads?limit=0"); rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid limit status=%d", rr.Code)
	}

	srv = newLoadedServer(t, fakeHistory{err: errors.New("disk full")})
	if rr := do(srv, http.MethodGet, "/api/loads"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("storage error status=%d", rr.Code)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.5:1234", "", "203.0.113.5"},
		{"untrusted proxy ignored", "203.0.113.5:1234", "198.51.100.1", "203.0.113.5"},
		{"trusted proxy", "10.0.0.2:1234", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy bad header", "10.0.0.2:1234", "garbage", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Fatalf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	m := &securityMetrics{}
	if !detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.env", nil), m) {
		t.Fatal("expected .env probe to be flagged")
	}
	if detectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/?grupo=MEC", nil), m) {
		t.Fatal("plain dashboard request flagged")
	}
	if m.suspiciousRequests != 1 {
		t.Fatalf("suspicious count = %d", m.suspiciousRequests)
	}
}
