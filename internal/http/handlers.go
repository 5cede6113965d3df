package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"custos/internal/core"
	"custos/internal/log"
	"custos/internal/services"
)

const pageTitle = "Visualização de Custos com Filtro"

// errorStatus maps a load failure to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrSourceNotFound):
		return http.StatusNotFound, "source_not_found"
	case errors.Is(err, services.ErrNotLoaded):
		return http.StatusServiceUnavailable, "not_loaded"
	default:
		return http.StatusInternalServerError, "load_error"
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"security":  s.secMetrics.snapshot(),
	})
}

// handleReady reports ready once a dataset is being served.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	cur := s.service.Current()
	if cur.Dataset == nil {
		body := map[string]any{"status": "not_ready", "source": s.service.Source()}
		if cur.Err != nil {
			body["error"] = cur.Err.Error()
		}
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body := map[string]any{
		"status":     "ready",
		"source":     cur.Dataset.Source,
		"session_id": cur.ID,
		"records":    cur.Dataset.Set.Len(),
		"loaded_at":  cur.LoadedAt.Format(time.RFC3339),
	}
	if s.templates == nil {
		body["templates"] = "not loaded"
	}
	writeJSON(w, http.StatusOK, body)
}

type indexData struct {
	Title         string
	Source        string
	Dashboard     *core.Dashboard
	ErrorTitle    string
	ErrorGuidance string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := indexData{Title: pageTitle, Source: s.service.Source()}
	status := http.StatusOK
	d, err := s.service.Dashboard(parseSelections(r.URL.Query()))
	if err != nil {
		status, _ = errorStatus(err)
		data.ErrorTitle, data.ErrorGuidance = s.failureMessages(err)
	} else {
		data.Dashboard = &d
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.requests.LogError(r.Context(), "Dashboard template execution failed", err, log.OpRender, nil)
	}
}

// handleAPIDashboard returns the full dashboard for the given filters.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	d, err := s.service.Dashboard(parseSelections(r.URL.Query()))
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleAPIFilters returns the selectable values of every filter field.
func (s *Server) handleAPIFilters(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	opts, err := s.service.Options()
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// handleAPILoads lists recent load attempts, newest first.
func (s *Server) handleAPILoads(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if s.history == nil {
		writeError(w, r, http.StatusNotFound, "history_disabled", "Histórico de cargas desativado. Defina SQLITE_DB_PATH.")
		return
	}
	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit deve estar entre 1 e 100.")
			return
		}
		limit = n
	}
	loads, err := s.history.RecentLoads(r.Context(), limit)
	if err != nil {
		s.requests.LogError(r.Context(), "List loads failed", err, "list_loads", nil)
		writeError(w, r, http.StatusInternalServerError, "storage_error", "Não foi possível ler o histórico de cargas.")
		return
	}
	writeJSON(w, http.StatusOK, loads)
}

// handleAPIReload re-reads the source. force=true reloads even when the
// source is unchanged.
func (s *Server) handleAPIReload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	res, err := s.service.Reload(r.Context(), force)
	if err != nil {
		s.writeLoadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	title, _ := s.failureMessages(err)
	s.logger.WarnContext(r.Context(), "Dashboard unavailable", log.FieldError, err, log.FieldPath, r.URL.Path)
	writeError(w, r, status, code, title)
}

func (s *Server) failureMessages(err error) (title, guidance string) {
	if errors.Is(err, services.ErrNotLoaded) {
		return "A base de dados ainda não foi carregada.", ""
	}
	return core.LoadFailureMessages(s.service.Source(), err)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Método não permitido.")
	return false
}
