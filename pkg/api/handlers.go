package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ethpandaops/rlquery/pkg/group"
	"github.com/ethpandaops/rlquery/pkg/plot"
	"github.com/ethpandaops/rlquery/pkg/query"
	"github.com/ethpandaops/rlquery/pkg/series"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryResponse struct {
	Category string                  `json:"category"`
	Task     string                  `json:"task"`
	Pattern  string                  `json:"pattern"`
	Keyed    map[string]query.Result `json:"keyed"`
	Unkeyed  []query.Result          `json:"unkeyed"`
}

// handleQuery runs one query against the data root.
func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeQuery(r.URL.Query(), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	cat, err := query.ParseCategory(req.Category)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	set, err := s.deps.Querier.Query(s.deps.Root, cat, req.Task, req.Pattern)
	if err != nil {
		s.writeQueryError(w, err)

		return
	}

	keyed := set.Keyed
	if keyed == nil {
		keyed = map[string]query.Result{}
	}

	unkeyed := set.Unkeyed
	if unkeyed == nil {
		unkeyed = []query.Result{}
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Category: cat.String(),
		Task:     req.Task,
		Pattern:  req.Pattern,
		Keyed:    keyed,
		Unkeyed:  unkeyed,
	})
}

// handleFigure collects and averages a figure without rendering it.
func (s *server) handleFigure(w http.ResponseWriter, r *http.Request) {
	req := figureRequest{SplitByMetrics: true}
	if err := decodeQuery(r.URL.Query(), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	opts := plot.Options{
		Root:           s.deps.Root,
		Task:           req.Task,
		Regs:           req.Regs,
		SplitKeys:      req.SplitKeys,
		Metrics:        req.Metrics,
		XName:          req.XName,
		XBound:         series.Bound{Min: req.XMin, Max: req.XMax},
		Legends:        req.Legends,
		SplitByMetrics: req.SplitByMetrics,
		UseCache:       true,
		Resample:       req.Resample,
	}

	res, err := s.deps.Plotter.Plot(opts, nil)
	if err != nil {
		s.writeQueryError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleCatalogTasks lists the tasks present in the catalog.
func (s *server) handleCatalogTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.deps.Catalog.ListTasks(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list catalog tasks")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})

		return
	}

	if tasks == nil {
		tasks = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// handleCatalogEntries lists the catalog entries of one task.
func (s *server) handleCatalogEntries(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if err := decodeQuery(r.URL.Query(), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	category := ""

	if req.Category != "" {
		cat, err := query.ParseCategory(req.Category)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

			return
		}

		category = cat.String()
	}

	task := chi.URLParam(r, "task")

	entries, err := s.deps.Catalog.ListEntries(r.Context(), task, category)
	if err != nil {
		s.log.WithError(err).WithField("task", task).Error("Failed to list catalog entries")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task":    task,
		"entries": entries,
	})
}

// writeQueryError maps query and grouping failures to HTTP statuses.
func (s *server) writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrUnsupportedCategory):
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
	case errors.Is(err, group.ErrAmbiguousGroup):
		writeJSON(w, http.StatusConflict, errorResponse{err.Error()})
	case errors.Is(err, plot.ErrInvalidOptions):
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
	case errors.Is(err, query.ErrParse):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{err.Error()})
	default:
		s.log.WithError(err).Error("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{"internal error"})
	}
}
