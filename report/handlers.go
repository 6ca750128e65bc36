package report

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/uiproof/runlog"
)

var errNoHistory = errors.New("no run history configured")

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errNoHistory)
		return
	}
	limit := queryInt(r, "limit", 50)

	runs, err := s.cfg.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	total, err := s.cfg.Store.CountRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "total": total})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errNoHistory)
		return
	}
	id := chi.URLParam(r, "id")

	run, err := s.cfg.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, errors.New("run not found"))
		return
	}
	artifacts, err := s.cfg.Store.ArtifactsByRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	events, err := s.cfg.Store.EventsByRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":       run,
		"artifacts": artifacts,
		"events":    events,
	})
}

// handleArtifact streams artifact bytes from disk. The stored path is trusted
// because only the capture runner writes artifact rows.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errNoHistory)
		return
	}
	runID := chi.URLParam(r, "id")
	artifactID, err := strconv.ParseInt(chi.URLParam(r, "artifactID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bad artifact id"))
		return
	}

	art, err := s.cfg.Store.GetArtifact(r.Context(), artifactID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if art == nil || art.RunID != runID {
		writeError(w, http.StatusNotFound, errors.New("artifact not found"))
		return
	}

	f, err := os.Open(art.Path)
	if err != nil {
		// Row outlived the file: pruned out of band or moved.
		writeError(w, http.StatusNotFound, errors.New("artifact file missing"))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentTypeFor(art.Kind))
	w.Header().Set("Content-Length", strconv.FormatInt(art.Bytes, 10))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}

func contentTypeFor(kind string) string {
	switch kind {
	case runlog.KindPNG:
		return "image/png"
	case runlog.KindPDF:
		return "application/pdf"
	case runlog.KindDOM:
		return "text/markdown; charset=utf-8"
	}
	return "application/octet-stream"
}

type triggerReq struct {
	Scenario string `json:"scenario"`
	URL      string `json:"url,omitempty"`
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Run == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("runs disabled"))
		return
	}

	var req triggerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sc, ok := s.cfg.Scenarios[req.Scenario]
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown scenario"))
		return
	}
	if req.URL != "" {
		sc.URL = req.URL
	}

	res, err := s.cfg.Run(r.Context(), sc)
	if err != nil {
		body := map[string]any{"error": err.Error()}
		if res != nil {
			body["run_id"] = res.RunID
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleScenarios(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(s.cfg.Scenarios))
	for name := range s.cfg.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": names})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
