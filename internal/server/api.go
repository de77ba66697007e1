package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/KaramelBytes/ecomdash/internal/charts"
	"github.com/KaramelBytes/ecomdash/internal/logging"
	"github.com/KaramelBytes/ecomdash/internal/metrics"
	"github.com/KaramelBytes/ecomdash/internal/predict"
	"github.com/KaramelBytes/ecomdash/internal/session"
)

type apiError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

type columnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type chartInfo struct {
	Index int         `json:"index"`
	Spec  charts.Spec `json:"spec"`
	URL   string      `json:"url,omitempty"`
	Error string      `json:"error,omitempty"`
}

type datasetResponse struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Rows     int          `json:"rows"`
	Columns  []columnInfo `json:"columns"`
	Preview  [][]string   `json:"preview"`
	Charts   []chartInfo  `json:"charts"`
	Warnings []string     `json:"warnings"`
}

type predictResponse struct {
	Rating  float64  `json:"rating"`
	Raw     float64  `json:"raw"`
	Dropped []string `json:"dropped,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("marshal json response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("write json response")
	}
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, errorResponse{Error: apiError{Kind: kind, Message: message}})
}

// predictStatus maps a predictor error kind onto an HTTP status.
func predictStatus(kind string) int {
	switch kind {
	case predict.KindNotFound:
		return http.StatusNotFound
	case predict.KindSchemaMismatch:
		return http.StatusUnprocessableEntity
	case predict.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) describe(d *session.Dataset) datasetResponse {
	resp := datasetResponse{
		ID:       d.ID,
		Name:     d.Name,
		Rows:     d.Table.Len(),
		Preview:  d.Table.Head(s.opts.PreviewRows),
		Warnings: []string{},
	}
	for _, c := range d.Table.Columns() {
		resp.Columns = append(resp.Columns, columnInfo{Name: c.Name, Kind: c.Kind})
	}
	if d.Charts != nil {
		resp.Warnings = append(resp.Warnings, d.Charts.Warnings...)
		for i, c := range d.Charts.Charts {
			ci := chartInfo{Index: i, Spec: c.Spec}
			if c.Err != nil {
				ci.Error = c.Err.Error()
			} else {
				ci.URL = fmt.Sprintf("/api/v1/datasets/%s/charts/%d.svg", d.ID, i)
			}
			resp.Charts = append(resp.Charts, ci)
		}
	}
	return resp
}

func (s *Server) apiCreateDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	t, name, err := loadUpload(r, "file", s.opts.MaxUploadBytes)
	if err != nil {
		metrics.Uploads.WithLabelValues(uploadOutcome(err)).Inc()
		logging.Warn().Err(err).Str("file", name).Msg("api upload rejected")
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	d := &session.Dataset{ID: session.NewID(), Name: name, Table: t, Charts: charts.RenderAll(t)}
	s.store.Put(d)
	metrics.Uploads.WithLabelValues("ok").Inc()
	respondJSON(w, http.StatusCreated, s.describe(d))
}

func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (*session.Dataset, bool) {
	id := chi.URLParam(r, "id")
	d, ok := s.store.Get(id)
	if !session.Valid(id) || !ok {
		respondError(w, http.StatusNotFound, "not_found", "dataset not found or expired")
		return nil, false
	}
	return d, true
}

func (s *Server) apiGetDataset(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dataset(w, r); ok {
		respondJSON(w, http.StatusOK, s.describe(d))
	}
}

func (s *Server) apiChart(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dataset(w, r)
	if !ok {
		return
	}
	file := chi.URLParam(r, "file")
	i, err := strconv.Atoi(strings.TrimSuffix(file, ".svg"))
	if err != nil || !strings.HasSuffix(file, ".svg") || d.Charts == nil || i < 0 || i >= len(d.Charts.Charts) {
		respondError(w, http.StatusNotFound, "not_found", "chart not found")
		return
	}
	c := d.Charts.Charts[i]
	if c.Err != nil {
		respondError(w, http.StatusUnprocessableEntity, "chart_error", c.Err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(c.SVG)
}

func (s *Server) apiPredict(w http.ResponseWriter, r *http.Request) {
	var in predict.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, predict.KindInvalidInput, "malformed JSON body: "+err.Error())
		return
	}
	res, err := s.predictor.Predict(r.Context(), in)
	if err != nil {
		kind := predict.Kind(err)
		logging.Warn().Err(err).Str("kind", kind).Msg("api prediction failed")
		msg := err.Error()
		if kind == predict.KindInternal {
			msg = "prediction failed"
		}
		respondError(w, predictStatus(kind), kind, msg)
		return
	}
	respondJSON(w, http.StatusOK, predictResponse{Rating: res.Rating, Raw: res.Raw, Dropped: res.Dropped})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		respondError(w, http.StatusNotFound, "not_found", "no such endpoint")
		return
	}
	http.NotFound(w, r)
}
