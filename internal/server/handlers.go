package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/ecomdash/internal/charts"
	"github.com/KaramelBytes/ecomdash/internal/logging"
	"github.com/KaramelBytes/ecomdash/internal/metrics"
	"github.com/KaramelBytes/ecomdash/internal/predict"
	"github.com/KaramelBytes/ecomdash/internal/session"
)

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// sessionID returns the caller's session id, issuing a new one when absent.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && session.Valid(c.Value) {
		return c.Value
	}
	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) current(r *http.Request) *session.Dataset {
	c, err := r.Cookie(sessionCookie)
	if err != nil || !session.Valid(c.Value) {
		return nil
	}
	d, _ := s.store.Get(c.Value)
	return d
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writePage(w, http.StatusOK, s.newPage(s.current(r)))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	t, name, err := loadUpload(r, "file", s.opts.MaxUploadBytes)
	if err != nil {
		metrics.Uploads.WithLabelValues(uploadOutcome(err)).Inc()
		logging.Warn().Err(err).Str("file", name).Msg("upload rejected")
		p := s.newPage(s.current(r))
		p.UploadBanners = []banner{{Level: "error", Text: err.Error()}}
		writePage(w, http.StatusBadRequest, p)
		return
	}
	id := sessionID(w, r)
	out := charts.RenderAll(t)
	s.store.Put(&session.Dataset{ID: id, Name: name, Table: t, Charts: out})
	metrics.Uploads.WithLabelValues("ok").Inc()
	logging.Info().Str("file", name).Int("rows", t.Len()).Int("charts", len(out.Charts)).Msg("dataset uploaded")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func uploadOutcome(err error) string {
	var ue *UploadError
	if errors.As(err, &ue) && ue.Err != nil {
		return "parse_error"
	}
	return "rejected"
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(s.current(r))
	if err := r.ParseForm(); err != nil {
		p.PredictBanners = []banner{errorBanner(&predict.InvalidInputError{Reason: "malformed form"})}
		writePage(w, http.StatusBadRequest, p)
		return
	}
	p.Form = formView{
		ReviewCount:  r.PostFormValue("review_count"),
		BrandEncoded: r.PostFormValue("brand_encoded"),
		Categories:   r.PostFormValue("categories"),
	}
	in, err := parseForm(p.Form)
	if err == nil {
		var res predict.Result
		res, err = s.predictor.Predict(r.Context(), in)
		if err == nil {
			p.PredictBanners = append(p.PredictBanners, successBanner(res))
			if len(res.Dropped) > 0 {
				p.PredictBanners = append(p.PredictBanners, banner{
					Level: "warning",
					Text:  "⚠️ Ignored categories unknown to the model: " + strings.Join(res.Dropped, ", "),
				})
			}
			writePage(w, http.StatusOK, p)
			return
		}
	}
	logging.Warn().Err(err).Str("kind", predict.Kind(err)).Msg("prediction failed")
	p.PredictBanners = []banner{errorBanner(err)}
	writePage(w, http.StatusOK, p)
}

func parseForm(f formView) (predict.Input, error) {
	rc, err := parseCount("review_count", f.ReviewCount)
	if err != nil {
		return predict.Input{}, err
	}
	be, err := parseCount("brand_encoded", f.BrandEncoded)
	if err != nil {
		return predict.Input{}, err
	}
	return predict.Input{ReviewCount: rc, BrandEncoded: be, Categories: f.Categories}, nil
}

func parseCount(field, v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &predict.InvalidInputError{Field: field, Reason: "must be a whole number"}
	}
	return n, nil
}
