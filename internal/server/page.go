package server

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/KaramelBytes/ecomdash/internal/logging"
	"github.com/KaramelBytes/ecomdash/internal/model"
	"github.com/KaramelBytes/ecomdash/internal/predict"
	"github.com/KaramelBytes/ecomdash/internal/session"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const sessionCookie = "ecomdash_session"

type banner struct {
	Level string // success, warning, error
	Text  string
}

type chartView struct {
	Title string
	Src   template.URL
	Err   string
}

type datasetView struct {
	Name     string
	Rows     int
	Header   []string
	Preview  [][]string
	Charts   []chartView
	Warnings []string
}

type formView struct {
	ReviewCount  string
	BrandEncoded string
	Categories   string
}

type pageData struct {
	Dataset        *datasetView
	Form           formView
	UploadBanners  []banner
	PredictBanners []banner
}

func defaultForm() formView {
	in := predict.DefaultInput()
	return formView{
		ReviewCount:  strconv.Itoa(in.ReviewCount),
		BrandEncoded: strconv.Itoa(in.BrandEncoded),
		Categories:   in.Categories,
	}
}

func (s *Server) newPage(d *session.Dataset) *pageData {
	p := &pageData{Form: defaultForm()}
	if d != nil {
		p.Dataset = s.datasetView(d)
	}
	return p
}

func (s *Server) datasetView(d *session.Dataset) *datasetView {
	v := &datasetView{
		Name:    d.Name,
		Rows:    d.Table.Len(),
		Header:  d.Table.Header,
		Preview: d.Table.Head(s.opts.PreviewRows),
	}
	if d.Charts == nil {
		return v
	}
	v.Warnings = d.Charts.Warnings
	for _, c := range d.Charts.Charts {
		cv := chartView{Title: c.Spec.Title}
		if c.Err != nil {
			cv.Err = c.Err.Error()
		} else {
			cv.Src = svgDataURI(c.SVG)
		}
		v.Charts = append(v.Charts, cv)
	}
	return v
}

func svgDataURI(svg []byte) template.URL {
	return template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg))
}

func writePage(w http.ResponseWriter, status int, p *pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		logging.Error().Err(err).Msg("render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func successBanner(res predict.Result) banner {
	return banner{Level: "success", Text: fmt.Sprintf("⭐ Predicted Rating: %.2f", res.Rating)}
}

// errorBanner turns a prediction failure into a user-facing message. Details stay in the log.
func errorBanner(err error) banner {
	msg := "⚠️ Could not predict. Ensure model file exists and inputs are valid."
	switch predict.Kind(err) {
	case predict.KindNotFound:
		msg += " The model file was not found."
	case predict.KindCorrupt:
		msg += " The model file could not be read."
	case predict.KindSchemaMismatch:
		var sm *model.SchemaMismatchError
		if errors.As(err, &sm) {
			msg += " Unknown categories: " + strings.Join(sm.Unknown, ", ") + "."
		}
	case predict.KindInvalidInput:
		msg += " " + capitalize(err.Error()) + "."
	}
	return banner{Level: "error", Text: msg}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}
