package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

const products = `Brand,Rating,ReviewCount,Price,Cleaned_Categories
Acme,4.5,120,19.99,"['beauty', 'face']"
Acme,4.1,80,24.50,"['beauty']"
Glow,3.9,15,9.99,"['face', 'skin']"
Glow,4.8,300,12.00,"['skin']"
Zest,2.5,3,5.25,
`

const linearModel = `{"kind": "linear", "feature_names": ["ReviewCount", "Brand_encoded", "beauty", "face"],
  "intercept": 3.14159, "coefficients": {"ReviewCount": 0.001, "beauty": 0.2}}`

// newTestServer returns a server whose model path points into a temp dir. An empty
// model body leaves the artifact missing.
func newTestServer(t *testing.T, modelBody string) *Server {
	t.Helper()
	p := filepath.Join(t.TempDir(), "xgb_model.json")
	if modelBody != "" {
		if err := os.WriteFile(p, []byte(modelBody), 0o644); err != nil {
			t.Fatalf("write model: %v", err)
		}
	}
	return New(Options{ModelPath: p, StrictSchema: true, MaxUploadBytes: 1 << 20})
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, s *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ctype)
	return do(t, s.Handler(), req)
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Predict Product Rating", `value="beauty,face"`, `value="100"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Visual Analysis") {
		t.Fatalf("no dataset section before an upload")
	}
}

func TestUploadShowsPreviewAndCharts(t *testing.T) {
	s := newTestServer(t, "")
	rec := upload(t, s, "products.csv", products)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no session cookie")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	body := do(t, s.Handler(), req).Body.String()
	for _, want := range []string{"Visual Analysis", "<td>Acme</td>", "Rating Distribution", "Correlation Heatmap", "data:image/svg&#43;xml;base64,", "Top 20 Categories by Count"} {
		if !strings.Contains(body, want) && !strings.Contains(body, strings.ReplaceAll(want, "&#43;", "+")) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(body, "banner warning") {
		t.Fatalf("unexpected warning banner")
	}
}

func TestUploadCategoryWarning(t *testing.T) {
	s := newTestServer(t, "")
	bad := strings.Replace(products, `"['skin']"`, `"[skin]"`, 1)
	rec := upload(t, s, "products.csv", bad)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	body := do(t, s.Handler(), req).Body.String()
	if !strings.Contains(body, "Could not parse") || !strings.Contains(body, "Skipping category barplot.") {
		t.Fatalf("warning banner missing")
	}
	if strings.Contains(body, "Top 20 Categories by Count") {
		t.Fatalf("category chart should be skipped")
	}
	if !strings.Contains(body, "Rating Distribution") {
		t.Fatalf("other charts should still render")
	}
}

func TestUploadRejected(t *testing.T) {
	s := newTestServer(t, "")
	cases := []struct {
		name, file, content, want string
	}{
		{"not csv", "products.xlsx", products, "only .csv files are accepted"},
		{"malformed", "products.csv", "Brand,Rating\nAc\"me,4.5\n", "upload: read row 1"},
		{"empty", "products.csv", "", "dataset is empty"},
		{"wide row", "products.csv", "Brand,Rating\nAcme,4.5\nGlow,3.9,extra\n", "read row 2: too many fields"},
	}
	for _, c := range cases {
		rec := upload(t, s, c.file, c.content)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", c.name, rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, c.want) || !strings.Contains(body, "banner error") {
			t.Fatalf("%s: expected error banner with %q", c.name, c.want)
		}
		if strings.Contains(body, "goroutine") {
			t.Fatalf("%s: stack trace leaked", c.name)
		}
	}
}

func postForm(t *testing.T, s *Server, vals url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(t, s.Handler(), req)
}

func defaultVals() url.Values {
	return url.Values{"review_count": {"5"}, "brand_encoded": {"100"}, "categories": {"beauty,face"}}
}

func TestPredictPage(t *testing.T) {
	rec := postForm(t, newTestServer(t, linearModel), defaultVals())
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Predicted Rating: 3.35") {
		t.Fatalf("missing success banner")
	}
}

func TestPredictPageMissingArtifact(t *testing.T) {
	rec := postForm(t, newTestServer(t, ""), defaultVals())
	if rec.Code != http.StatusOK {
		t.Fatalf("page must still render, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "banner error") || !strings.Contains(body, "model file was not found") {
		t.Fatalf("missing error banner")
	}
	if !strings.Contains(body, "Could not predict. Ensure model file exists and inputs are valid.") {
		t.Fatalf("error banner should lead with the generic message")
	}
	if strings.Contains(body, "goroutine") || strings.Contains(body, "Predicted Rating") {
		t.Fatalf("unexpected page content")
	}
}

func TestPredictPageBadNumber(t *testing.T) {
	vals := defaultVals()
	vals.Set("review_count", "lots")
	body := postForm(t, newTestServer(t, linearModel), vals).Body.String()
	if !strings.Contains(body, "review_count must be a whole number") {
		t.Fatalf("missing invalid input banner")
	}
	if !strings.Contains(body, `value="lots"`) {
		t.Fatalf("form should keep the submitted value")
	}
}

func TestPredictKeepsDataset(t *testing.T) {
	s := newTestServer(t, linearModel)
	cookie := upload(t, s, "products.csv", products).Result().Cookies()[0]
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(defaultVals().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	body := do(t, s.Handler(), req).Body.String()
	if !strings.Contains(body, "Rating Distribution") || !strings.Contains(body, "Predicted Rating: 3.35") {
		t.Fatalf("prediction should re-render the dataset section")
	}
}

func apiPredict(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, s.Handler(), req)
}

func TestAPIPredictStatuses(t *testing.T) {
	ok := newTestServer(t, linearModel)
	cases := []struct {
		name   string
		s      *Server
		body   string
		status int
		kind   string
	}{
		{"missing artifact", newTestServer(t, ""), `{"review_count":5,"brand_encoded":100,"categories":"beauty"}`, http.StatusNotFound, "not_found"},
		{"schema mismatch", ok, `{"review_count":5,"brand_encoded":100,"categories":"toys"}`, http.StatusUnprocessableEntity, "schema_mismatch"},
		{"negative", ok, `{"review_count":-1,"brand_encoded":100}`, http.StatusBadRequest, "invalid_input"},
		{"unknown field", ok, `{"reviews":5}`, http.StatusBadRequest, "invalid_input"},
		{"corrupt", newTestServer(t, "not json"), `{"review_count":5}`, http.StatusInternalServerError, "corrupt"},
	}
	for _, c := range cases {
		rec := apiPredict(t, c.s, c.body)
		if rec.Code != c.status {
			t.Fatalf("%s: status %d, want %d (%s)", c.name, rec.Code, c.status, rec.Body.String())
		}
		var er errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
			t.Fatalf("%s: decode: %v", c.name, err)
		}
		if er.Error.Kind != c.kind {
			t.Fatalf("%s: kind %q, want %q", c.name, er.Error.Kind, c.kind)
		}
	}

	rec := apiPredict(t, ok, `{"review_count":5,"brand_encoded":100,"categories":"beauty,face"}`)
	var pr predictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pr); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("status %d: %v", rec.Code, err)
	}
	if pr.Rating != 3.35 {
		t.Fatalf("rating %v", pr.Rating)
	}
}

func TestAPIDatasetLifecycle(t *testing.T) {
	s := newTestServer(t, "")
	body, ctype := multipartBody(t, "products.csv", products)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", body)
	req.Header.Set("Content-Type", ctype)
	rec := do(t, s.Handler(), req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var ds datasetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ds.Rows != 5 || len(ds.Preview) != 5 || len(ds.Charts) == 0 {
		t.Fatalf("unexpected dataset: %+v", ds)
	}
	if ds.Charts[0].Spec.Title != "Rating Distribution" || ds.Charts[0].URL == "" {
		t.Fatalf("first chart: %+v", ds.Charts[0])
	}

	svg := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, ds.Charts[0].URL, nil))
	if svg.Code != http.StatusOK || svg.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("chart status %d type %q", svg.Code, svg.Header().Get("Content-Type"))
	}
	if !strings.Contains(svg.Body.String(), "<svg") {
		t.Fatalf("chart body is not svg")
	}

	get := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+ds.ID, nil))
	if get.Code != http.StatusOK {
		t.Fatalf("get dataset status %d", get.Code)
	}
	for _, path := range []string{
		"/api/v1/datasets/" + ds.ID + "/charts/999.svg",
		"/api/v1/datasets/" + ds.ID + "/charts/x.svg",
		"/api/v1/datasets/00000000-0000-0000-0000-000000000000",
		"/api/v1/nope",
	} {
		if rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}

func TestUploadSizeLimit(t *testing.T) {
	s := New(Options{ModelPath: "missing.json", MaxUploadBytes: 1 << 10})
	big := "Rating\n" + strings.Repeat("4.5\n", 2000)
	rec := upload(t, s, "big.csv", big)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "banner error") {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, "")
	if rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("healthz %d", rec.Code)
	}
	do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/", nil))
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ecomdash_http_request_duration_seconds") {
		t.Fatalf("metrics endpoint missing request histogram")
	}
}
