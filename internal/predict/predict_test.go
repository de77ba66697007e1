package predict

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/KaramelBytes/ecomdash/internal/model"
)

func TestBuildFeatures(t *testing.T) {
	want := map[string]float64{"ReviewCount": 5, "Brand_encoded": 100, "beauty": 1, "face": 1}
	for _, cats := range []string{"beauty, face", "Beauty, FACE", "  beauty ,face  ", "beauty,,face,"} {
		got := BuildFeatures(Input{ReviewCount: 5, BrandEncoded: 100, Categories: cats})
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("BuildFeatures(%q) = %v, want %v", cats, got, want)
		}
	}
	if got := BuildFeatures(Input{}); len(got) != 2 {
		t.Fatalf("empty categories should only carry the numeric features: %v", got)
	}
}

const linearModel = `{"kind": "linear", "feature_names": ["ReviewCount", "Brand_encoded", "beauty", "face"],
  "intercept": 3.14159, "coefficients": {"ReviewCount": 0.001, "beauty": 0.2}}`

func newService(t *testing.T, body string, strict bool) *Service {
	t.Helper()
	p := filepath.Join(t.TempDir(), "xgb_model.json")
	if body != "" {
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write model: %v", err)
		}
	}
	return NewService(p, strict)
}

func TestServicePredictRounds(t *testing.T) {
	svc := newService(t, linearModel, true)
	res, err := svc.Predict(context.Background(), DefaultInput())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	// 3.14159 + 0.005 + 0.2
	if res.Rating != 3.35 {
		t.Fatalf("rating %v (raw %v), want 3.35", res.Rating, res.Raw)
	}
	if res.Rating != Round2(res.Raw) {
		t.Fatalf("rating must equal the rounded raw output")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{3.35159, 3.35},
		{4.125, 4.12},
		{0.125, 0.12},
		{0.375, 0.38},
		{2.675, 2.67},
		{1.005, 1},
		{-4.125, -4.12},
		{4.999, 5},
		{3, 3},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestServiceMissingArtifact(t *testing.T) {
	svc := newService(t, "", true)
	_, err := svc.Predict(context.Background(), DefaultInput())
	var nf *model.ArtifactNotFoundError
	if !errors.As(err, &nf) || Kind(err) != KindNotFound {
		t.Fatalf("expected not-found error, got %v (%s)", err, Kind(err))
	}
}

func TestServiceSchemaHandling(t *testing.T) {
	in := Input{ReviewCount: 1, BrandEncoded: 2, Categories: "beauty, toys"}

	_, err := newService(t, linearModel, true).Predict(context.Background(), in)
	if Kind(err) != KindSchemaMismatch {
		t.Fatalf("strict: expected schema mismatch, got %v", err)
	}

	res, err := newService(t, linearModel, false).Predict(context.Background(), in)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if !reflect.DeepEqual(res.Dropped, []string{"toys"}) {
		t.Fatalf("dropped: %v", res.Dropped)
	}
}

func TestServiceInvalidInput(t *testing.T) {
	svc := newService(t, linearModel, true)
	for _, in := range []Input{
		{ReviewCount: -1, BrandEncoded: 0},
		{ReviewCount: 0, BrandEncoded: -5},
		{Categories: " , ,"},
	} {
		_, err := svc.Predict(context.Background(), in)
		var ie *InvalidInputError
		if !errors.As(err, &ie) || Kind(err) != KindInvalidInput {
			t.Fatalf("%+v: expected invalid input, got %v", in, err)
		}
	}
}

func TestServiceCorruptArtifact(t *testing.T) {
	_, err := newService(t, "{]", true).Predict(context.Background(), DefaultInput())
	if Kind(err) != KindCorrupt {
		t.Fatalf("expected corrupt, got %v", err)
	}
}

func TestKindInternal(t *testing.T) {
	if Kind(errors.New("boom")) != KindInternal {
		t.Fatalf("unclassified errors are internal")
	}
	if Kind(nil) != "" {
		t.Fatalf("nil error has no kind")
	}
}
