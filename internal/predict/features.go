// Package predict turns the dashboard's three form fields into a feature mapping and
// runs it through the model artifact.
package predict

import (
	"strings"
)

// Feature names fixed by the training pipeline.
const (
	FeatureReviewCount  = "ReviewCount"
	FeatureBrandEncoded = "Brand_encoded"
)

// Input is the single-row prediction request.
type Input struct {
	ReviewCount  int    `json:"review_count" validate:"gte=0"`
	BrandEncoded int    `json:"brand_encoded" validate:"gte=0"`
	Categories   string `json:"categories" validate:"max=2000"`
}

// DefaultInput mirrors the form's initial values.
func DefaultInput() Input {
	return Input{ReviewCount: 5, BrandEncoded: 100, Categories: "beauty,face"}
}

// NormalizeCategories splits on commas, trims and lower-cases each token and drops
// empty tokens. Duplicates collapse.
func NormalizeCategories(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// BuildFeatures assembles the feature mapping: ReviewCount, Brand_encoded and a 1 for
// every category token. Columns the model knows but the user did not name are left out.
func BuildFeatures(in Input) map[string]float64 {
	f := map[string]float64{
		FeatureReviewCount:  float64(in.ReviewCount),
		FeatureBrandEncoded: float64(in.BrandEncoded),
	}
	for _, c := range NormalizeCategories(in.Categories) {
		f[c] = 1
	}
	return f
}
