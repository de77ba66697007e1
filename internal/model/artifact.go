// Package model loads serialized regressors and evaluates them on a single row.
//
// Two artifact kinds are understood:
//
//   - "xgboost": a boosted tree ensemble in the layout produced by XGBoost's
//     Booster.get_dump(dump_format="json"), wrapped with feature_names and base_score.
//   - "linear": an intercept plus named coefficients.
//
// Artifacts are JSON (.json) or YAML (.yaml/.yml) documents.
package model

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const (
	KindXGBoost = "xgboost"
	KindLinear  = "linear"
)

// Artifact is a decoded regressor.
type Artifact struct {
	Kind string `json:"kind" yaml:"kind"`
	// FeatureNames is the training-time column schema; empty disables schema checks.
	FeatureNames []string `json:"feature_names,omitempty" yaml:"feature_names,omitempty"`
	BaseScore    float64  `json:"base_score,omitempty" yaml:"base_score,omitempty"`
	Trees        []*Node  `json:"trees,omitempty" yaml:"trees,omitempty"`

	Intercept    float64            `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Coefficients map[string]float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`

	schema map[string]int
}

// Load reads and validates the artifact at path. The file is closed before returning.
func Load(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ArtifactNotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	a, err := Decode(b, filepath.Ext(path))
	if err != nil {
		var ce *ArtifactCorruptError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	return a, nil
}

// Decode parses artifact bytes; ext selects YAML for ".yaml"/".yml", JSON otherwise.
func Decode(b []byte, ext string) (*Artifact, error) {
	var a Artifact
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &a)
	default:
		err = json.Unmarshal(b, &a)
	}
	if err != nil {
		return nil, &ArtifactCorruptError{Err: err}
	}
	if err := a.validate(); err != nil {
		return nil, &ArtifactCorruptError{Err: err}
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	a.Kind = strings.ToLower(strings.TrimSpace(a.Kind))
	a.schema = make(map[string]int, len(a.FeatureNames))
	for i, n := range a.FeatureNames {
		a.schema[n] = i
	}
	switch a.Kind {
	case KindXGBoost:
		if len(a.Trees) == 0 {
			return errors.New("xgboost artifact has no trees")
		}
		for i, t := range a.Trees {
			if err := t.index(); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	case KindLinear:
		if len(a.Coefficients) == 0 {
			return errors.New("linear artifact has no coefficients")
		}
	default:
		return fmt.Errorf("unknown artifact kind %q", a.Kind)
	}
	return nil
}

// Unknown lists feature names absent from the artifact schema, sorted.
// It is always empty when the artifact declares no schema.
func (a *Artifact) Unknown(features map[string]float64) []string {
	if len(a.schema) == 0 {
		return nil
	}
	var out []string
	for k := range features {
		if _, ok := a.schema[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Predict evaluates one row. Features outside the schema yield *SchemaMismatchError;
// schema features missing from the row are treated as missing values.
func (a *Artifact) Predict(features map[string]float64) (float64, error) {
	if unknown := a.Unknown(features); len(unknown) > 0 {
		return 0, &SchemaMismatchError{Unknown: unknown}
	}
	var y float64
	switch a.Kind {
	case KindXGBoost:
		y = a.BaseScore
		for _, t := range a.Trees {
			y += t.eval(a.lookup(features))
		}
	case KindLinear:
		y = a.Intercept
		for name, coef := range a.Coefficients {
			if x, ok := features[name]; ok && !math.IsNaN(x) {
				y += coef * x
			}
		}
	}
	return y, nil
}

// lookup resolves a split name to a value. Dumps made without feature names use
// "f<i>" which maps to FeatureNames[i].
func (a *Artifact) lookup(features map[string]float64) func(string) (float64, bool) {
	return func(name string) (float64, bool) {
		if x, ok := features[name]; ok {
			return x, !math.IsNaN(x)
		}
		if _, named := a.schema[name]; !named && strings.HasPrefix(name, "f") {
			if i, err := strconv.Atoi(name[1:]); err == nil && i >= 0 && i < len(a.FeatureNames) {
				x, ok := features[a.FeatureNames[i]]
				return x, ok && !math.IsNaN(x)
			}
		}
		return 0, false
	}
}
