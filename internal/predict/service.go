package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/ecomdash/internal/logging"
	"github.com/KaramelBytes/ecomdash/internal/metrics"
	"github.com/KaramelBytes/ecomdash/internal/model"
)

// Error kinds reported by Kind.
const (
	KindNotFound       = "not_found"
	KindSchemaMismatch = "schema_mismatch"
	KindInvalidInput   = "invalid_input"
	KindCorrupt        = "corrupt"
	KindInternal       = "internal"
)

// InvalidInputError indicates the request failed validation before the model was touched.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// Kind classifies a Predict error for callers that need to branch on cause.
func Kind(err error) string {
	var (
		nf *model.ArtifactNotFoundError
		sm *model.SchemaMismatchError
		ii *InvalidInputError
		co *model.ArtifactCorruptError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &nf):
		return KindNotFound
	case errors.As(err, &sm):
		return KindSchemaMismatch
	case errors.As(err, &ii):
		return KindInvalidInput
	case errors.As(err, &co):
		return KindCorrupt
	default:
		return KindInternal
	}
}

// Result is a successful prediction.
type Result struct {
	// Rating is Raw rounded to two decimals.
	Rating float64
	Raw    float64
	// Dropped lists category tokens ignored because the model does not know them
	// (only when the schema check is lenient).
	Dropped []string
}

// Service predicts ratings using the artifact at ModelPath, reloading it on every call.
type Service struct {
	ModelPath string
	// Strict rejects category tokens outside the artifact schema instead of dropping them.
	Strict bool

	validate *validator.Validate
}

// NewService returns a Service reading the artifact at modelPath.
func NewService(modelPath string, strict bool) *Service {
	return &Service{ModelPath: modelPath, Strict: strict, validate: validator.New()}
}

// Predict validates in, loads the artifact, and evaluates one row.
func (s *Service) Predict(ctx context.Context, in Input) (res Result, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = Kind(err)
		}
		metrics.Predictions.WithLabelValues(outcome).Inc()
	}()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := s.check(in); err != nil {
		return Result{}, err
	}
	art, err := model.Load(s.ModelPath)
	if err != nil {
		return Result{}, err
	}
	features := BuildFeatures(in)
	if !s.Strict {
		for _, name := range art.Unknown(features) {
			if name == FeatureReviewCount || name == FeatureBrandEncoded {
				continue
			}
			delete(features, name)
			res.Dropped = append(res.Dropped, name)
		}
		if len(res.Dropped) > 0 {
			logging.Debug().Strs("dropped", res.Dropped).Msg("ignoring categories outside model schema")
		}
	}
	raw, err := art.Predict(features)
	if err != nil {
		return Result{}, err
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Result{}, fmt.Errorf("model produced non-finite output %v", raw)
	}
	res.Raw = raw
	res.Rating = Round2(raw)
	return res, nil
}

func (s *Service) check(in Input) error {
	v := s.validate
	if v == nil {
		v = validator.New()
	}
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &InvalidInputError{Field: fe.Field(), Reason: describeTag(fe.Tag(), fe.Param())}
		}
		return &InvalidInputError{Reason: err.Error()}
	}
	if len(NormalizeCategories(in.Categories)) == 0 && strings.TrimSpace(in.Categories) != "" {
		return &InvalidInputError{Field: "Categories", Reason: "contains no category names"}
	}
	return nil
}

func describeTag(tag, param string) string {
	switch tag {
	case "gte":
		return "must be >= " + param
	case "max":
		return "must be at most " + param + " characters"
	default:
		return "failed " + tag
	}
}

// Round2 rounds the exact binary value of x to two decimal places, exact ties to
// even; the double nearest 2.675 lies below it and rounds to 2.67.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return x
	}
	return r
}
