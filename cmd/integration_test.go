package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const productsCSV = `Brand,Rating,ReviewCount,Price,Cleaned_Categories
Acme,4.5,120,19.99,"['beauty', 'face']"
Acme,4.1,80,24.50,"['beauty']"
Glow,3.9,15,9.99,"['face', 'skin']"
Glow,4.8,300,12.00,"['skin']"
Zest,2.5,3,5.25,
`

const linearModel = `{"kind": "linear", "feature_names": ["ReviewCount", "Brand_encoded", "beauty", "face"],
  "intercept": 3.14159, "coefficients": {"ReviewCount": 0.001, "beauty": 0.2}}`

// resetFlags clears values and Changed state that persist across Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args and capture stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	cfg = nil
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// isolateHome points HOME at a temp dir so config reads and writes stay local.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestCLI_AnalyzeSummaryAndCharts(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "products.csv")
	if err := os.WriteFile(data, []byte(productsCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	out := runCmd(t, "analyze", data)
	if !strings.Contains(out, "[DATASET SUMMARY]") || !strings.Contains(out, "Rating: numeric") {
		t.Fatalf("unexpected summary: %q", out)
	}

	chartsDir := filepath.Join(home, "charts")
	summary := filepath.Join(home, "summary.md")
	out = runCmd(t, "analyze", data, "--charts-dir", chartsDir, "-o", summary)
	if !strings.Contains(out, "✓ Wrote 13 charts") {
		t.Fatalf("unexpected output: %q", out)
	}
	for _, name := range []string{"01-rating-distribution.svg", "11-correlation-heatmap.svg", "13-top-20-categories-by-count.svg"} {
		b, err := os.ReadFile(filepath.Join(chartsDir, name))
		if err != nil {
			t.Fatalf("missing chart %s: %v", name, err)
		}
		if !bytes.Contains(b, []byte("<svg")) {
			t.Fatalf("%s is not svg", name)
		}
	}
	if b, err := os.ReadFile(summary); err != nil || !bytes.Contains(b, []byte("[SCHEMA]")) {
		t.Fatalf("summary not written: %v", err)
	}
}

func TestCLI_AnalyzeCategoryWarning(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "products.csv")
	bad := strings.Replace(productsCSV, `"['skin']"`, `"[skin]"`, 1)
	if err := os.WriteFile(data, []byte(bad), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	out := runCmd(t, "analyze", data, "--charts-dir", filepath.Join(home, "charts"))
	if !strings.Contains(out, "Skipping category barplot") || !strings.Contains(out, "✓ Wrote 12 charts") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLI_Predict(t *testing.T) {
	home := isolateHome(t)
	model := filepath.Join(home, "xgb_model.json")
	if err := os.WriteFile(model, []byte(linearModel), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	out := runCmd(t, "predict", "--model", model)
	if !strings.Contains(out, "✓ Predicted Rating: 3.35") {
		t.Fatalf("unexpected output: %q", out)
	}

	out = runCmd(t, "predict", "--model", model, "--categories", "beauty, toys", "--strict-schema=false")
	if !strings.Contains(out, "toys") || !strings.Contains(out, "Predicted Rating") {
		t.Fatalf("lenient predict output: %q", out)
	}

	if _, err := execCmd("predict", "--model", model, "--categories", "toys"); err == nil || !strings.Contains(err.Error(), "schema_mismatch") {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if _, err := execCmd("predict", "--model", filepath.Join(home, "missing.json")); err == nil || !strings.Contains(err.Error(), "not_found") {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolateHome(t)
	runCmd(t, "config", "set", "model_path", "models/rating.json")
	runCmd(t, "config", "set", "strict_schema", "false")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "model_path: models/rating.json") || !strings.Contains(out, "strict_schema: false") {
		t.Fatalf("unexpected config: %q", out)
	}
	if _, err := execCmd("config", "set", "max_sessions", "-3"); err == nil {
		t.Fatalf("expected error for negative max_sessions")
	}
	if _, err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}
