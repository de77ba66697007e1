package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
	"github.com/KaramelBytes/ecomdash/internal/parser"
)

func TestLoadFileCSV_Summary(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "products.csv")
	content := "Brand,Rating,ReviewCount,Listed\n" +
		"Acme,4.5,120,2024-08-10\n" +
		"Glow,3.9,15,2024-08-12\n" +
		"Acme,4.1,80,2024-08-15\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := parser.LoadFile(p, analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out := analysis.Summarize(tbl, analysis.DefaultOptions()).Markdown()
	if !strings.Contains(out, "[DATASET SUMMARY]") {
		t.Fatalf("expected dataset summary header, got: %q", out)
	}
	if !strings.Contains(out, "Rating: numeric") {
		t.Fatalf("expected numeric inference for Rating, got: %q", out)
	}
	if !strings.Contains(out, "Listed: datetime") {
		t.Fatalf("expected datetime inference for Listed, got: %q", out)
	}
}

func TestLoadFileTSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "products.TSV")
	if err := os.WriteFile(p, []byte("Brand\tRating\nAcme\t4.5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := parser.LoadFile(p, analysis.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := tbl.NumericColumns(); len(got) != 1 || got[0] != "Rating" {
		t.Fatalf("numeric columns: %v", got)
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "products.xlsx")
	if err := os.WriteFile(p, []byte("PK"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := parser.LoadFile(p, analysis.DefaultOptions()); !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if parser.Supported("a.json") || !parser.Supported("A.CSV") {
		t.Fatalf("Supported mismatch")
	}
}
