package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Options controls how tabular data is loaded and summarized.
type Options struct {
	// MaxRows limits rows kept; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Delimiter for CSV. If 0, picked from the file name (',' or '\t' for .tsv).
	Delimiter rune
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Numeric parsing locale. When both are 0 numbers must parse as plain floats.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		MaxRows:      100000,
		SampleRows:   5,
		Correlations: true,
		Outliers:     true,
	}
}

// Column is one inferred column of a Table.
type Column struct {
	Name string
	// Base and Unit split a header such as "Price (USD)"; Unit is empty when the
	// header carries no unit suffix.
	Base string
	Unit string
	Kind string
	// Values holds parsed numbers for numeric columns, NaN where the cell is empty.
	Values []float64
}

// Table is an in-memory rectangular dataset parsed from CSV.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
	// Total counts every data row read, including rows beyond MaxRows.
	Total int

	cols  []Column
	index map[string]int
}

// ColumnError reports a column that is missing or has the wrong kind.
type ColumnError struct {
	Column string
	Reason string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
}

// ErrEmpty is returned when the input has no header row.
var ErrEmpty = errors.New("dataset is empty")

// ErrTooManyFields is wrapped by LoadCSV when a row is wider than the header.
var ErrTooManyFields = errors.New("too many fields")

// naTokens are the cell values read as missing, besides the empty string.
var naTokens = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true,
	"nan": true, "null": true,
}

// IsMissing reports whether a trimmed cell is empty or a missing-value marker
// such as "NA", "N/A" or "null".
func IsMissing(v string) bool {
	return v == "" || naTokens[v]
}

// LoadCSV reads CSV text into a Table. Name is used for reporting and for delimiter
// sniffing when opt.Delimiter is 0.
func LoadCSV(r io.Reader, name string, opt Options) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	if ncol == 0 {
		return nil, ErrEmpty
	}
	t := &Table{Name: name, Header: make([]string, ncol), index: make(map[string]int, ncol)}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", t.Total+1, err)
		}
		t.Total++
		if len(rec) > ncol {
			return nil, fmt.Errorf("read row %d: %w: expected %d, saw %d", t.Total, ErrTooManyFields, ncol, len(rec))
		}
		if len(t.Rows) >= maxRows {
			continue
		}
		// Short rows are padded with empty cells.
		row := make([]string, ncol)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	t.infer(opt)
	return t, nil
}

// infer decides each column's kind. A column is numeric only when every present
// cell parses as a number; otherwise datetime/categorical/text by predominance.
func (t *Table) infer(opt Options) {
	t.cols = make([]Column, len(t.Header))
	for j, name := range t.Header {
		c := Column{Name: name}
		c.Base, c.Unit = splitUnits(name)
		vals := make([]float64, len(t.Rows))
		var nonNil, numCnt, dtCnt, catCnt, txtCnt int
		for i, row := range t.Rows {
			v := strings.TrimSpace(row[j])
			if IsMissing(v) {
				vals[i] = math.NaN()
				continue
			}
			nonNil++
			if x, ok := parseNumeric(v, opt); ok {
				numCnt++
				vals[i] = x
				continue
			}
			vals[i] = math.NaN()
			if _, ok := parseTimeMaybe(v); ok {
				dtCnt++
				continue
			}
			// treat short tokens as categories
			if len(v) <= 64 {
				catCnt++
			} else {
				txtCnt++
			}
		}
		switch {
		case nonNil == 0:
			c.Kind = KindUnknown
		case numCnt == nonNil:
			c.Kind = KindNumeric
			c.Values = vals
		case dtCnt >= catCnt+txtCnt:
			c.Kind = KindDatetime
		case catCnt > 0:
			c.Kind = KindCategorical
		default:
			c.Kind = KindText
		}
		t.cols[j] = c
	}
}

// Len returns the number of rows held in memory.
func (t *Table) Len() int { return len(t.Rows) }

// Columns returns the inferred columns in header order.
func (t *Table) Columns() []Column { return t.cols }

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// NumericColumns lists numeric column names in header order.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.cols {
		if c.Kind == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Numeric returns the parsed values of a numeric column (NaN for empty cells).
func (t *Table) Numeric(name string) ([]float64, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, &ColumnError{Column: name, Reason: "not found"}
	}
	c := t.cols[j]
	if c.Kind != KindNumeric {
		return nil, &ColumnError{Column: name, Reason: fmt.Sprintf("not numeric (%s)", c.Kind)}
	}
	return c.Values, nil
}

// Strings returns the trimmed raw cells of a column, with missing-value markers
// replaced by "".
func (t *Table) Strings(name string) ([]string, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, &ColumnError{Column: name, Reason: "not found"}
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if v := strings.TrimSpace(row[j]); !IsMissing(v) {
			out[i] = v
		}
	}
	return out, nil
}

// Head returns up to n leading rows.
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return t.Rows[:n]
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Price (USD)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Weight [g]
	{regexp.MustCompile(`^(.*?)[_\s-]+(USD|EUR|GBP|kg|g|ml|L|cm|mm|%)$`), 2},
}

// splitUnits separates a trailing unit from a header name. Names without a
// recognizable unit come back unchanged with an empty unit.
func splitUnits(name string) (base string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			b := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if b != "" && u != "" {
				return b, u
			}
		}
	}
	return s, ""
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if opt.DecimalSeparator == 0 && opt.ThousandsSeparator == 0 {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
