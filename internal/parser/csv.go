package parser

import (
	"io"
	"strings"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".csv")
}

func (csvLoader) Load(r io.Reader, name string, opt analysis.Options) (*analysis.Table, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	return analysis.LoadCSV(r, name, opt)
}

type tsvLoader struct{}

func (tsvLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".tsv")
}

func (tsvLoader) Load(r io.Reader, name string, opt analysis.Options) (*analysis.Table, error) {
	opt.Delimiter = '\t'
	return analysis.LoadCSV(r, name, opt)
}
