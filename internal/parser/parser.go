// Package parser picks a dataset loader by file extension.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/ecomdash/internal/analysis"
)

// Loader reads one tabular file format into a Table.
type Loader interface {
	CanLoad(filename string) bool
	Load(r io.Reader, name string, opt analysis.Options) (*analysis.Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a format no loader accepts.
var ErrUnsupported = errors.New("unsupported dataset format")

// Supported reports whether some registered loader accepts filename.
func Supported(filename string) bool {
	return find(filename) != nil
}

func find(filename string) Loader {
	for _, l := range registry {
		if l.CanLoad(filename) {
			return l
		}
	}
	return nil
}

// LoadFile opens path and loads it with the first loader that accepts its name.
func LoadFile(path string, opt analysis.Options) (*analysis.Table, error) {
	l := find(path)
	if l == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	t, err := l.Load(f, filepath.Base(path), opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

func init() {
	Register(csvLoader{})
	Register(tsvLoader{})
}
