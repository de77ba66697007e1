package model

import (
	"fmt"
	"strings"
)

// ArtifactNotFoundError indicates the artifact file does not exist.
type ArtifactNotFoundError struct {
	Path string
	Err  error
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("model artifact not found at %s", e.Path)
}

func (e *ArtifactNotFoundError) Unwrap() error { return e.Err }

// ArtifactCorruptError indicates the file exists but cannot be decoded or is structurally invalid.
type ArtifactCorruptError struct {
	Path string
	Err  error
}

func (e *ArtifactCorruptError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid model artifact: %v", e.Err)
	}
	return fmt.Sprintf("invalid model artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactCorruptError) Unwrap() error { return e.Err }

// SchemaMismatchError indicates input features the artifact was not trained on.
type SchemaMismatchError struct {
	Unknown []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("features not in model schema: %s", strings.Join(e.Unknown, ", "))
}
