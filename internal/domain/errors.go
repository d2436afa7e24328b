package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocuments is returned when the staging directory holds no PDFs.
	ErrNoDocuments = errors.New("no PDF documents found")
	// ErrUnsupportedModel is returned for a model name outside the allow-list.
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrUnknownCategory is returned for a category with no namespace mapping.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrEmbeddingModelMismatch is returned when a namespace was built with a
	// different embedding model than the one in use.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
	// ErrInvalidTemplate is returned for a prompt template without the
	// required placeholders.
	ErrInvalidTemplate = errors.New("invalid prompt template")
)

// ExtractionError reports an unreadable or corrupt source file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ModelError reports a failed embedding or generation call.
type ModelError struct {
	Op    string
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s with model %s: %v", e.Op, e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// StoreError reports a namespace that could not be read, created or written.
type StoreError struct {
	Namespace string
	Op        string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("namespace %s: %s: %v", e.Namespace, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
