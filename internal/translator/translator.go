package translator

import (
	"context"
	"errors"
)

var (
	ErrBackendUnavailable = errors.New("translation backend unavailable")
	ErrTranslationFailed  = errors.New("translation backend failed")
)

// Request carries one segment plus the material the backend needs to keep
// the translation coherent across segment boundaries.
type Request struct {
	Text         string
	Context      string
	Instructions string
	SourceLang   string
	TargetLang   string
}

// Translator is the opaque translation capability. Implementations retry
// transient backend failures internally; a returned error means the segment
// permanently failed. Model identifies the backend configuration so cached
// output from one model is never served for another.
type Translator interface {
	Translate(ctx context.Context, request Request) (string, error)
	Available() bool
	Model() string
}
