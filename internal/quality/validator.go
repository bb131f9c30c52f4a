// Package quality checks translated segments before they are accepted.
package quality

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrQualityRejected = errors.New("translation failed quality checks")

const (
	defaultMinLengthRatio = 0.15
	defaultMaxLengthRatio = 6.0
	// short segments vary too much in length for the ratio check to mean anything
	lengthRatioMinSourceChars = 80
)

var errorMarkers = []string{
	"[translation error]",
	"[перевод не выполнен]",
	"as an ai language model",
	"i cannot translate",
}

type ValidatorConfig struct {
	MinLengthRatio float64
	MaxLengthRatio float64
}

type Validator struct {
	minLengthRatio float64
	maxLengthRatio float64
}

func NewValidator(config ValidatorConfig) *Validator {
	if config.MinLengthRatio <= 0 {
		config.MinLengthRatio = defaultMinLengthRatio
	}
	if config.MaxLengthRatio <= 0 {
		config.MaxLengthRatio = defaultMaxLengthRatio
	}
	return &Validator{
		minLengthRatio: config.MinLengthRatio,
		maxLengthRatio: config.MaxLengthRatio,
	}
}

// ValidateTranslation rejects blank output, backend refusal markers, and
// translations whose length is wildly out of proportion to the source.
func (v *Validator) ValidateTranslation(source, translated string) error {
	trimmed := strings.TrimSpace(translated)
	if trimmed == "" {
		return fmt.Errorf("%w: blank output", ErrQualityRejected)
	}

	lowered := strings.ToLower(trimmed)
	for _, marker := range errorMarkers {
		if strings.Contains(lowered, marker) {
			return fmt.Errorf("%w: output contains error marker %q", ErrQualityRejected, marker)
		}
	}

	sourceChars := utf8.RuneCountInString(strings.TrimSpace(source))
	if sourceChars < lengthRatioMinSourceChars {
		return nil
	}
	ratio := float64(utf8.RuneCountInString(trimmed)) / float64(sourceChars)
	if ratio < v.minLengthRatio || ratio > v.maxLengthRatio {
		return fmt.Errorf("%w: length ratio %.2f outside [%.2f, %.2f]", ErrQualityRejected, ratio, v.minLengthRatio, v.maxLengthRatio)
	}
	return nil
}
