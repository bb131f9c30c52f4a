package quality

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTranslation(t *testing.T) {
	longSource := strings.Repeat("Длинное исходное предложение для проверки. ", 4)

	tests := []struct {
		name       string
		source     string
		translated string
		wantErr    bool
	}{
		{
			name:       "accepts ordinary output",
			source:     "Hello, world.",
			translated: "Привет, мир.",
			wantErr:    false,
		},
		{
			name:       "rejects blank output",
			source:     "Hello",
			translated: "   \n\t",
			wantErr:    true,
		},
		{
			name:       "rejects bracketed error marker",
			source:     "Hello",
			translated: "[translation error] something went wrong",
			wantErr:    true,
		},
		{
			name:       "rejects refusal marker regardless of case",
			source:     "Hello",
			translated: "As an AI language model, I cannot help with that.",
			wantErr:    true,
		},
		{
			name:       "rejects russian failure marker",
			source:     "Hello",
			translated: "[перевод не выполнен]",
			wantErr:    true,
		},
		{
			name:       "rejects suspiciously short output for long source",
			source:     longSource,
			translated: "Ок.",
			wantErr:    true,
		},
		{
			name:       "rejects runaway output for long source",
			source:     longSource,
			translated: strings.Repeat(longSource, 10),
			wantErr:    true,
		},
		{
			name:       "short source skips the ratio check",
			source:     "Hi.",
			translated: strings.Repeat("Очень развёрнутый перевод. ", 20),
			wantErr:    false,
		},
		{
			name:       "long source with proportional output passes",
			source:     longSource,
			translated: longSource,
			wantErr:    false,
		},
	}

	validator := NewValidator(ValidatorConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateTranslation(tt.source, tt.translated)
			if tt.wantErr {
				if !errors.Is(err, ErrQualityRejected) {
					t.Fatalf("ValidateTranslation() error = %v, want ErrQualityRejected", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateTranslation() error = %v", err)
			}
		})
	}
}

func TestValidatorCustomBounds(t *testing.T) {
	validator := NewValidator(ValidatorConfig{MinLengthRatio: 0.9, MaxLengthRatio: 1.1})
	source := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 3)

	if err := validator.ValidateTranslation(source, source); err != nil {
		t.Fatalf("identical length rejected: %v", err)
	}
	if err := validator.ValidateTranslation(source, source[:len(source)/2]); !errors.Is(err, ErrQualityRejected) {
		t.Fatalf("half-length output accepted under tight bounds, err = %v", err)
	}
}
