package validation

import (
	"strings"
	"testing"

	"github.com/skillsenselab/whisperd/internal/apperrors"
)

type sampleSection struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
	Workers  int    `mapstructure:"workers" validate:"min=1,max=64"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(sampleSection{Endpoint: "http://localhost:4318", Workers: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	err := Validate(sampleSection{Endpoint: "", Workers: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != apperrors.ErrCodeInvalidInput {
		t.Errorf("code = %s, want %s", appErr.Code, apperrors.ErrCodeInvalidInput)
	}
	if !strings.Contains(appErr.Message, "endpoint") {
		t.Errorf("message %q should name the endpoint field", appErr.Message)
	}
	if !strings.Contains(appErr.Message, "workers") {
		t.Errorf("message %q should name the workers field", appErr.Message)
	}
	if appErr.Details["fields"] == nil {
		t.Error("expected per-field details")
	}
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Endpoint":    "endpoint",
		"MaxBodySize": "max_body_size",
		"CacheDir":    "cache_dir",
	}
	for in, want := range cases {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
