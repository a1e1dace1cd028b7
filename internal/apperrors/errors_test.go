package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err        *AppError
		wantStatus int
		wantRetry  bool
	}{
		{ModelUnavailable(errors.New("boom")), http.StatusServiceUnavailable, false},
		{ModelLoading(), http.StatusServiceUnavailable, true},
		{StagingFailed(errors.New("disk full")), http.StatusInternalServerError, true},
		{InferenceFailed(errors.New("decode")), http.StatusInternalServerError, false},
		{InvalidInput("file", "missing"), http.StatusBadRequest, false},
		{Internal(errors.New("bug")), http.StatusInternalServerError, false},
	}

	for _, tc := range cases {
		if tc.err.HTTPStatus != tc.wantStatus {
			t.Errorf("%s: status = %d, want %d", tc.err.Code, tc.err.HTTPStatus, tc.wantStatus)
		}
		if tc.err.Retryable != tc.wantRetry {
			t.Errorf("%s: retryable = %v, want %v", tc.err.Code, tc.err.Retryable, tc.wantRetry)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := InferenceFailed(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Error("errors.As should find the AppError")
	}
}

func TestToResponse_ExcludesCause(t *testing.T) {
	err := Internal(errors.New("secret internal detail"))

	raw, jsonErr := json.Marshal(err.ToResponse())
	if jsonErr != nil {
		t.Fatalf("marshal: %v", jsonErr)
	}
	if strings.Contains(string(raw), "secret internal detail") {
		t.Errorf("response leaked the cause: %s", raw)
	}
	if !strings.Contains(string(raw), string(ErrCodeInternal)) {
		t.Errorf("response missing code: %s", raw)
	}
}

func TestWithDetail(t *testing.T) {
	err := InvalidInput("file", "missing").WithDetail("hint", "use multipart")
	if err.Details["hint"] != "use multipart" {
		t.Errorf("details = %v", err.Details)
	}
	if err.Details["field"] != "file" {
		t.Errorf("field detail lost: %v", err.Details)
	}
}
