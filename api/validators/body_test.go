package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
)

type notifyBody struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
}

type acceptBody struct {
	Token string `json:"token" validate:"required,acceptance_token"`
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		dest    any
		wantErr bool
		field   string
		message string
	}{
		{name: "valid request id", body: `{"request_id":"7c1d2a0e-5b1f-4a4e-9a52-3f0a3c2b9d11"}`, dest: &notifyBody{}},
		{name: "missing request id", body: `{}`, dest: &notifyBody{}, wantErr: true, field: "request_id", message: "is required"},
		{name: "bad request id", body: `{"request_id":"nope"}`, dest: &notifyBody{}, wantErr: true, field: "request_id", message: "must be a valid uuid"},
		{name: "unknown field", body: `{"request_id":"x","extra":1}`, dest: &notifyBody{}, wantErr: true},
		{name: "valid token", body: `{"token":"0123456789abcdef0123456789abcdef"}`, dest: &acceptBody{}},
		{name: "short token", body: `{"token":"abc"}`, dest: &acceptBody{}, wantErr: true, field: "token", message: "must be a 32 character hex token"},
		{name: "non hex token", body: `{"token":"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"}`, dest: &acceptBody{}, wantErr: true, field: "token", message: "must be a 32 character hex token"},
		{name: "malformed json", body: `{"token":`, dest: &acceptBody{}, wantErr: true},
		{name: "trailing object", body: `{"token":"0123456789abcdef0123456789abcdef"}{}`, dest: &acceptBody{}, wantErr: true},
		{name: "oversized body", body: `{"token":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, dest: &acceptBody{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := DecodeJSONBody(httptest.NewRecorder(), req, tt.dest)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tt.field == "" {
				return
			}
			details, ok := typed.Details().(map[string]string)
			if !ok {
				t.Fatalf("expected field details, got %#v", typed.Details())
			}
			if details[tt.field] != tt.message {
				t.Fatalf("expected %q for %s, got %q", tt.message, tt.field, details[tt.field])
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  abc  ", 0); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString(" abcdef ", 3); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("ñandú\x00\n", 4); got != "ñand" {
		t.Fatalf("expected rune-safe cut without control chars, got %q", got)
	}
}
