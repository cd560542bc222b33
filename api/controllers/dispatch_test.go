package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bairdservice/baird-backend/internal/dispatch"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
)

type stubDispatchService struct {
	got    uuid.UUID
	result *dispatch.Result
	err    error
}

func (s *stubDispatchService) Dispatch(ctx context.Context, requestID uuid.UUID) (*dispatch.Result, error) {
	s.got = requestID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNotifyTechniciansSuccess(t *testing.T) {
	id := uuid.New()
	svc := &stubDispatchService{result: &dispatch.Result{NotifiedCount: 2, MatchedCount: 3}}
	rec := postJSON(NotifyTechnicians(svc, nil), "/api/v1/whatsapp/notify", `{"request_id":"`+id.String()+`"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.got != id {
		t.Fatalf("expected dispatch for %s, got %s", id, svc.got)
	}
	var body notifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.NotifiedCount != 2 || body.Message != "2 técnicos notificados por WhatsApp" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestNotifyTechniciansZeroMatches(t *testing.T) {
	svc := &stubDispatchService{result: &dispatch.Result{}}
	rec := postJSON(NotifyTechnicians(svc, nil), "/api/v1/whatsapp/notify", `{"request_id":"`+uuid.NewString()+`"}`)

	var body notifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || body.NotifiedCount != 0 {
		t.Fatalf("unexpected response %d %+v", rec.Code, body)
	}
	if body.Message != dispatch.SummaryMessage(0) {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestNotifyTechniciansErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{name: "missing id", body: `{}`, status: http.StatusBadRequest},
		{name: "malformed id", body: `{"request_id":"abc"}`, status: http.StatusBadRequest},
		{name: "unknown request", body: `{"request_id":"` + uuid.NewString() + `"}`, err: pkgerrors.New(pkgerrors.CodeNotFound, "service request not found"), status: http.StatusNotFound},
		{name: "already assigned", body: `{"request_id":"` + uuid.NewString() + `"}`, err: pkgerrors.New(pkgerrors.CodeStateConflict, "service request already assigned"), status: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubDispatchService{err: tt.err, result: &dispatch.Result{}}
			rec := postJSON(NotifyTechnicians(svc, nil), "/api/v1/whatsapp/notify", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestNotifyTechniciansNilService(t *testing.T) {
	rec := postJSON(NotifyTechnicians(nil, nil), "/api/v1/whatsapp/notify", `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
