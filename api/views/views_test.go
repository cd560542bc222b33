package views

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRenderOfferEscapesContent(t *testing.T) {
	rec := httptest.NewRecorder()
	data := map[string]any{
		"Token":          "0123456789abcdef0123456789abcdef",
		"TechnicianName": "<script>alert(1)</script>",
		"Equipment":      "Nevera",
		"Brand":          "Samsung",
		"Payout":         "150.000",
		"Available":      true,
	}
	if err := Render(rec, http.StatusOK, OfferPage, data); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("technician name was not escaped")
	}
	if !strings.Contains(body, `action="/aceptar/0123456789abcdef0123456789abcdef"`) {
		t.Fatalf("expected accept form, got %s", body)
	}
	if !strings.Contains(body, "$150.000") {
		t.Fatalf("expected payout in page")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestRenderOfferUnavailableHidesButton(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := Render(rec, http.StatusOK, OfferPage, map[string]any{"Available": false}); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<form") {
		t.Fatalf("unavailable offer must not render the accept form")
	}
	if !strings.Contains(body, "Ya fue tomado") {
		t.Fatalf("expected taken notice")
	}
}

func TestRenderResultAndNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := Render(rec, http.StatusOK, ResultPage, ResultView{Won: true, Title: "¡Servicio asignado!", Message: "ok"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "¡Servicio asignado!") {
		t.Fatalf("expected title in result page")
	}

	rec = httptest.NewRecorder()
	if err := Render(rec, http.StatusNotFound, NotFoundPage, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := Render(rec, http.StatusOK, "missing.html", nil); err == nil {
		t.Fatalf("expected error for unknown template")
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("nothing should be written on template error")
	}
}
