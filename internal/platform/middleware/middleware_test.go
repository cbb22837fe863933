package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, req *http.Request, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, mw(handler)(c)
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRequestIDGeneratesNew(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	var seen string
	rec, err := runMiddleware(t, RequestID(), req, func(c echo.Context) error {
		seen = RequestIDFrom(c)
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == "" {
		t.Error("expected a generated request id on the context")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q does not match context id %q", rec.Header().Get(RequestIDHeader), seen)
	}
}

func TestRequestIDPreservesExisting(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec, err := runMiddleware(t, RequestID(), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) != "upstream-id" {
		t.Errorf("expected upstream-id to be preserved, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestRecoveryConvertsPanic(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := runMiddleware(t, Recovery(zerolog.Nop()), req, func(c echo.Context) error {
		panic("boom")
	})
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 HTTPError, got %v", err)
	}
}

func TestSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, SecurityHeaders(), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected no-store cache header")
	}
}

func TestRequestTimeout(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, RequestTimeout(20*time.Millisecond), req, func(c echo.Context) error {
		select {
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		case <-time.After(time.Second):
			return c.String(http.StatusOK, "too late")
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

func TestRequestTimeoutFastHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := runMiddleware(t, RequestTimeout(time.Second), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuditRecordsAPIAccess(t *testing.T) {
	var entries []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		entries = append(entries, e)
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/PHN001", nil)
	_, err := runMiddleware(t, Audit(zerolog.Nop(), recorder), req, okHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Resource != "patients" {
		t.Errorf("resource = %q, want patients", e.Resource)
	}
	if e.PatientPHN != "PHN001" {
		t.Errorf("patient_phn = %q, want PHN001", e.PatientPHN)
	}
	if e.Action != "read" {
		t.Errorf("action = %q, want read", e.Action)
	}
}

func TestAuditPHNFromQuery(t *testing.T) {
	var entries []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		entries = append(entries, e)
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access-requests?patient_phn=PHN002", nil)
	if _, err := runMiddleware(t, Audit(zerolog.Nop(), recorder), req, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].PatientPHN != "PHN002" {
		t.Fatalf("expected PHN002 from query param, got %+v", entries)
	}
}

func TestAuditSkipsNonAPIPaths(t *testing.T) {
	var entries []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		entries = append(entries, e)
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if _, err := runMiddleware(t, Audit(zerolog.Nop(), recorder), req, okHandler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no audit entries for /health, got %d", len(entries))
	}
}
