package access

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/umrs/umrs/internal/domain/actor"
)

func setupHandler() (*Handler, *mockRepo) {
	repo := newMockRepo()
	return NewHandler(newTestService(repo, map[string]string{"PHN001": "Amara Silva"})), repo
}

func TestCreateAccessRequestHandler(t *testing.T) {
	h, repo := setupHandler()
	e := echo.New()

	body := `{"patient_phn":"PHN001","slmc_no":"SLMC01","purpose":"consult"}`
	req := httptest.NewRequest(http.MethodPost, "/access-requests", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreateAccessRequest(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got Request
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("expected pending, got %s", got.Status)
	}
	if !got.Requester.Equal(actor.Professional("SLMC01")) {
		t.Errorf("unexpected requester %v", got.Requester)
	}
	if len(repo.rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(repo.rows))
	}
}

func TestCreateAccessRequestHandlerRejectsMissingActor(t *testing.T) {
	h, _ := setupHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/access-requests", strings.NewReader(`{"patient_phn":"PHN001"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.CreateAccessRequest(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestListAccessRequestsHandlerByRequester(t *testing.T) {
	h, _ := setupHandler()
	e := echo.New()

	post := httptest.NewRequest(http.MethodPost, "/access-requests",
		strings.NewReader(`{"patient_phn":"PHN001","slmc_no":"SLMC01"}`))
	post.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.CreateAccessRequest(e.NewContext(post, httptest.NewRecorder())); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/access-requests?slmc_no=SLMC01", nil)
	rec := httptest.NewRecorder()
	if err := h.ListAccessRequests(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var items []*Request
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 request, got %d", len(items))
	}
	if items[0].PatientName == nil || *items[0].PatientName != "Amara Silva" {
		t.Errorf("expected decorated patient name, got %+v", items[0].PatientName)
	}
}

func TestListAccessRequestsHandlerRequiresIdentity(t *testing.T) {
	h, _ := setupHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/access-requests", nil)
	rec := httptest.NewRecorder()
	err := h.ListAccessRequests(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
