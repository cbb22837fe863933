package access

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/umrs/umrs/internal/domain/actor"
	"github.com/umrs/umrs/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/access-requests", h.CreateAccessRequest)
	api.GET("/access-requests", h.ListAccessRequests)
}

type createAccessRequest struct {
	PatientPHN  string `json:"patient_phn"`
	SLMCNo      string `json:"slmc_no,omitempty"`
	InstituteNo string `json:"institute_no,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	IsEmergency bool   `json:"is_emergency"`
}

func (h *Handler) CreateAccessRequest(c echo.Context) error {
	var body createAccessRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	requester, ok := actor.FromPortal(
		auth.UserTypeFromContext(c.Request().Context()),
		auth.UserRefFromContext(c.Request().Context()))
	if !ok {
		// Explicit identifiers when no portal session carries them.
		switch {
		case body.SLMCNo != "":
			requester = actor.Professional(body.SLMCNo)
		case body.InstituteNo != "":
			requester = actor.Institute(body.InstituteNo)
		}
	}

	req, err := h.svc.CreateAccessRequest(c.Request().Context(),
		body.PatientPHN, requester, body.Purpose, body.IsEmergency)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) ListAccessRequests(c echo.Context) error {
	ctx := c.Request().Context()

	if phn := c.QueryParam("patient_phn"); phn != "" {
		items, err := h.svc.ListForPatient(ctx, phn)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, items)
	}

	requester, ok := actor.FromPortal(auth.UserTypeFromContext(ctx), auth.UserRefFromContext(ctx))
	if !ok {
		switch {
		case c.QueryParam("slmc_no") != "":
			requester = actor.Professional(c.QueryParam("slmc_no"))
		case c.QueryParam("institute_no") != "":
			requester = actor.Institute(c.QueryParam("institute_no"))
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "slmc_no, institute_no or patient_phn is required")
		}
	}

	items, err := h.svc.ListAccessRequests(ctx, requester)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
