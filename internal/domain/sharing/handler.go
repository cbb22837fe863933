package sharing

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/umrs/umrs/internal/domain/actor"
	"github.com/umrs/umrs/internal/platform/auth"
	"github.com/umrs/umrs/internal/platform/blobstore"
)

type Handler struct {
	svc   *Service
	blobs blobstore.Store
	log   zerolog.Logger
}

func NewHandler(svc *Service, blobs blobstore.Store, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, blobs: blobs, log: log.With().Str("component", "sharing_http").Logger()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/record-requests", h.CreateRecordRequest)
	api.GET("/record-requests", h.ListRecordRequests)
	api.POST("/shared-records", h.ShareRecord)
	api.GET("/shared-records", h.ListSharedRecords)
	api.GET("/shared-records/:id/file", h.DownloadSharedRecord)
}

// sessionActor resolves the calling actor from the portal session, falling
// back to explicit query parameters.
func sessionActor(c echo.Context) (actor.Identity, bool) {
	ctx := c.Request().Context()
	if id, ok := actor.FromPortal(auth.UserTypeFromContext(ctx), auth.UserRefFromContext(ctx)); ok {
		return id, true
	}
	if v := c.QueryParam("slmc_no"); v != "" {
		return actor.Professional(v), true
	}
	if v := c.QueryParam("institute_no"); v != "" {
		return actor.Institute(v), true
	}
	return actor.Identity{}, false
}

type createRecordRequest struct {
	PatientPHN          string `json:"patient_phn"`
	RecordType          string `json:"record_type,omitempty"`
	Purpose             string `json:"purpose,omitempty"`
	SLMCNo              string `json:"slmc_no,omitempty"`
	InstituteNo         string `json:"institute_no,omitempty"`
	ReceiverSLMCNo      string `json:"receiver_slmc_no,omitempty"`
	ReceiverInstituteNo string `json:"receiver_institute_no,omitempty"`
}

func (h *Handler) CreateRecordRequest(c echo.Context) error {
	var body createRecordRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	requester, ok := actor.FromPortal(
		auth.UserTypeFromContext(c.Request().Context()),
		auth.UserRefFromContext(c.Request().Context()))
	if !ok {
		switch {
		case body.SLMCNo != "":
			requester = actor.Professional(body.SLMCNo)
		case body.InstituteNo != "":
			requester = actor.Institute(body.InstituteNo)
		}
	}
	var receiver actor.Identity
	switch {
	case body.ReceiverSLMCNo != "":
		receiver = actor.Professional(body.ReceiverSLMCNo)
	case body.ReceiverInstituteNo != "":
		receiver = actor.Institute(body.ReceiverInstituteNo)
	}

	req, err := h.svc.CreateRecordRequest(c.Request().Context(),
		requester, receiver, body.PatientPHN, body.RecordType, body.Purpose)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) ListRecordRequests(c echo.Context) error {
	a, ok := sessionActor(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "slmc_no or institute_no is required")
	}
	items, err := h.svc.ListRecordRequests(c.Request().Context(), a)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// ShareRecord accepts a multipart form: the document under "file" plus the
// share metadata fields. The document is persisted first; if the row insert
// then fails, the orphaned blob is logged and left for cleanup.
func (h *Handler) ShareRecord(c echo.Context) error {
	sender, ok := actor.FromPortal(
		auth.UserTypeFromContext(c.Request().Context()),
		auth.UserRefFromContext(c.Request().Context()))
	if !ok {
		switch {
		case c.FormValue("slmc_no") != "":
			sender = actor.Professional(c.FormValue("slmc_no"))
		case c.FormValue("institute_no") != "":
			sender = actor.Institute(c.FormValue("institute_no"))
		}
	}
	var receiver actor.Identity
	switch {
	case c.FormValue("receiver_slmc_no") != "":
		receiver = actor.Professional(c.FormValue("receiver_slmc_no"))
	case c.FormValue("receiver_institute_no") != "":
		receiver = actor.Institute(c.FormValue("receiver_institute_no"))
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	path, err := h.blobs.Persist(c.Request().Context(), file.Filename, src)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, blobstore.ErrMissingName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	rec, err := h.svc.ShareRecord(c.Request().Context(), sender, receiver,
		c.FormValue("patient_phn"), c.FormValue("record_type"), c.FormValue("sub_type"), path)
	if err != nil {
		h.log.Error().Err(err).Str("file_path", path).Msg("share row insert failed, blob orphaned")
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListSharedRecords(c echo.Context) error {
	a, ok := sessionActor(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "slmc_no or institute_no is required")
	}
	items, err := h.svc.ListSharedRecords(c.Request().Context(), a)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DownloadSharedRecord(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	rec, err := h.svc.GetSharedRecord(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "shared record not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rc, err := h.blobs.Open(c.Request().Context(), rec.FilePath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document is no longer available")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="record-%d"`, rec.ID))
	return c.Stream(http.StatusOK, "application/octet-stream", rc)
}
