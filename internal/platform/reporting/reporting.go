// Package reporting serves read-only aggregate views over the records and
// sharing tables. Measures are canned queries; dashboards roll up activity
// for a single professional or institute.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/umrs/umrs/internal/platform/auth"
)

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"-"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "patient-count",
		Name:        "Patient Count",
		Description: "Total number of registered patients",
		SQL:         `SELECT COUNT(*) AS total FROM patient`,
	},
	{
		ID:          "monthly-visit-volume",
		Name:        "Monthly Visit Volume",
		Description: "Number of medical records created per calendar month",
		SQL: `SELECT strftime('%Y-%m', date_of_visit) AS month, COUNT(*) AS total
			FROM medical_record GROUP BY month ORDER BY month DESC`,
	},
	{
		ID:          "common-diagnoses",
		Name:        "Common Diagnoses",
		Description: "Ten most frequently recorded diagnoses",
		SQL: `SELECT diagnosis, COUNT(*) AS total FROM medical_record
			WHERE diagnosis IS NOT NULL AND diagnosis <> ''
			GROUP BY diagnosis ORDER BY total DESC, diagnosis LIMIT 10`,
	},
	{
		ID:          "access-request-status",
		Name:        "Access Request Status",
		Description: "Access requests grouped by status and emergency flag",
		SQL: `SELECT status, is_emergency, COUNT(*) AS total
			FROM record_access_request GROUP BY status, is_emergency ORDER BY total DESC`,
	},
	{
		ID:          "monthly-sharing-volume",
		Name:        "Monthly Sharing Volume",
		Description: "Number of shared records per calendar month",
		SQL: `SELECT strftime('%Y-%m', share_date) AS month, COUNT(*) AS total
			FROM shared_record GROUP BY month ORDER BY month DESC`,
	},
}

// ProfessionalDashboard rolls up one professional's activity.
type ProfessionalDashboard struct {
	SLMCNo          string `json:"slmc_no"`
	RecordsAuthored int    `json:"records_authored"`
	AccessApproved  int    `json:"access_approved"`
	AccessPending   int    `json:"access_pending"`
	SharesSent      int    `json:"shares_sent"`
	SharesReceived  int    `json:"shares_received"`
}

// InstituteDashboard rolls up one institute's activity.
type InstituteDashboard struct {
	InstituteNo    string `json:"institute_no"`
	RecordsOnFile  int    `json:"records_on_file"`
	AccessApproved int    `json:"access_approved"`
	AccessPending  int    `json:"access_pending"`
	SharesSent     int    `json:"shares_sent"`
	SharesReceived int    `json:"shares_received"`
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	db *sql.DB
}

// NewHandler creates a new reporting handler.
func NewHandler(sqlDB *sql.DB) *Handler {
	return &Handler{db: sqlDB}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole("admin", "professional", "institute"))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
	reportGroup.GET("/professional/:slmc", h.ProfessionalDashboard)
	reportGroup.GET("/institute/:id", h.InstituteDashboard)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
	})
}

// ProfessionalDashboard returns activity counts for one professional.
func (h *Handler) ProfessionalDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	slmc := c.Param("slmc")

	d := ProfessionalDashboard{SLMCNo: slmc}
	counts := []struct {
		dst   *int
		query string
	}{
		{&d.RecordsAuthored, `SELECT COUNT(*) FROM medical_record WHERE slmc_no = ?`},
		{&d.AccessApproved, `SELECT COUNT(*) FROM record_access_request
			WHERE requester_kind = 'professional' AND requester_slmc_no = ? AND status = 'approved'`},
		{&d.AccessPending, `SELECT COUNT(*) FROM record_access_request
			WHERE requester_kind = 'professional' AND requester_slmc_no = ? AND status = 'pending'`},
		{&d.SharesSent, `SELECT COUNT(*) FROM shared_record
			WHERE sender_kind = 'professional' AND sender_slmc_no = ?`},
		{&d.SharesReceived, `SELECT COUNT(*) FROM shared_record
			WHERE receiver_kind = 'professional' AND receiver_slmc_no = ?`},
	}
	for _, q := range counts {
		if err := h.db.QueryRowContext(ctx, q.query, slmc).Scan(q.dst); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("dashboard query failed: %v", err))
		}
	}
	return c.JSON(http.StatusOK, d)
}

// InstituteDashboard returns activity counts for one institute.
func (h *Handler) InstituteDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	d := InstituteDashboard{InstituteNo: id}
	counts := []struct {
		dst   *int
		query string
	}{
		{&d.RecordsOnFile, `SELECT COUNT(*) FROM medical_record WHERE health_institute_no = ?`},
		{&d.AccessApproved, `SELECT COUNT(*) FROM record_access_request
			WHERE requester_kind = 'institute' AND requester_institute_no = ? AND status = 'approved'`},
		{&d.AccessPending, `SELECT COUNT(*) FROM record_access_request
			WHERE requester_kind = 'institute' AND requester_institute_no = ? AND status = 'pending'`},
		{&d.SharesSent, `SELECT COUNT(*) FROM shared_record
			WHERE sender_kind = 'institute' AND sender_institute_no = ?`},
		{&d.SharesReceived, `SELECT COUNT(*) FROM shared_record
			WHERE receiver_kind = 'institute' AND receiver_institute_no = ?`},
	}
	for _, q := range counts {
		if err := h.db.QueryRowContext(ctx, q.query, id).Scan(q.dst); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("dashboard query failed: %v", err))
		}
	}
	return c.JSON(http.StatusOK, d)
}

// executeSQL runs a query and returns rows as a slice of column-name maps.
func (h *Handler) executeSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(cols))
		for i, name := range cols {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
