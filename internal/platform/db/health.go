package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check verifies the database file is reachable and answering queries.
func Check(ctx context.Context, sqlDB *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	return sqlDB.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

// HealthHandler returns an echo handler reporting database health along with
// pool statistics.
func HealthHandler(sqlDB *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := Check(c.Request().Context(), sqlDB); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
		stats := sqlDB.Stats()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":           "ok",
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		})
	}
}
