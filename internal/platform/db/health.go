package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 5 * time.Second

// PoolHealth is the database section of the /health payload.
type PoolHealth struct {
	Open        int32  `json:"open"`
	Idle        int32  `json:"idle"`
	InUse       int32  `json:"in_use"`
	Capacity    int32  `json:"capacity"`
	Acquires    int64  `json:"acquires"`
	AcquireWait string `json:"acquire_wait"`
}

type healthResponse struct {
	Status   string     `json:"status"`
	Error    string     `json:"error,omitempty"`
	Database PoolHealth `json:"database"`
}

func poolHealth(stat *pgxpool.Stat) PoolHealth {
	return PoolHealth{
		Open:        stat.TotalConns(),
		Idle:        stat.IdleConns(),
		InUse:       stat.AcquiredConns(),
		Capacity:    stat.MaxConns(),
		Acquires:    stat.AcquireCount(),
		AcquireWait: stat.AcquireDuration().String(),
	}
}

// healthStatus maps a ping result to the HTTP status and status string the
// payload reports.
func healthStatus(pingErr error) (int, string) {
	if pingErr != nil {
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusOK, "ok"
}

// HealthHandler serves the liveness endpoint: a bounded ping plus a snapshot
// of the pool, so an exhausted pool is visible before requests start failing.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		pingErr := pool.Ping(ctx)
		code, status := healthStatus(pingErr)

		resp := healthResponse{
			Status:   status,
			Database: poolHealth(pool.Stat()),
		}
		if pingErr != nil {
			resp.Error = pingErr.Error()
		}
		return c.JSON(code, resp)
	}
}
