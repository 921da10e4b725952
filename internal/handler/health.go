package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/go-catalog/internal/middleware"
	"github.com/deppfellow/go-catalog/internal/server"
	"github.com/labstack/echo/v4"
)

// HealthHandler serves /status for load balancers and uptime monitors.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckHealth reports the database and redis checks with their latency.
//
// 200 when every required check passes, 503 otherwise. Redis is optional
// (the rate limiter fails open), so a redis failure is reported but does not
// make the service unhealthy.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	obs := h.server.Config.Observability
	checks := make(map[string]interface{})
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"store":       h.server.Config.Store.Driver + "/" + h.server.Config.Store.Dialect,
		"checks":      checks,
	}

	isHealthy := true

	if obs.ShouldCheck("database") {
		ctx, cancel := context.WithTimeout(c.Request().Context(), obs.HealthChecks.Timeout)
		defer cancel()

		dbStart := time.Now()
		if err := h.server.DB.Ping(ctx); err != nil {
			checks["database"] = unhealthy(dbStart, err)
			isHealthy = false

			logger.Error().
				Err(err).
				Dur("response_time", time.Since(dbStart)).
				Msg("database health check failed")

			h.recordFailure("database", dbStart, err)
		} else {
			checks["database"] = healthy(dbStart)
			logger.Debug().
				Dur("response_time", time.Since(dbStart)).
				Msg("database health check passed")
		}
	}

	if h.server.Redis != nil && obs.ShouldCheck("redis") {
		ctx, cancel := context.WithTimeout(c.Request().Context(), obs.HealthChecks.Timeout)
		defer cancel()

		redisStart := time.Now()
		if err := h.server.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = unhealthy(redisStart, err)

			logger.Error().
				Err(err).
				Dur("response_time", time.Since(redisStart)).
				Msg("redis health check failed")

			h.recordFailure("redis", redisStart, err)
		} else {
			checks["redis"] = healthy(redisStart)
			logger.Debug().
				Dur("response_time", time.Since(redisStart)).
				Msg("redis health check passed")
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

func healthy(start time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":        "healthy",
		"response_time": time.Since(start).String(),
	}
}

func unhealthy(start time.Time, err error) map[string]interface{} {
	return map[string]interface{}{
		"status":        "unhealthy",
		"response_time": time.Since(start).String(),
		"error":         err.Error(),
	}
}

// recordFailure sends a HealthCheckError custom event when New Relic runs.
func (h *HealthHandler) recordFailure(check string, start time.Time, err error) {
	if h.server.LoggerService == nil || h.server.LoggerService.GetApplication() == nil {
		return
	}
	h.server.LoggerService.GetApplication().RecordCustomEvent(
		"HealthCheckError",
		map[string]interface{}{
			"check_type":       check,
			"operation":        "health_check",
			"error_type":       check + "_unhealthy",
			"response_time_ms": time.Since(start).Milliseconds(),
			"error_message":    err.Error(),
		},
	)
}
