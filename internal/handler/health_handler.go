package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/cache"
	"storefront/internal/db"
)

// HealthHandler reports whether the service can reach its backing stores.
type HealthHandler struct {
	db    *gorm.DB
	cache *cache.Client
	log   logrus.FieldLogger
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(gormDB *gorm.DB, cache *cache.Client, log logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{db: gormDB, cache: cache, log: log}
}

// HealthResponse describes dependency status.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Healthz godoc
// @Summary Health check
// @Tags ops
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok", Cache: "ok"}
	status := http.StatusOK

	if err := db.Ping(ctx, h.db); err != nil {
		h.log.WithError(err).Error("health: database ping failed")
		resp.Status = "unavailable"
		resp.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}
	// the cache fails safe, so an outage degrades but does not fail the check
	if err := h.cache.Ping(ctx); err != nil {
		resp.Cache = "unavailable"
	}

	return c.JSON(status, resp)
}
