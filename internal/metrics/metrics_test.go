package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/product/:id", func(c echo.Context) error {
		if c.Param("id") == "404" {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return c.NoContent(http.StatusOK)
	})

	before200 := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/product/:id", "200"))
	before404 := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/product/:id", "404"))

	for _, path := range []string{"/api/product/1", "/api/product/2", "/api/product/404"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, before200+2, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/product/:id", "200")))
	assert.Equal(t, before404+1, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/product/:id", "404")))
}

func TestRecordOrders(t *testing.T) {
	created := testutil.ToFloat64(ordersCreated)
	cancelled := testutil.ToFloat64(ordersCancelled)

	RecordOrderCreated(3)
	RecordOrderCancelled()

	assert.Equal(t, created+1, testutil.ToFloat64(ordersCreated))
	assert.Equal(t, cancelled+1, testutil.ToFloat64(ordersCancelled))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordOrderCreated(1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "storefront_orders_created_total"))
}
