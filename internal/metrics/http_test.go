package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Success_RecordHTTPMetrics", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		router := gin.New()
		router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "test_app"))
		router.POST("/api/v1/ots/", func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"id": "abc"})
		})

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ots/", nil))
			assert.Equal(t, http.StatusCreated, w.Code)
		}

		output := scrape(t, provider)
		assertBizMetricLine(t, output,
			`test_app_http_requests_total`,
			`method="POST".*path="/api/v1/ots/".*status_code="201"`,
			`3`,
		)
	})

	t.Run("Success_RouteParamsNotRecorded", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		router := gin.New()
		router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "test_app"))
		router.GET("/api/v1/ots/:id", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		})

		for _, id := range []string{"0190aaaa", "0190bbbb"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ots/"+id+"?key=ff", nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
		}

		output := scrape(t, provider)
		assertBizMetricLine(t, output,
			`test_app_http_requests_total`,
			`method="GET".*path="/api/v1/ots/:id".*status_code="404"`,
			`2`,
		)
		assert.NotContains(t, output, "0190aaaa")
		assert.NotContains(t, output, "key=ff")
	})

	t.Run("Success_UnmatchedRoutesShareOneSeries", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		router := gin.New()
		router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "test_app"))

		for _, path := range []string{"/s/whatever", "/wp-admin", "/.env"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
		}

		output := scrape(t, provider)
		assertBizMetricLine(t, output,
			`test_app_http_requests_total`,
			`method="GET".*path="unmatched".*status_code="404"`,
			`3`,
		)
		assert.NotContains(t, output, "wp-admin")
	})

	t.Run("Success_InFlightReturnsToZero", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		var during string
		router := gin.New()
		router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "test_app"))
		router.DELETE("/api/v1/ots/:id", func(c *gin.Context) {
			during = scrape(t, provider)
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/ots/abc", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)

		assertBizMetricLine(t, during, `test_app_http_requests_in_flight`, `method="DELETE"`, `1`)
		assertBizMetricLine(t, scrape(t, provider), `test_app_http_requests_in_flight`, `method="DELETE"`, `0`)
	})
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/api/v1/ots/:id", routeLabel("/api/v1/ots/:id"))
	assert.Equal(t, "/", routeLabel("/"))
	assert.Equal(t, unmatchedRoute, routeLabel(""))
}
