package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/streettrees/internal/logger"
	"github.com/stwalsh4118/streettrees/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	echo := func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) }

	t.Run("generates new request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", echo)

		w := serve(router, http.MethodGet, "/test", nil)

		headerID := w.Header().Get(RequestIDHeader)
		require.NotEmpty(t, headerID)
		assert.Len(t, headerID, 36)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", echo)

		w := serve(router, http.MethodGet, "/test", map[string]string{RequestIDHeader: "upstream-123"})
		assert.Equal(t, "upstream-123", w.Body.String())
	})

	t.Run("replaces oversized request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", echo)

		huge := strings.Repeat("x", maxRequestIDLength+1)
		w := serve(router, http.MethodGet, "/test", map[string]string{RequestIDHeader: huge})
		assert.NotEqual(t, huge, w.Body.String())
		assert.Len(t, w.Body.String(), 36)
	})

	t.Run("GetRequestID returns empty string if not set", func(t *testing.T) {
		assert.Empty(t, GetRequestID(&gin.Context{}))
	})
}

func TestCORS(t *testing.T) {
	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(CORS([]string{"http://localhost:3000"}))
		router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
		return router
	}

	t.Run("allows request from allowed origin", func(t *testing.T) {
		w := serve(newRouter(), http.MethodGet, "/test", map[string]string{"Origin": "http://localhost:3000"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.True(t, strings.EqualFold(RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers")))
	})

	t.Run("does not set CORS headers for disallowed origin", func(t *testing.T) {
		w := serve(newRouter(), http.MethodGet, "/test", map[string]string{"Origin": "http://evil.com"})
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("handles preflight for allowed origin", func(t *testing.T) {
		w := serve(newRouter(), http.MethodOptions, "/test", map[string]string{
			"Origin":                        "http://localhost:3000",
			"Access-Control-Request-Method": "GET",
		})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
		assert.NotContains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})

	t.Run("rejects preflight for disallowed origin", func(t *testing.T) {
		w := serve(newRouter(), http.MethodOptions, "/test", map[string]string{"Origin": "http://evil.com"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestLogger(t *testing.T) {
	t.Run("logs request with query and request id", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewWithWriter("production", "debug", &buf)

		router := gin.New()
		router.Use(RequestID(), Logger(log))
		router.GET("/api/v1/species", func(c *gin.Context) {
			require.NotNil(t, GetLogger(c))
			c.String(http.StatusOK, "OK")
		})

		serve(router, http.MethodGet, "/api/v1/species?q=oak", map[string]string{RequestIDHeader: "req-1"})

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "q=oak", entry["query"])
		assert.EqualValues(t, 200, entry["status"])
	})

	t.Run("levels follow status code", func(t *testing.T) {
		tests := []struct {
			path  string
			code  int
			level string
		}{
			{path: "/boom", code: http.StatusInternalServerError, level: "error"},
			{path: "/missing", code: http.StatusNotFound, level: "warn"},
			{path: "/health", code: http.StatusOK, level: "debug"},
		}
		for _, tt := range tests {
			var buf bytes.Buffer
			router := gin.New()
			router.Use(Logger(logger.NewWithWriter("production", "debug", &buf)))
			router.GET(tt.path, func(c *gin.Context) { c.Status(tt.code) })

			serve(router, http.MethodGet, tt.path, nil)

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), tt.path)
			assert.Equal(t, tt.level, entry["level"], tt.path)
		}
	})

	t.Run("GetLogger returns nil if not set", func(t *testing.T) {
		assert.Nil(t, GetLogger(&gin.Context{}))
	})
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic and returns 500", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID(), Recovery(logger.Nop()))
		router.GET("/panic", func(c *gin.Context) { panic("test panic") })

		w := serve(router, http.MethodGet, "/panic", map[string]string{RequestIDHeader: "req-panic"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body struct {
			Error struct {
				Code      string `json:"code"`
				RequestID string `json:"request_id"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
		assert.Equal(t, "req-panic", body.Error.RequestID)
	})

	t.Run("does not interfere with normal requests", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(logger.Nop()))
		router.GET("/normal", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

		w := serve(router, http.MethodGet, "/normal", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})
}

func TestMetrics(t *testing.T) {
	m := observability.NewMetricsForTesting()
	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/api/v1/boroughs/:borough", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	serve(router, http.MethodGet, "/api/v1/boroughs/Queens", nil)
	serve(router, http.MethodGet, "/api/v1/boroughs/Bronx", nil)
	serve(router, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/boroughs/:borough", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", unmatchedRoute, "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPDuration))
}

func TestMiddlewareStack(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), Logger(logger.Nop()), Recovery(logger.Nop()), CORS([]string{"http://localhost:3000"}))
	router.GET("/test", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c))
		assert.NotNil(t, GetLogger(c))
		c.String(http.StatusOK, "OK")
	})

	w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "http://localhost:3000"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
