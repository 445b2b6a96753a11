package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstancesDoNotCollide(t *testing.T) {
	// promauto on the default registry would panic here
	a := NewMetrics()
	b := NewMetrics()

	a.IncRoutesTotal()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RoutesTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RoutesTotal))
}

func TestSocketGauge(t *testing.T) {
	m := NewMetrics()

	m.AddSockets(1)
	m.AddSockets(1)
	m.AddSockets(-1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SocketsActive))
	assert.Equal(t, int64(1), m.Snapshot().ActiveSockets)
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics()

	m.SetRoutesActive(3)
	m.IncResourcesServed()
	m.IncResourcesDenied()
	m.IncResourcesDenied()
	m.RecordSendFailure("postMessage")

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.ActiveRoutes)
	assert.Equal(t, int64(1), snap.ResourcesServed)
	assert.Equal(t, int64(2), snap.ResourcesDenied)
	assert.Equal(t, int64(1), snap.SendFailures)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SendFailures.WithLabelValues("postMessage")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/webview/:route", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/webview/a", "/webview/b", "/nope"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/webview/:route", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, int64(3), m.Snapshot().TotalRequests)
}

func TestHandlerExposition(t *testing.T) {
	m := NewMetrics()
	m.IncBindAttempts()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "webview_bind_attempts_total 1"))
	assert.True(t, strings.Contains(body, "webview_uptime_seconds"))
}
