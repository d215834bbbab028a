package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/resolver"
)

func TestObserveResolve(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveResolve("override", resolver.OutcomeHit, time.Millisecond)
	m.ObserveResolve("override", resolver.OutcomeHit, time.Millisecond)
	m.ObserveResolve("versioned-cache", resolver.OutcomePanic, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResolveTotal.WithLabelValues("override", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveTotal.WithLabelValues("versioned-cache", "panic")))
	assert.Equal(t, int64(1), m.Snapshot().Panics)
}

func TestRecordIntercept(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordIntercept(InterceptServed)
	m.RecordIntercept(InterceptFallthrough)
	m.RecordIntercept(InterceptFallthrough)
	m.RecordIntercept(InterceptUnbound)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Served)
	assert.Equal(t, int64(2), snap.FellThrough)
	assert.Equal(t, int64(1), snap.Unbound)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InterceptTotal.WithLabelValues(InterceptFallthrough)))
}

func TestVersionAndInstallMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetActiveVersion("v7")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpdateActive))

	m.SetActiveVersion("")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.UpdateActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VersionSwitches))

	m.RecordInstall(nil)
	m.RecordInstall(errors.New("bad archive"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstallsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstallsTotal.WithLabelValues("error")))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/_shell/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/_shell/health", "/assets/app.js"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/_shell/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "intercept", "404")))
}
