package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-records-console/internal/service"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func probe(h gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
	return w
}

func TestReadyReportsFailedDependencies(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return nil }),
		"cache":    pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	})

	w := probe(h.Ready)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"cache":"dial tcp: refused"`)
	assert.NotContains(t, w.Body.String(), "database")

	assert.Equal(t, http.StatusOK, probe(h.Health).Code)
}

func TestReadyWithHealthyDependencies(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{"database": pingFunc(func(context.Context) error { return nil })})
	w := probe(h.Ready)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordWrite("students", "create")

	w := probe(NewMetricsHandler(metrics).Prometheus)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `collection="students"`)

	assert.Equal(t, http.StatusServiceUnavailable, probe(NewMetricsHandler(nil).Prometheus).Code)
}
