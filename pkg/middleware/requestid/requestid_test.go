package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func run(header string) (string, string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = Value(c) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(HeaderKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return seen, w.Header().Get(HeaderKey)
}

func TestRequestIDGenerated(t *testing.T) {
	seen, header := run("")
	assert.Equal(t, seen, header)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestRequestIDReused(t *testing.T) {
	seen, _ := run("trace-123")
	assert.Equal(t, "trace-123", seen)

	seen, _ = run(strings.Repeat("x", 200))
	assert.Len(t, seen, 36)
}
