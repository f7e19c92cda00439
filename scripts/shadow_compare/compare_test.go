package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodiesEqualIgnoresFieldsAndNumberForm(t *testing.T) {
	a := []byte(`[{"id":"7f3c","name":"Ann","gpa":3}]`)
	b := []byte(`[{"id":1,"name":"Ann","gpa":3.0}]`)
	assert.True(t, bodiesEqual(a, b, []string{"id"}))
	assert.False(t, bodiesEqual(a, b, nil))
	assert.False(t, bodiesEqual(a, []byte(`[{"name":"Bob","gpa":3}]`), []string{"id"}))
	assert.False(t, bodiesEqual(a, []byte(`not json`), []string{"id"}))
}

func serveList(total, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total-Count", total)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestCompareDetectsTotalMismatch(t *testing.T) {
	legacy := serveList("2", `[{"id":1,"name":"Ann"}]`)
	defer legacy.Close()
	goSrv := serveList("3", `[{"id":"a","name":"Ann"}]`)
	defer goSrv.Close()

	cmp := &comparer{client: &http.Client{Timeout: time.Second}, goBase: goSrv.URL, legacyBase: legacy.URL, ignore: []string{"id"}}
	res := cmp.compare(target{Path: "/students?_page=1", Critical: true})
	require.NoError(t, res.Error)
	assert.True(t, res.StatusMatch)
	assert.True(t, res.BodyMatch)
	assert.False(t, res.TotalMatch)

	var out bytes.Buffer
	breaking, optional := printReport(&out, []comparison{res})
	assert.Equal(t, 1, breaking)
	assert.Equal(t, 0, optional)
	assert.Contains(t, out.String(), "[DIFF] GET /students?_page=1")
}

func TestDefaultTargetsCoverEveryCollection(t *testing.T) {
	paths := map[string]bool{}
	for _, tgt := range defaultTargets() {
		paths[tgt.Path] = true
	}
	for _, p := range []string{"/students", "/courses", "/instructors", "/employees"} {
		assert.True(t, paths[p], p)
	}
}
