package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-console/internal/models"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

// fakeCollection is a tiny in-memory REST collection used to exercise the client.
type fakeCollection struct {
	mu          sync.Mutex
	records     map[string]models.Record
	nextID      int
	omitTotal   bool
	failStatus  int
	lastQuery   url.Values
	contentType string
}

func (f *fakeCollection) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.failStatus)
		_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"database unavailable"}}`))
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/students"), "/")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && id == "":
		f.lastQuery = r.URL.Query()
		out := make([]models.Record, 0, len(f.records))
		for _, rec := range f.records {
			out = append(out, rec)
		}
		if !f.omitTotal {
			w.Header().Set(TotalCountHeader, fmt.Sprint(len(out)+40))
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodGet:
		rec, ok := f.records[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodPost:
		f.contentType = r.Header.Get("Content-Type")
		var rec models.Record
		_ = json.NewDecoder(r.Body).Decode(&rec)
		if _, has := rec["id"]; has {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.nextID++
		rec["id"] = fmt.Sprint(f.nextID)
		f.records[rec.ID()] = rec
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodPut:
		var rec models.Record
		_ = json.NewDecoder(r.Body).Decode(&rec)
		if rec.ID() != id {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.records[id] = rec
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodDelete:
		if _, ok := f.records[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.records, id)
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*RecordStore, *fakeCollection) {
	t.Helper()
	fake := &fakeCollection{records: map[string]models.Record{
		"1": {"id": "1", "name": "Ann Lee", "gpa": 3.7},
	}, nextID: 1}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewRecordStore(srv.Client(), srv.URL+"/", "/students", zap.NewNop()), fake
}

func TestListReadsTotalCountHeader(t *testing.T) {
	store, fake := newTestStore(t)
	records, total, err := store.List(context.Background(), url.Values{"_page": {"2"}, "_limit": {"5"}, "q": {"ann"}})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 41, total)
	assert.Equal(t, "2", fake.lastQuery.Get("_page"))
	assert.Equal(t, "ann", fake.lastQuery.Get("q"))
}

func TestListFallsBackToArrayLength(t *testing.T) {
	store, fake := newTestStore(t)
	fake.omitTotal = true
	_, total, err := store.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestListFailureIsNetworkError(t *testing.T) {
	store, fake := newTestStore(t)
	fake.failStatus = http.StatusInternalServerError
	_, _, err := store.List(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNetwork)
	assert.Contains(t, err.Error(), "database unavailable")

	unreachable := NewRecordStore(nil, "http://127.0.0.1:1", "students", nil)
	_, _, err = unreachable.List(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrNetwork)
}

func TestGetNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCreateThenGetRoundTrip(t *testing.T) {
	store, fake := newTestStore(t)
	submitted := models.Record{"id": "client-side", "name": "Bob Stone", "gpa": 3.1, "department": "Arts"}

	created, err := store.Create(context.Background(), submitted)
	require.NoError(t, err)
	require.True(t, created.HasID())
	assert.Equal(t, "application/json", fake.contentType)
	assert.Equal(t, "client-side", submitted.ID(), "caller's record is not mutated")

	fetched, err := store.Get(context.Background(), created.ID())
	require.NoError(t, err)
	for _, key := range []string{"name", "gpa", "department"} {
		assert.Equal(t, submitted[key], fetched[key], key)
	}
}

func TestUpdateSendsID(t *testing.T) {
	store, _ := newTestStore(t)
	updated, err := store.Update(context.Background(), "1", models.Record{"name": "Ann Leigh", "gpa": 3.9})
	require.NoError(t, err)
	assert.Equal(t, "1", updated.ID())
	assert.Equal(t, "Ann Leigh", updated["name"])
}

func TestWriteFailuresAreWriteErrors(t *testing.T) {
	store, fake := newTestStore(t)

	err := store.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, appErrors.ErrWrite)

	fake.failStatus = http.StatusServiceUnavailable
	_, err = store.Create(context.Background(), models.Record{"name": "x"})
	assert.ErrorIs(t, err, appErrors.ErrWrite)
	_, err = store.Update(context.Background(), "1", models.Record{"name": "x"})
	assert.ErrorIs(t, err, appErrors.ErrWrite)

	fake.failStatus = 0
	require.NoError(t, store.Delete(context.Background(), "1"))
	assert.Empty(t, fake.records)
}
