package console

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/internal/planner"
	"github.com/noah-isme/sma-records-console/internal/schema"
	"github.com/noah-isme/sma-records-console/internal/validation"
	"github.com/noah-isme/sma-records-console/internal/workflow"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
	"github.com/noah-isme/sma-records-console/pkg/storage"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]models.Record
	nextID  int
	listErr error
}

func (m *memStore) List(_ context.Context, query url.Values) ([]models.Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	page, _ := strconv.Atoi(query.Get(planner.ParamPage))
	limit, _ := strconv.Atoi(query.Get(planner.ParamLimit))
	var out []models.Record
	for i := (page - 1) * limit; i >= 0 && i < len(ids) && i < page*limit; i++ {
		out = append(out, m.records[ids[i]].Clone())
	}
	return out, len(ids), nil
}

func (m *memStore) Get(_ context.Context, id string) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	return rec.Clone(), nil
}

func (m *memStore) Create(_ context.Context, rec models.Record) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	saved := rec.Clone()
	saved["id"] = fmt.Sprintf("%d", m.nextID)
	m.records[saved.ID()] = saved
	return saved.Clone(), nil
}

func (m *memStore) Update(_ context.Context, id string, rec models.Record) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := rec.Clone()
	saved["id"] = id
	m.records[id] = saved
	return saved.Clone(), nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return appErrors.Clone(appErrors.ErrWrite, "delete students/"+id+": 404 Not Found")
	}
	delete(m.records, id)
	return nil
}

func newTestConsole(t *testing.T, store *memStore) (*Console, *bytes.Buffer) {
	t.Helper()
	pipeline := validation.NewPipeline(validator.New(), validation.Options{
		Now: func() time.Time { return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC) },
	}, zap.NewNop())
	out := &bytes.Buffer{}
	c := New(schema.Default(), pipeline, func(string) workflow.RecordStore { return store }, 10, out, zap.NewNop())
	return c, out
}

func seeded() *memStore {
	return &memStore{nextID: 2, records: map[string]models.Record{
		"1": {"id": "1", "name": "Ann Lee", "email": "ann@uni.edu", "phone": "5550001111",
			"department": "Science", "gpa": 3.7, "enrollmentDate": "2023-09-01"},
		"2": {"id": "2", "name": "Bob Stone", "email": "bob@uni.edu", "phone": "5550002222",
			"department": "Arts", "enrollmentDate": "2022-09-01T00:00:00Z"},
	}}
}

func TestOpenRendersTable(t *testing.T) {
	c, out := newTestConsole(t, seeded())
	require.NoError(t, c.Open(context.Background(), models.KindStudent))
	c.Render()

	text := out.String()
	assert.Contains(t, text, "Student records")
	assert.Contains(t, text, "Enrollment Date")
	assert.Contains(t, text, "Ann Lee")
	assert.Contains(t, text, "2022-09-01")
	assert.NotContains(t, text, "T00:00:00Z")
	assert.Contains(t, text, "Showing 1-2 of 2 | page 1 of 1")
}

func TestShellAddSaveFlow(t *testing.T) {
	store := seeded()
	c, out := newTestConsole(t, store)
	require.NoError(t, c.Open(context.Background(), models.KindStudent))

	script := strings.Join([]string{
		"add",
		"set name Cara Diaz",
		"set email cara@uni.edu",
		"set phone (555) 000-3333",
		"set department Mathematics",
		"set gpa 3.9",
		"set enrollmentDate 2024-01-15",
		"save",
		"quit",
	}, "\n")
	require.NoError(t, c.Run(context.Background(), strings.NewReader(script)))

	assert.Len(t, store.records, 3)
	assert.Equal(t, "Cara Diaz", store.records["3"]["name"])
	assert.Equal(t, 3.9, store.records["3"]["gpa"])
	assert.Contains(t, out.String(), "ok: Student 3 saved")
	assert.Equal(t, workflow.Closed, c.View().Snapshot().Modal.Kind)
}

func TestShellInvalidSaveShowsErrors(t *testing.T) {
	store := seeded()
	c, out := newTestConsole(t, store)
	require.NoError(t, c.Open(context.Background(), models.KindStudent))

	script := "add\nset name Cara Diaz\nset gpa 4.5\nsave\n"
	require.NoError(t, c.Run(context.Background(), strings.NewReader(script)))

	text := out.String()
	assert.Contains(t, text, "== Add Student ==")
	assert.Contains(t, text, "! GPA must be between 0.0 and 4.0")
	assert.NotContains(t, text, "error: validation failed")
	assert.Len(t, store.records, 2)
	assert.Equal(t, workflow.AddOpen, c.View().Snapshot().Modal.Kind)
}

func TestShellDeleteConfirm(t *testing.T) {
	store := seeded()
	c, out := newTestConsole(t, store)
	require.NoError(t, c.Open(context.Background(), models.KindStudent))

	require.NoError(t, c.Run(context.Background(), strings.NewReader("delete 2\nconfirm\n")))
	assert.Contains(t, out.String(), "Delete Student 2? type confirm or cancel")
	assert.Contains(t, out.String(), "ok: Student 2 deleted")
	assert.NotContains(t, store.records, "2")
}

func TestShellDeleteFailureShowsNotice(t *testing.T) {
	c, out := newTestConsole(t, seeded())
	require.NoError(t, c.Open(context.Background(), models.KindStudent))

	require.NoError(t, c.Run(context.Background(), strings.NewReader("delete 9\nconfirm\n")))
	text := out.String()
	assert.Contains(t, text, "error: delete students/9: 404 Not Found")
	assert.Equal(t, 1, strings.Count(text, "404 Not Found"))
}

func TestShellReportsCommandErrors(t *testing.T) {
	c, out := newTestConsole(t, seeded())
	require.NoError(t, c.Open(context.Background(), models.KindStudent))

	require.NoError(t, c.Run(context.Background(), strings.NewReader("bogus\nsave\nsort salary\nquit\n")))
	text := out.String()
	assert.Contains(t, text, `error: unknown command "bogus", type help`)
	assert.Contains(t, text, "error: action requires the add or edit state, current state is closed")
	assert.Contains(t, text, `error: unknown column "salary"`)
}

func TestExecuteRequiresOpenView(t *testing.T) {
	c, _ := newTestConsole(t, seeded())
	err := c.Execute(context.Background(), "list")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, c.Execute(context.Background(), "open Courses"))
	assert.Equal(t, models.KindCourse, c.View().Schema().Kind)

	assert.ErrorIs(t, c.Execute(context.Background(), "open dragons"), appErrors.ErrNotFound)
	assert.ErrorIs(t, c.Execute(context.Background(), "QUIT"), ErrQuit)
}

func TestListFailureRendersErrorPanel(t *testing.T) {
	store := seeded()
	store.listErr = appErrors.Clone(appErrors.ErrNetwork, "list students: connection refused")
	c, out := newTestConsole(t, store)

	err := c.Open(context.Background(), models.KindStudent)
	require.Error(t, err)
	c.Render()
	assert.Contains(t, out.String(), "!! could not load students: list students: connection refused")
}

func TestExportFileWritesCSV(t *testing.T) {
	c, _ := newTestConsole(t, seeded())
	require.NoError(t, c.Open(context.Background(), models.KindStudent))

	written, err := c.ExportFile("csv", filepath.Join(t.TempDir(), "students"))
	require.NoError(t, err)
	assert.Equal(t, ".csv", filepath.Ext(written))

	raw, err := os.ReadFile(written)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Name,Email,Phone,Department,GPA,Enrollment Date", lines[0])
	assert.Equal(t, "2,Bob Stone,bob@uni.edu,5550002222,Arts,-,2022-09-01", lines[2])
}

func TestSummaryLine(t *testing.T) {
	assert.Equal(t, "Showing 0 of 0 | page 1 of 1", SummaryLine(planner.Summary{Page: 1}))
	assert.Equal(t, "Showing 11-20 of 42 | page 2 of 5 | prev next", SummaryLine(planner.Summary{
		Page: 2, PageSize: 10, TotalItems: 42, TotalPages: 5, HasPrev: true, HasNext: true, From: 11, To: 20,
	}))
}

func TestListAppliesQueryInOneLoad(t *testing.T) {
	store := seeded()
	for i := 3; i <= 25; i++ {
		id := fmt.Sprintf("%02d", i)
		store.records[id] = models.Record{"id": id, "name": "Student " + id}
	}
	c, out := newTestConsole(t, store)
	require.NoError(t, c.Use(models.KindStudent))

	require.NoError(t, c.List(context.Background(), Query{Page: 9, PageSize: 5, Sort: "gpa", Order: "DESC"}))
	snap := c.View().Snapshot()
	assert.Equal(t, 5, snap.Query.Page, "page past the end is clamped")
	assert.Equal(t, planner.Desc, snap.Query.SortOrder)
	assert.Contains(t, out.String(), "Showing 21-25 of 25 | page 5 of 5 | prev")

	err := c.List(context.Background(), Query{Filters: []string{"salary=1"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestShowPrintsRecord(t *testing.T) {
	c, out := newTestConsole(t, seeded())
	require.NoError(t, c.Use(models.KindStudent))

	require.NoError(t, c.Show(context.Background(), "1"))
	assert.Contains(t, out.String(), "Ann Lee")
	assert.Equal(t, workflow.Closed, c.View().Snapshot().Modal.Kind)

	assert.ErrorIs(t, c.Show(context.Background(), "404"), appErrors.ErrNotFound)
}

func TestShowIncludesFormOnlyFields(t *testing.T) {
	store := &memStore{nextID: 1, records: map[string]models.Record{
		"9": {"id": "9", "name": "Dr. Ada Byron", "email": "ada@uni.edu", "phone": "5551234567",
			"department": "Science", "specialization": "Logic", "hireDate": "2015-08-01"},
	}}
	c, out := newTestConsole(t, store)
	require.NoError(t, c.Use(models.KindInstructor))

	require.NoError(t, c.Show(context.Background(), "9"))
	text := out.String()
	assert.Contains(t, text, "Specialization")
	assert.Regexp(t, `Phone\s+5551234567`, text)
	assert.Equal(t, 1, strings.Count(text, "Email"))
}

func TestSubmitEditKeepsOtherFields(t *testing.T) {
	store := seeded()
	c, out := newTestConsole(t, store)
	require.NoError(t, c.Use(models.KindStudent))

	require.NoError(t, c.Submit(context.Background(), "1", map[string]string{"gpa": "3.9"}))
	assert.Equal(t, 3.9, store.records["1"]["gpa"])
	assert.Equal(t, "Ann Lee", store.records["1"]["name"])
	assert.Contains(t, out.String(), "Student 1 saved")
}

func TestSubmitRejectedPrintsProblems(t *testing.T) {
	store := seeded()
	c, out := newTestConsole(t, store)
	require.NoError(t, c.Use(models.KindStudent))

	err := c.Submit(context.Background(), "", map[string]string{"name": "Al"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, out.String(), "! Email is required")
	assert.Len(t, store.records, 2)
	assert.Equal(t, workflow.Closed, c.View().Snapshot().Modal.Kind)
}

func TestDeleteHonoursConfirmation(t *testing.T) {
	store := seeded()
	c, out := newTestConsole(t, store)
	require.NoError(t, c.Use(models.KindStudent))

	var prompts []string
	decline := func(p string) bool { prompts = append(prompts, p); return false }
	require.NoError(t, c.Delete(context.Background(), "1", decline))
	assert.Contains(t, store.records, "1")
	assert.Equal(t, []string{"Delete Student 1?"}, prompts)

	require.NoError(t, c.Delete(context.Background(), "1", nil))
	assert.NotContains(t, store.records, "1")
	assert.Contains(t, out.String(), "Student 1 deleted")
}

func TestExportFileNamesUnderExportDir(t *testing.T) {
	c, out := newTestConsole(t, seeded())
	dir := t.TempDir()
	c.SetExportStorage(storage.NewLocalStorage(dir))
	require.NoError(t, c.Open(context.Background(), models.KindStudent))

	require.NoError(t, c.Execute(context.Background(), "export pdf"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "students-"))
	assert.Equal(t, ".pdf", filepath.Ext(entries[0].Name()))
	assert.Contains(t, out.String(), "exported "+filepath.Join(dir, entries[0].Name()))
}
