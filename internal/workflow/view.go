package workflow

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/internal/planner"
	"github.com/noah-isme/sma-records-console/internal/schema"
	"github.com/noah-isme/sma-records-console/internal/validation"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

// RecordStore is the CRUD gateway a view talks to.
type RecordStore interface {
	List(ctx context.Context, query url.Values) ([]models.Record, int, error)
	Get(ctx context.Context, id string) (models.Record, error)
	Create(ctx context.Context, rec models.Record) (models.Record, error)
	Update(ctx context.Context, id string, rec models.Record) (models.Record, error)
	Delete(ctx context.Context, id string) error
}

// Table is the render state of the record list.
type Table struct {
	Rows    []models.Record
	Summary planner.Summary
	Loaded  bool
	Loading bool
	// Err replaces the table with an error panel until the next successful load.
	Err error
}

// Snapshot is a consistent copy of the view state for rendering.
type Snapshot struct {
	Query      planner.State
	Table      Table
	Modal      Modal
	Notice     Notice
	Generation uint64
}

// View owns the query, table and modal state of one record kind. It is created
// when the user navigates to the kind and discarded when they leave.
type View struct {
	schema   schema.Schema
	validate validation.Func
	store    RecordStore
	logger   *zap.Logger

	mu         sync.Mutex
	query      planner.State
	table      Table
	modal      Modal
	notice     Notice
	generation uint64
	busy       bool
}

// NewView constructs the view of one record kind.
func NewView(s schema.Schema, validate validation.Func, store RecordStore, pageSize int, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{
		schema:   s,
		validate: validate,
		store:    store,
		logger:   logger.With(zap.String("resource", s.ResourcePath)),
		query:    planner.NewState(pageSize),
		modal:    Modal{Kind: Closed},
	}
}

// Schema returns the schema driving the view.
func (v *View) Schema() schema.Schema {
	return v.schema
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	table := v.table
	table.Rows = make([]models.Record, len(v.table.Rows))
	for i, r := range v.table.Rows {
		table.Rows[i] = r.Clone()
	}
	return Snapshot{
		Query:      v.query.Clone(),
		Table:      table,
		Modal:      v.modal.clone(),
		Notice:     v.notice,
		Generation: v.generation,
	}
}

// Reload fetches the current page again.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	gen, q := v.beginLoad()
	v.mu.Unlock()
	return v.fetch(ctx, gen, q)
}

// Search sets the free-text search and reloads from page 1.
func (v *View) Search(ctx context.Context, text string) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		return q.SetSearch(text), nil
	})
}

// ToggleSort applies a sort-header click on column.
func (v *View) ToggleSort(ctx context.Context, column string) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		if !v.schema.HasColumn(column) {
			return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown column %q", column))
		}
		q.ToggleSort(column)
		return true, nil
	})
}

// SetPageSize changes the page size and reloads from page 1.
func (v *View) SetPageSize(ctx context.Context, size int) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		return q.SetPageSize(size), nil
	})
}

// SetFilter adds, replaces or removes a field filter.
func (v *View) SetFilter(ctx context.Context, f planner.Filter) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		if _, ok := v.schema.Field(f.Field); !ok && !v.schema.HasColumn(f.Field) {
			return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field %q", f.Field))
		}
		return q.SetFilter(f), nil
	})
}

// ClearFilters drops the search text and every filter.
func (v *View) ClearFilters(ctx context.Context) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		return q.ClearFilters(), nil
	})
}

// Apply runs several query changes as one reload. The resulting sort column and
// filters must belong to the schema; a page past the end is clamped on load.
func (v *View) Apply(ctx context.Context, mutate func(q *planner.State) error) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		next := q.Clone()
		if err := mutate(&next); err != nil {
			return false, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		if next.SortColumn != "" && !v.schema.HasColumn(next.SortColumn) {
			return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown column %q", next.SortColumn))
		}
		for _, f := range next.Filters {
			if _, ok := v.schema.Field(f.Field); !ok && !v.schema.HasColumn(f.Field) {
				return false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field %q", f.Field))
			}
		}
		*q = next
		return true, nil
	})
}

// NextPage loads the next page when the control is enabled.
func (v *View) NextPage(ctx context.Context) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		return q.Next(v.table.Summary.TotalPages), nil
	})
}

// PrevPage loads the previous page when the control is enabled.
func (v *View) PrevPage(ctx context.Context) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		return q.Prev(), nil
	})
}

// GoToPage jumps to page, clamped into the known page range.
func (v *View) GoToPage(ctx context.Context, page int) error {
	return v.update(ctx, func(q *planner.State) (bool, error) {
		return q.GoTo(page, v.table.Summary.TotalPages), nil
	})
}

// update mutates the query under the lock and reloads when it changed.
func (v *View) update(ctx context.Context, mutate func(q *planner.State) (bool, error)) error {
	v.mu.Lock()
	changed, err := mutate(&v.query)
	if err != nil || !changed {
		v.mu.Unlock()
		return err
	}
	gen, q := v.beginLoad()
	v.mu.Unlock()
	return v.fetch(ctx, gen, q)
}

// beginLoad starts a new generation. Callers hold mu.
func (v *View) beginLoad() (uint64, planner.State) {
	v.generation++
	v.table.Loading = true
	return v.generation, v.query.Clone()
}

// fetch lists q and applies the result only if gen is still current, so a
// slower earlier response never overwrites a newer one.
func (v *View) fetch(ctx context.Context, gen uint64, q planner.State) error {
	for attempt := 0; ; attempt++ {
		rows, total, err := v.store.List(ctx, q.Values())

		v.mu.Lock()
		if gen != v.generation {
			v.mu.Unlock()
			v.logger.Debug("discarding stale page", zap.Uint64("generation", gen), zap.Int("page", q.Page))
			return nil
		}
		if err != nil {
			v.table = Table{Err: err, Summary: v.table.Summary}
			v.mu.Unlock()
			v.logger.Warn("list failed", zap.Error(err))
			return err
		}
		summary := planner.Summarize(q, total, len(rows))
		if summary.OutOfRange() && attempt == 0 {
			v.query.GoTo(summary.TotalPages, summary.TotalPages)
			gen, q = v.beginLoad()
			v.mu.Unlock()
			continue
		}
		v.table = Table{Rows: rows, Summary: summary, Loaded: true}
		v.mu.Unlock()
		return nil
	}
}

// OpenAdd opens an empty form.
func (v *View) OpenAdd() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.expect(Closed); err != nil {
		return err
	}
	v.modal = Modal{Kind: AddOpen, Form: v.schema.Blank()}
	v.notice = Notice{}
	return nil
}

// OpenEdit fetches the freshest copy of id and opens it in the form.
func (v *View) OpenEdit(ctx context.Context, id string) error {
	v.mu.Lock()
	if err := v.expect(Closed); err != nil {
		v.mu.Unlock()
		return err
	}
	v.busy = true
	v.mu.Unlock()

	rec, err := v.store.Get(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.busy = false
	if err != nil {
		v.notice = Notice{Text: err.Error(), Error: true}
		return err
	}
	v.modal = Modal{Kind: EditOpen, RecordID: id, Record: rec, Form: v.schema.FormValues(rec)}
	v.notice = Notice{}
	return nil
}

// SetField updates one form value of the open form.
func (v *View) SetField(name, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.expect(AddOpen, EditOpen); err != nil {
		return err
	}
	if _, ok := v.schema.Field(name); !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field %q", name))
	}
	v.modal.Form[name] = value
	return nil
}

// Save validates the form and writes it. Invalid input and failed writes keep
// the form open with the problems listed; success closes it and reloads.
func (v *View) Save(ctx context.Context) error {
	v.mu.Lock()
	if err := v.expect(AddOpen, EditOpen); err != nil {
		v.mu.Unlock()
		return err
	}
	modal := v.modal.clone()
	res := v.validate(modal.Form)
	v.modal.Advisories = res.Advisories
	if !res.IsValid {
		v.modal.Errors = res.Errors
		v.mu.Unlock()
		return res.Err()
	}
	var base models.Record
	if modal.Kind == EditOpen {
		base = modal.Record
	}
	rec, err := v.schema.Encode(res.Values, base)
	if err != nil {
		v.modal.Errors = appErrors.Details(err)
		v.mu.Unlock()
		return err
	}
	v.modal.Errors = nil
	v.busy = true
	v.mu.Unlock()

	var saved models.Record
	if modal.Kind == AddOpen {
		if err = v.checkUnique(ctx, rec); err == nil {
			saved, err = v.store.Create(ctx, rec)
		}
	} else {
		saved, err = v.store.Update(ctx, modal.RecordID, rec)
	}

	v.mu.Lock()
	v.busy = false
	if err != nil {
		v.modal.Errors = []string{err.Error()}
		v.mu.Unlock()
		v.logger.Warn("save failed", zap.String("mode", modal.Kind.String()), zap.Error(err))
		return err
	}
	v.modal = Modal{Kind: Closed}
	v.notice = Notice{Text: fmt.Sprintf("%s %s saved", v.schema.EntityLabel, saved.ID())}
	gen, q := v.beginLoad()
	v.mu.Unlock()
	return v.fetch(ctx, gen, q)
}

// checkUnique is a best-effort read-before-write: concurrent creators can still race.
func (v *View) checkUnique(ctx context.Context, rec models.Record) error {
	for _, f := range v.schema.UniqueFields() {
		value, ok := rec.Text(f.Name)
		if !ok || value == "" {
			continue
		}
		query := url.Values{}
		query.Set(planner.ParamPage, "1")
		query.Set(planner.ParamLimit, "1")
		query.Set(f.Name, value)
		rows, total, err := v.store.List(ctx, query)
		if err != nil {
			return err
		}
		if total > 0 || len(rows) > 0 {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %s already exists", f.Label, value))
		}
	}
	return nil
}

// RequestDelete asks for confirmation before deleting id.
func (v *View) RequestDelete(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.expect(Closed); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	v.modal = Modal{Kind: DeleteConfirm, RecordID: id}
	v.notice = Notice{}
	return nil
}

// ConfirmDelete deletes the pending record. The dialog closes either way; only
// a successful delete reloads.
func (v *View) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	if err := v.expect(DeleteConfirm); err != nil {
		v.mu.Unlock()
		return err
	}
	id := v.modal.RecordID
	v.busy = true
	v.mu.Unlock()

	err := v.store.Delete(ctx, id)

	v.mu.Lock()
	v.busy = false
	v.modal = Modal{Kind: Closed}
	if err != nil {
		v.notice = Notice{Text: err.Error(), Error: true}
		v.mu.Unlock()
		v.logger.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	v.notice = Notice{Text: fmt.Sprintf("%s %s deleted", v.schema.EntityLabel, id)}
	gen, q := v.beginLoad()
	v.mu.Unlock()
	return v.fetch(ctx, gen, q)
}

// Cancel closes any open dialog, discarding unsaved input.
func (v *View) Cancel() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.busy {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "request in progress")
	}
	v.modal = Modal{Kind: Closed}
	return nil
}

// expect guards a transition. Callers hold mu.
func (v *View) expect(kinds ...ModalKind) error {
	if v.busy {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "request in progress")
	}
	for _, k := range kinds {
		if v.modal.Kind == k {
			return nil
		}
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("action requires the %s state, current state is %s", strings.Join(names, " or "), v.modal.Kind))
}
