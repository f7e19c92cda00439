package console

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/sma-records-console/internal/planner"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

// Query is a one-shot listing request.
type Query struct {
	Page     int
	PageSize int
	Search   string
	Sort     string
	Order    string
	Filters  []string
}

// List loads q and renders the table.
func (c *Console) List(ctx context.Context, q Query) error {
	if err := c.Load(ctx, q); err != nil {
		return err
	}
	RenderTable(c.out, c.view.Schema(), c.view.Snapshot().Table)
	return nil
}

// Load applies q to the open view with a single load.
func (c *Console) Load(ctx context.Context, q Query) error {
	if c.view == nil {
		return usage("open <kind>")
	}
	err := c.view.Apply(ctx, func(s *planner.State) error {
		if q.PageSize > 0 {
			s.SetPageSize(q.PageSize)
		}
		s.SetSearch(q.Search)
		order := planner.Asc
		if strings.EqualFold(q.Order, string(planner.Desc)) {
			order = planner.Desc
		}
		s.SetSort(q.Sort, order)
		for _, expr := range q.Filters {
			f, err := planner.ParseFilter(expr)
			if err != nil {
				return err
			}
			s.SetFilter(f)
		}
		if q.Page > 1 {
			s.Page = q.Page
		}
		return nil
	})
	if tableErr := c.view.Snapshot().Table.Err; tableErr != nil {
		return tableErr
	}
	return err
}

// Show prints one record as label/value pairs using the edit path, so the
// freshest server copy is displayed.
func (c *Console) Show(ctx context.Context, id string) error {
	if c.view == nil {
		return usage("open <kind>")
	}
	if err := c.view.OpenEdit(ctx, id); err != nil {
		return err
	}
	snap := c.view.Snapshot()
	_ = c.view.Cancel()

	s := c.view.Schema()
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", snap.Modal.RecordID)
	for _, col := range s.Columns {
		if col.Key == "id" {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", col.Label, s.Cell(snap.Modal.Record, col.Key))
	}
	// form-only fields, e.g. instructor phone
	for _, f := range s.Fields {
		if f.Name == "id" || s.HasColumn(f.Name) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", f.Label, s.Cell(snap.Modal.Record, f.Name))
	}
	return tw.Flush()
}

// Submit creates a record (empty id) or updates id with values, printing the
// validation problems when the form is rejected.
func (c *Console) Submit(ctx context.Context, id string, values map[string]string) error {
	if c.view == nil {
		return usage("open <kind>")
	}
	v := c.view
	var err error
	if id == "" {
		err = v.OpenAdd()
	} else {
		err = v.OpenEdit(ctx, id)
	}
	if err != nil {
		return err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := v.SetField(name, values[name]); err != nil {
			_ = v.Cancel()
			return err
		}
	}

	err = v.Save(ctx)
	snap := v.Snapshot()
	if snap.Modal.IsForm() {
		for _, e := range snap.Modal.Errors {
			fmt.Fprintf(c.out, "! %s\n", e)
		}
		_ = v.Cancel()
		if err == nil {
			err = appErrors.Clone(appErrors.ErrInternal, "form still open after save")
		}
		return err
	}
	for _, a := range snap.Modal.Advisories {
		fmt.Fprintf(c.out, "~ %s\n", a)
	}
	if snap.Notice.Text != "" {
		fmt.Fprintln(c.out, snap.Notice.Text)
	}
	return err
}

// Delete removes id through the confirmation dialog. confirm decides whether
// the dialog is confirmed or cancelled.
func (c *Console) Delete(ctx context.Context, id string, confirm func(prompt string) bool) error {
	if c.view == nil {
		return usage("open <kind>")
	}
	if err := c.view.RequestDelete(id); err != nil {
		return err
	}
	prompt := fmt.Sprintf("Delete %s %s?", c.view.Schema().EntityLabel, id)
	if confirm != nil && !confirm(prompt) {
		fmt.Fprintln(c.out, "cancelled")
		return c.view.Cancel()
	}
	if err := c.view.ConfirmDelete(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, c.view.Snapshot().Notice.Text)
	return nil
}
