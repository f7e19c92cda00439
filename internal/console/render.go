package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/sma-records-console/internal/planner"
	"github.com/noah-isme/sma-records-console/internal/schema"
	"github.com/noah-isme/sma-records-console/internal/workflow"
)

// Render writes the current view to the console output.
func (c *Console) Render() {
	if c.view == nil {
		return
	}
	RenderSnapshot(c.out, c.view.Schema(), c.view.Snapshot())
}

// RenderSnapshot writes the table, pagination summary, notice and open dialog.
func RenderSnapshot(w io.Writer, s schema.Schema, snap workflow.Snapshot) {
	fmt.Fprintf(w, "\n%s records%s\n", s.EntityLabel, describeQuery(s, snap.Query))

	switch {
	case snap.Table.Err != nil:
		fmt.Fprintf(w, "!! could not load %s: %v\n", s.ResourcePath, snap.Table.Err)
		fmt.Fprintln(w, "!! type list to retry")
	case !snap.Table.Loaded:
		fmt.Fprintln(w, "loading...")
	default:
		RenderTable(w, s, snap.Table)
	}

	if snap.Notice.Text != "" {
		prefix := "ok"
		if snap.Notice.Error {
			prefix = "error"
		}
		fmt.Fprintf(w, "%s: %s\n", prefix, snap.Notice.Text)
	}
	renderModal(w, s, snap.Modal)
}

// RenderTable writes the rows with aligned columns followed by the summary line.
func RenderTable(w io.Writer, s schema.Schema, table workflow.Table) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(s.Headers(), "\t"))
	if len(table.Rows) == 0 {
		fmt.Fprintf(tw, "no %s found\n", strings.ToLower(s.ResourcePath))
	}
	cells := make([]string, len(s.Columns))
	for _, rec := range table.Rows {
		for i, col := range s.Columns {
			cells[i] = s.Cell(rec, col.Key)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	fmt.Fprintln(w, SummaryLine(table.Summary))
}

// SummaryLine renders e.g. "Showing 11-20 of 42 | page 2 of 5 | prev next".
func SummaryLine(sum planner.Summary) string {
	pages := sum.TotalPages
	if pages < 1 {
		pages = 1
	}
	var b strings.Builder
	if sum.TotalItems == 0 {
		b.WriteString("Showing 0 of 0")
	} else {
		fmt.Fprintf(&b, "Showing %d-%d of %d", sum.From, sum.To, sum.TotalItems)
	}
	fmt.Fprintf(&b, " | page %d of %d", sum.Page, pages)

	var controls []string
	if sum.HasPrev {
		controls = append(controls, "prev")
	}
	if sum.HasNext {
		controls = append(controls, "next")
	}
	if len(controls) > 0 {
		b.WriteString(" | " + strings.Join(controls, " "))
	}
	return b.String()
}

func describeQuery(s schema.Schema, q planner.State) string {
	var parts []string
	if q.SearchText != "" {
		parts = append(parts, fmt.Sprintf("search %q", q.SearchText))
	}
	if q.SortColumn != "" {
		label := q.SortColumn
		for _, col := range s.Columns {
			if col.Key == q.SortColumn {
				label = col.Label
			}
		}
		parts = append(parts, fmt.Sprintf("sorted by %s %s", label, q.SortOrder))
	}
	for _, f := range q.Filters {
		parts = append(parts, fmt.Sprintf("%s=%s", f.Param(), f.Value))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func renderModal(w io.Writer, s schema.Schema, m workflow.Modal) {
	switch m.Kind {
	case workflow.Closed:
		return
	case workflow.DeleteConfirm:
		fmt.Fprintf(w, "\nDelete %s %s? type confirm or cancel\n", s.EntityLabel, m.RecordID)
		return
	}

	title := "Add " + s.EntityLabel
	if m.Kind == workflow.EditOpen {
		title = fmt.Sprintf("Edit %s %s", s.EntityLabel, m.RecordID)
	}
	fmt.Fprintf(w, "\n== %s ==\n", title)

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, f := range s.Fields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		hint := ""
		if opts := f.Options(); len(opts) > 0 {
			hint = "(" + strings.Join(opts, "|") + ")"
		} else if f.Type() == schema.TypeDate {
			hint = "(YYYY-MM-DD)"
		}
		fmt.Fprintf(tw, "  %s\t%s:\t%s\t%s\n", f.Name, label, m.Form[f.Name], hint)
	}
	_ = tw.Flush()

	for _, e := range m.Errors {
		fmt.Fprintf(w, "  ! %s\n", e)
	}
	for _, a := range m.Advisories {
		fmt.Fprintf(w, "  ~ %s\n", a)
	}
	fmt.Fprintln(w, "set <field> <value>, then save or cancel")
}
