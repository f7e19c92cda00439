package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/internal/planner"
	"github.com/noah-isme/sma-records-console/internal/schema"
	"github.com/noah-isme/sma-records-console/internal/validation"
	"github.com/noah-isme/sma-records-console/internal/workflow"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
	"github.com/noah-isme/sma-records-console/pkg/storage"
)

// ErrQuit is returned by Execute when the user asks to leave the shell.
var ErrQuit = errors.New("quit")

// StoreFactory returns the record store of a REST collection path.
type StoreFactory func(resource string) workflow.RecordStore

// Console drives one record view at a time from text commands.
type Console struct {
	registry *schema.Registry
	pipeline *validation.Pipeline
	stores   StoreFactory
	pageSize int
	out      io.Writer
	logger   *zap.Logger
	exports  *storage.LocalStorage

	view *workflow.View
}

// New constructs a console. Nothing is loaded until Open is called.
func New(registry *schema.Registry, pipeline *validation.Pipeline, stores StoreFactory, pageSize int, out io.Writer, logger *zap.Logger) *Console {
	if registry == nil {
		registry = schema.Default()
	}
	if pipeline == nil {
		pipeline = validation.NewPipeline(nil, validation.Options{}, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Console{
		registry: registry,
		pipeline: pipeline,
		stores:   stores,
		pageSize: pageSize,
		out:      out,
		logger:   logger,
	}
}

// Open discards the current view, builds one for kind and loads its first page.
// A failed load still leaves the view open with its error panel.
func (c *Console) Open(ctx context.Context, kind models.RecordKind) error {
	if err := c.Use(kind); err != nil {
		return err
	}
	return c.view.Reload(ctx)
}

// Use builds the view of kind without loading anything.
func (c *Console) Use(kind models.RecordKind) error {
	s, err := c.registry.Lookup(kind)
	if err != nil {
		return err
	}
	validate, err := c.pipeline.For(kind)
	if err != nil {
		return err
	}
	c.view = workflow.NewView(s, validate, c.stores(s.ResourcePath), c.pageSize, c.logger)
	return nil
}

// View returns the active view, nil before Open.
func (c *Console) View() *workflow.View {
	return c.view
}

// Run reads commands from in until EOF or quit, rendering after every command.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	if c.view != nil {
		c.Render()
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		err := c.Execute(ctx, line)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.view != nil && !strings.HasPrefix(line, "help") {
			c.Render()
		}
		if err != nil && !c.shown(err) {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

// shown reports whether the rendered view already displays err.
func (c *Console) shown(err error) bool {
	if c.view == nil {
		return false
	}
	snap := c.view.Snapshot()
	if snap.Table.Err != nil && snap.Table.Err.Error() == err.Error() {
		return true
	}
	if snap.Notice.Error && snap.Notice.Text == err.Error() {
		return true
	}
	if snap.Modal.IsForm() && len(snap.Modal.Errors) > 0 {
		return errors.Is(err, appErrors.ErrValidation) || snap.Modal.Errors[0] == err.Error()
	}
	return false
}

// Execute runs one shell command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	cmd, args := splitCommand(line)
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "quit", "exit":
		return ErrQuit
	case "help":
		c.help()
		return nil
	case "kinds":
		for _, k := range c.registry.Kinds() {
			s, _ := c.registry.Lookup(k)
			fmt.Fprintf(c.out, "%-12s /%s\n", k, s.ResourcePath)
		}
		return nil
	case "open":
		if args == "" {
			return usage("open <kind>")
		}
		kind, err := c.registry.Parse(args)
		if err != nil {
			return err
		}
		return c.Open(ctx, kind)
	}

	if c.view == nil {
		return usage("open <kind>")
	}
	v := c.view

	switch cmd {
	case "list", "reload":
		return v.Reload(ctx)
	case "search":
		return v.Search(ctx, args)
	case "sort":
		if args == "" {
			return usage("sort <column>")
		}
		return v.ToggleSort(ctx, args)
	case "next":
		return v.NextPage(ctx)
	case "prev":
		return v.PrevPage(ctx)
	case "page":
		n, err := positive(args, "page <n>")
		if err != nil {
			return err
		}
		return v.GoToPage(ctx, n)
	case "size":
		n, err := positive(args, "size <n>")
		if err != nil {
			return err
		}
		return v.SetPageSize(ctx, n)
	case "filter":
		f, err := planner.ParseFilter(args)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		return v.SetFilter(ctx, f)
	case "clear":
		return v.ClearFilters(ctx)
	case "add":
		return v.OpenAdd()
	case "edit":
		if args == "" {
			return usage("edit <id>")
		}
		return v.OpenEdit(ctx, args)
	case "set":
		field, value := splitCommand(args)
		if field == "" {
			return usage("set <field> <value>")
		}
		return v.SetField(field, value)
	case "save":
		return v.Save(ctx)
	case "cancel":
		return v.Cancel()
	case "delete":
		return v.RequestDelete(args)
	case "confirm":
		return v.ConfirmDelete(ctx)
	case "export":
		format, path := splitCommand(args)
		if format == "" {
			return usage("export <csv|pdf> [path]")
		}
		written, err := c.ExportFile(format, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "exported %s\n", written)
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown command %q, type help", cmd))
	}
}

func (c *Console) help() {
	fmt.Fprint(c.out, `commands:
  kinds                      list record kinds
  open <kind>                switch to a record kind
  list                       reload the current page
  search <text>              free-text search (empty clears)
  sort <column>              sort by column, again to reverse
  next | prev | page <n>     navigate pages
  size <n>                   change page size
  filter <field>=<value>     also >= and <=, empty value removes
  clear                      drop search and filters
  add | edit <id>            open the record form
  set <field> <value>        fill a form field
  save | cancel              submit or discard the form
  delete <id> | confirm      delete a record after confirmation
  export <csv|pdf> [path]    write the current page to a file
  quit
`)
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	i := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}

func positive(raw, syntax string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, usage(syntax)
	}
	return n, nil
}

func usage(syntax string) error {
	return appErrors.Clone(appErrors.ErrValidation, "usage: "+syntax)
}
