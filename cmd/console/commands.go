package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-records-console/internal/console"
)

func newKindsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the record kinds and their REST collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.console.Execute(cmd.Context(), "kinds")
		},
	}
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive console on --kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := a.registry.Parse(a.params.Kind)
			if err != nil {
				return err
			}
			// a failed first load is shown in the table panel, the shell keeps running
			_ = a.console.Open(cmd.Context(), kind)
			return a.console.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

func bindQueryFlags(cmd *cobra.Command, q *console.Query) {
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "limit", 0, "rows per page")
	cmd.Flags().StringVarP(&q.Search, "search", "q", "", "free-text search")
	cmd.Flags().StringVar(&q.Sort, "sort", "", "sort column")
	cmd.Flags().StringVar(&q.Order, "order", "asc", "sort order (asc or desc)")
	cmd.Flags().StringArrayVarP(&q.Filters, "filter", "f", nil, "field filter, e.g. department=Science or gpa>=3.5")
}

func newListCmd(a *app) *cobra.Command {
	var q console.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.use(); err != nil {
				return err
			}
			return a.console.List(cmd.Context(), q)
		},
	}
	bindQueryFlags(cmd, &q)
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.use(); err != nil {
				return err
			}
			return a.console.Show(cmd.Context(), args[0])
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record from --set field=value pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSets(sets)
			if err != nil {
				return err
			}
			if err := a.use(); err != nil {
				return err
			}
			return a.console.Submit(cmd.Context(), "", values)
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "form value, e.g. --set name='Ann Lee'")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a record; fields not given keep their stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSets(sets)
			if err != nil {
				return err
			}
			if err := a.use(); err != nil {
				return err
			}
			return a.console.Submit(cmd.Context(), args[0], values)
		},
	}
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "form value, e.g. --set gpa=3.8")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.use(); err != nil {
				return err
			}
			confirm := func(prompt string) bool {
				if yes {
					return true
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				return answer == "y" || answer == "yes"
			}
			return a.console.Delete(cmd.Context(), args[0], confirm)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var q console.Query
	cmd := &cobra.Command{
		Use:   "export <csv|pdf> [path]",
		Short: "Write one page of records to a CSV or PDF file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.use(); err != nil {
				return err
			}
			if err := a.console.Load(cmd.Context(), q); err != nil {
				return err
			}
			var name string
			if len(args) == 2 {
				name = args[1]
			}
			written, err := a.console.ExportFile(args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", written)
			return nil
		},
	}
	bindQueryFlags(cmd, &q)
	return cmd
}

func parseSets(sets []string) (map[string]string, error) {
	values := make(map[string]string, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected field=value", s)
		}
		values[name] = value
	}
	return values, nil
}
