package main

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records-console/internal/console"
	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/internal/schema"
	"github.com/noah-isme/sma-records-console/internal/store"
	"github.com/noah-isme/sma-records-console/internal/validation"
	"github.com/noah-isme/sma-records-console/internal/workflow"
	"github.com/noah-isme/sma-records-console/pkg/config"
	"github.com/noah-isme/sma-records-console/pkg/logger"
	"github.com/noah-isme/sma-records-console/pkg/storage"
)

type cliParams struct {
	Kind     string
	BaseURL  string
	PageSize int
}

// app is the state shared by every subcommand once the root pre-run has wired it.
type app struct {
	params   cliParams
	cfg      *config.Config
	logger   *zap.Logger
	registry *schema.Registry
	console  *console.Console
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "console",
		Short:         "Administrative console for student, course, instructor and employee records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.wire(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.params.Kind, "kind", "k", string(models.KindStudent), "record kind (student, course, instructor, employee)")
	rootCmd.PersistentFlags().StringVar(&a.params.BaseURL, "api", "", "REST base URL, overrides API_BASE_URL")
	rootCmd.PersistentFlags().IntVar(&a.params.PageSize, "page-size", 0, "rows per page, overrides PAGE_SIZE")

	rootCmd.AddCommand(
		newKindsCmd(a),
		newShellCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
	)
	return rootCmd
}

func (a *app) wire(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.params.BaseURL != "" {
		cfg.Console.BaseURL = strings.TrimRight(a.params.BaseURL, "/")
	}
	if a.params.PageSize > 0 {
		cfg.Console.PageSize = a.params.PageSize
	}

	logr, err := logger.NewConsole(cfg)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.Console.Timeout}
	pipeline := validation.NewPipeline(nil, validation.Options{InstitutionalDomains: cfg.Console.InstitutionalDomains}, logr)
	stores := func(resource string) workflow.RecordStore {
		return store.NewRecordStore(client, cfg.Console.BaseURL, resource, logr)
	}

	a.cfg = cfg
	a.logger = logr
	a.registry = schema.Default()
	a.console = console.New(a.registry, pipeline, stores, cfg.Console.PageSize, cmd.OutOrStdout(), logr)
	a.console.SetExportStorage(storage.NewLocalStorage(cfg.Console.ExportDir))
	return nil
}

// use selects the --kind view without loading it.
func (a *app) use() error {
	kind, err := a.registry.Parse(a.params.Kind)
	if err != nil {
		return err
	}
	return a.console.Use(kind)
}
