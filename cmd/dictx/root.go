package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dictx/internal/config"
	"github.com/JonMunkholm/dictx/internal/core"
	"github.com/JonMunkholm/dictx/internal/logging"
	"github.com/JonMunkholm/dictx/internal/store/backend"
)

// app holds what every subcommand shares. The store is opened on first use
// so commands that never touch it do not need one.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	driver   string
	path     string
	url      string
	logLevel string

	cfg     *config.Config
	logger  *slog.Logger
	store   backend.Store
	service *core.Service
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "dictx",
		Short: "Export and import data dictionaries",
		Long: `dictx moves data dictionary definitions between a store and
interchange documents.

The store is chosen by DICT_STORE (postgres, sqlite or file) and can be
overridden with --store, --path and --url.

Examples:
  dictx tables
  dictx export -o dictionary.xml
  dictx export Thermo --format yaml
  dictx import dictionary.xml --on-error ignore-all
  dictx import - --format json --dry-run < dictionary.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.driver, "store", "", "store driver: postgres, sqlite or file (default from DICT_STORE)")
	flags.StringVar(&a.path, "path", "", "sqlite or file store path (default from DICT_PATH)")
	flags.StringVar(&a.url, "url", "", "postgres connection URL (default from DATABASE_URL)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (default from LOG_LEVEL)")

	root.AddCommand(
		newExportCmd(a),
		newImportCmd(a),
		newTablesCmd(a),
		newTypesCmd(a),
		newFormatsCmd(a),
		newResetCmd(a),
	)
	return root
}

// config loads the environment configuration and applies flag overrides.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if a.driver != "" {
		cfg.Database.Driver = a.driver
	}
	if a.path != "" {
		cfg.Database.Path = a.path
	}
	if a.url != "" {
		cfg.Database.URL = a.url
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.logger = logging.New(a.errOut, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// open returns the service over the configured store. Callers defer close.
func (a *app) open(ctx context.Context) (*core.Service, error) {
	if a.service != nil {
		return a.service, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	store, err := backend.Open(ctx, cfg.Database, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	opts, err := core.OptionsFromConfig(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.store = store
	a.service = core.NewService(store, opts, a.logger)
	return a.service, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.service = nil, nil
	return err
}

// userError renders err with its support code for the terminal.
func userError(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("%s\n%w", core.FormatUserError(err), err)
}
