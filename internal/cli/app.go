package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/mops/internal/bus"
	"github.com/roach88/mops/internal/config"
	"github.com/roach88/mops/internal/coordinator"
	"github.com/roach88/mops/internal/localcache"
	"github.com/roach88/mops/internal/remote"
	"github.com/roach88/mops/internal/schema"
)

// app is the wiring shared by every command: config, logger, local cache
// and coordinator provider.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	cache     *localcache.Cache
	provider  *coordinator.Provider
	schemas   *schema.Registry
	formatter *OutputFormatter
}

// openApp loads configuration, applies flag overrides and opens the local
// cache. Failures are reported through the formatter.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	logger, err := newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to configure logging", err)
	}

	reg, err := loadSchemas(cfg)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load schema", err)
	}

	logger.Debug("opening local cache", "path", cfg.Database)
	cache, err := localcache.Open(cfg.Database, bus.New(), localcache.WithLogger(logger))
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to open local cache", err)
	}

	popts := []coordinator.Option{coordinator.WithLogger(logger), coordinator.WithSchemas(reg)}
	if cfg.Remote.BaseURL != "" {
		client := remote.NewClient(cfg.Remote.BaseURL,
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithRateLimit(cfg.Remote.RateLimit, cfg.Remote.Burst),
			remote.WithLogger(logger),
		)
		popts = append(popts, coordinator.WithRemote(client))
	}

	return &app{
		cfg:       cfg,
		log:       logger,
		cache:     cache,
		provider:  coordinator.NewProvider(cache, popts...),
		schemas:   reg,
		formatter: formatter,
	}, nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Error("error closing local cache", "error", err)
	}
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadOptional(config.DefaultPath)
	}
	if err != nil {
		return nil, err
	}

	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.RemoteURL != "" {
		cfg.Remote.BaseURL = opts.RemoteURL
	}
	return cfg, nil
}

func loadSchemas(cfg *config.Config) (*schema.Registry, error) {
	if cfg.Schema != "" {
		return schema.LoadFile(cfg.Schema)
	}
	return schema.Default()
}

// newLogger builds the slog logger. --verbose forces debug level.
func newLogger(lc config.LogConfig, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	hopts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nil
}
