package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inventory-service/internal/config"
	"inventory-service/internal/localstore"
	"inventory-service/internal/logging"
	"inventory-service/internal/metrics"
	"inventory-service/internal/query"
	"inventory-service/internal/remote"
	"inventory-service/internal/retry"
	"inventory-service/internal/store"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	EnvFile string
	Output  string // "json" | "table"
}

var validOutputs = []string{"json", "table"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           defaultAppName,
		Short:         "Inventory - product catalog browser",
		Long:          "Serves and queries a remote product catalog merged with locally created products and inline edits.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, o := range validOutputs {
				if o == opts.Output {
					return nil
				}
			}
			return fmt.Errorf("invalid output %q: must be one of %v", opts.Output, validOutputs)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional dotenv file read before the environment")
	cmd.PersistentFlags().StringVarP(&opts.Output, "output", "o", "table", "output format (json|table)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newProductsCommand(opts))
	cmd.AddCommand(newStorageCommand(opts))
	cmd.AddCommand(newRemoteCommand(opts))

	return cmd
}

// app is the wired object graph shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	kv      store.KVStore
	local   *localstore.Store
	remote  *remote.Client
	metrics *metrics.Metrics
	service *query.Service
}

// bootstrap loads configuration and wires storage, the remote client and the
// query service. onCatalog may be nil. Callers must call close.
func bootstrap(ctx context.Context, opts *rootOptions, onCatalog func(bool)) (*app, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	logger.Debug("configuration loaded",
		zap.String("app_env", cfg.AppEnv),
		zap.String("storage_driver", string(cfg.Storage.Driver)))

	kv, err := store.Open(ctx, cfg.Storage.StoreOptions())
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	client := remote.NewClient(remote.Options{
		BaseURL:        cfg.Remote.BaseURL,
		Timeout:        cfg.Remote.Timeout,
		SimulateWrites: cfg.Remote.SimulateWrites,
	}, logger)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		kv:      kv,
		local:   localstore.New(kv, logger),
		remote:  client,
		metrics: metrics.New(),
	}

	svcOpts := serviceOptions(cfg)
	svcOpts.OnCatalogStatus = onCatalog
	a.service = query.NewService(a.remote, a.local, svcOpts, a.metrics, logger)
	return a, nil
}

func serviceOptions(cfg *config.Config) query.Options {
	c := cfg.Cache
	return query.Options{
		CatalogStaleTime:  c.CatalogStaleTime,
		CategoryStaleTime: c.CategoryStaleTime,
		CatalogRetry:      retry.WithRetries(c.CatalogRetries, c.RetryBaseDelay, c.RetryMaxDelay),
		CategoryRetry:     retry.WithRetries(c.CategoryRetries, c.RetryBaseDelay, c.RetryMaxDelay),
		ResultCacheSize:   c.ResultCacheSize,
		ResultCacheTTL:    c.ResultCacheTTL,
	}
}

func (a *app) close() {
	a.service.Wait()
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("error closing storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}
