package main

import (
	"context"
	"encoding/json"
	"fmt"

	"neurosim/internal/config"
	"neurosim/internal/logging"
	"neurosim/internal/metrics"
	"neurosim/internal/repository/sqlite"
	"neurosim/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the wiring shared by every command
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
	repo    *sqlite.Repository
	metrics *metrics.Collector
	bus     *service.EventBus
	svc     *service.NetworkService
}

// loadConfig reads --config, or searches the default locations, and
// applies --db
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dbPath, _ := cmd.Flags().GetString("db")

	var (
		cfg  *config.Config
		path string
		err  error
	)
	if configPath != "" {
		cfg, path, err = config.LoadFromPath(configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, path, nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		cfgPath: path,
		logger:  logger,
		repo:    repo,
		metrics: metrics.NewCollector("neurosim"),
		bus:     service.NewEventBus(),
	}
	a.svc = service.NewNetworkService(repo, a.bus, logger,
		service.WithMetrics(a.metrics),
		service.WithSimulation(cfg.Simulation.Params(), cfg.Simulation.AutoConnect),
	)
	return a, nil
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// ownerID resolves the --user flag to the account's owner ID
func (a *app) ownerID(ctx context.Context, cmd *cobra.Command) (string, error) {
	username, _ := cmd.Flags().GetString("user")
	if username == "" {
		return "", fmt.Errorf("--user is required")
	}
	user, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("user %q: %w", username, err)
	}
	return user.ID, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
