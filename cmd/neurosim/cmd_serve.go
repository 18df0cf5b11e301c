package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neurosim/internal/auth"
	"neurosim/internal/config"
	"neurosim/internal/handler"
	"neurosim/internal/hub"
	"neurosim/internal/watcher"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// residentGaugeInterval also paces idle network eviction
const residentGaugeInterval = 15 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and live event stream",
		Long: `Serve the REST API under /api, Server-Sent Events on /events,
Prometheus metrics on /metrics and a health check on /health.

When a config file is in use, edits to its simulation section are applied
to running networks without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	secret := a.cfg.Auth.Secret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		secret = hex.EncodeToString(buf)
		a.logger.Warn("no auth secret configured, tokens will not survive a restart",
			zap.String("env", config.EnvJWTSecret))
	}

	tokens, err := auth.NewTokenIssuer([]byte(secret), a.cfg.Auth.Issuer, a.cfg.Auth.TokenTTL.Duration())
	if err != nil {
		return err
	}
	authSvc := auth.NewService(a.repo, tokens, a.logger)

	sseHub := hub.New(a.logger)
	sseHub.Attach(a.bus)

	server := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: handler.NewRouter(handler.RouterConfig{
			Network:        a.svc,
			Auth:           authSvc,
			Events:         sseHub,
			Metrics:        a.metrics,
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
			Logger:         a.logger,
		}),
		ReadTimeout:  a.cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: a.cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sseHub.Run(gctx)
	})

	g.Go(func() error {
		a.logger.Info("neurosim listening", zap.String("addr", server.Addr), zap.String("config", a.cfg.Summary()))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if a.cfgPath != "" {
		reloader := watcher.NewConfigReloader(a.cfgPath, func(c *config.Config) {
			a.svc.ApplySimulation(c.Simulation.Params(), c.Simulation.AutoConnect)
		}, a.logger)
		g.Go(func() error {
			return reloader.Watch(gctx)
		})
	}

	idle := a.cfg.Server.SessionIdleTimeout.Duration()
	g.Go(func() error {
		ticker := time.NewTicker(residentGaugeInterval)
		defer ticker.Stop()
		for {
			if idle > 0 {
				a.svc.EvictIdle(idle)
			}
			a.metrics.SetResidentNetworks(a.svc.ResidentOwners())
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}
