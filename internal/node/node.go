// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/sweepwars"
	"github.com/blinklabs-io/sweepwars/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")

	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	rewardBudget, err := cfg.RewardBudgetAmount()
	if err != nil {
		return fmt.Errorf("invalid reward budget: %w", err)
	}
	opts := []sweepwars.ConfigOptionFunc{
		sweepwars.WithLogger(logger),
		sweepwars.WithDatabasePath(cfg.DatabasePath),
		sweepwars.WithDatabaseCacheSizes(cfg.BlockCacheSize, cfg.IndexCacheSize),
		sweepwars.WithOperator(cfg.OperatorAddress()),
		sweepwars.WithRewardBudget(rewardBudget),
		sweepwars.WithSampleSize(cfg.SampleSize),
		sweepwars.WithStartEpoch(cfg.StartEpoch),
		sweepwars.WithMaxLockEpochs(cfg.MaxLockEpochs),
		sweepwars.WithCheckpointRetention(cfg.CheckpointRetention),
		sweepwars.WithEpochSchedule(cfg.EpochSchedule),
		sweepwars.WithCollections(cfg.CollectionAddresses()...),
		sweepwars.WithTracing(cfg.Tracing),
		sweepwars.WithTracingStdout(cfg.TracingStdout),
		sweepwars.WithShutdownTimeout(shutdownTimeout),
		// Enable metrics with default prometheus registry
		sweepwars.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	}
	for role, members := range cfg.Roles() {
		opts = append(opts, sweepwars.WithRoleMembers(role, members...))
	}
	if cfg.ApiPort > 0 {
		opts = append(
			opts,
			sweepwars.WithApiListenAddress(
				fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
			),
		)
	}
	d, err := sweepwars.New(sweepwars.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component", "node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			metricsErr <- fmt.Errorf("metrics listener: %w", err)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Run(signalCtx)
	}()

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
		if err := d.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		return nil
	}

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		if err := shutdown(); err != nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	case err := <-metricsErr:
		logger.Error("metrics server error", "error", err)
		return errors.Join(err, shutdown())
	case err := <-errChan:
		// Run only returns early when startup fails
		logger.Error("node error", "error", err)
		return errors.Join(err, shutdown())
	}
}
