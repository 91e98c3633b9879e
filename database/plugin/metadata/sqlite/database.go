// Copyright 2026 Blink Labs Software
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

// Package sqlite is the metadata store for reward snapshots and war results
package sqlite

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/sweepwars/database/models"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// VacuumSchedule is when a file-backed store reclaims free pages
const VacuumSchedule = "@daily"

// memoryDbSeq gives each in-memory store its own shared-cache database
var memoryDbSeq atomic.Uint64

type metadataMetrics struct {
	vacuums        prometheus.Counter
	vacuumFailures prometheus.Counter
	vacuumSeconds  prometheus.Histogram
}

func newMetadataMetrics(promRegistry prometheus.Registerer) *metadataMetrics {
	f := promauto.With(promRegistry)
	return &metadataMetrics{
		vacuums: f.NewCounter(prometheus.CounterOpts{
			Name: "sweepwars_metadata_vacuum_total",
			Help: "number of metadata store vacuum runs",
		}),
		vacuumFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "sweepwars_metadata_vacuum_failures_total",
			Help: "number of failed metadata store vacuum runs",
		}),
		vacuumSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweepwars_metadata_vacuum_seconds",
			Help:    "duration of metadata store vacuum runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// MetadataStoreSqlite keeps relational records in SQLite through GORM
type MetadataStoreSqlite struct {
	db      *gorm.DB
	logger  *slog.Logger
	metrics *metadataMetrics
	vacuum  *cron.Cron
	dataDir string
}

// New opens the store under dataDir, or a private in-memory database when
// dataDir is empty
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreSqlite, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dsn, err := dataSourceName(dataDir)
	if err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, err
	}
	d := &MetadataStoreSqlite{
		db:      gdb,
		logger:  logger,
		dataDir: dataDir,
	}
	if promRegistry != nil {
		d.metrics = newMetadataMetrics(promRegistry)
	}
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return d, err
	}
	for _, model := range models.MigrateModels {
		d.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := d.db.AutoMigrate(model); err != nil {
			return d, err
		}
	}
	if dataDir != "" {
		if err := d.scheduleVacuum(); err != nil {
			return d, err
		}
	}
	return d, nil
}

func dataSourceName(dataDir string) (string, error) {
	if dataDir == "" {
		return fmt.Sprintf(
			"file:sweepwars-%d?mode=memory&cache=shared",
			memoryDbSeq.Add(1),
		), nil
	}
	if _, err := os.Stat(dataDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read data dir: %w", err)
		}
		if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
			return "", fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	// WAL journal mode and a 50MB cache
	return fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=cache_size(-50000)",
		filepath.Join(dataDir, "metadata.sqlite"),
	), nil
}

func (d *MetadataStoreSqlite) scheduleVacuum() error {
	d.vacuum = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := d.vacuum.AddFunc(VacuumSchedule, d.runVacuum); err != nil {
		return fmt.Errorf("schedule vacuum: %w", err)
	}
	d.vacuum.Start()
	return nil
}

func (d *MetadataStoreSqlite) runVacuum() {
	d.logger.Debug(
		"running vacuum on sqlite metadata database",
		"component", "database",
	)
	if err := d.Vacuum(); err != nil {
		d.logger.Error(
			"failed to free unused space in metadata store",
			"component", "database",
			"error", err,
		)
	}
}

// Vacuum rebuilds the database file to release unused pages
func (d *MetadataStoreSqlite) Vacuum() error {
	start := time.Now()
	err := d.db.Exec("VACUUM").Error
	if d.metrics != nil {
		d.metrics.vacuums.Inc()
		d.metrics.vacuumSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			d.metrics.vacuumFailures.Inc()
		}
	}
	return err
}

// Close stops the vacuum schedule, waits for a running vacuum and closes
// the connection pool
func (d *MetadataStoreSqlite) Close() error {
	if d.vacuum != nil {
		<-d.vacuum.Stop().Done()
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDB.Close()
}

// DB returns the underlying GORM database handle
func (d *MetadataStoreSqlite) DB() *gorm.DB {
	return d.db
}
