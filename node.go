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

package sweepwars

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/sweepwars/api"
	"github.com/blinklabs-io/sweepwars/database"
	"github.com/blinklabs-io/sweepwars/epoch"
	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/ledger"
	"github.com/blinklabs-io/sweepwars/ledger/snapshot"
	"github.com/blinklabs-io/sweepwars/registry"
	"github.com/blinklabs-io/sweepwars/staking"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/war"
	"github.com/robfig/cron/v3"
)

// Checkpoint component names
const (
	ComponentRegistry = "registry"
	ComponentStaking  = "staking"
	ComponentLedger   = "ledger"
	ComponentWar      = "war"
)

var (
	ErrNotStarted     = errors.New("node is not started")
	ErrAlreadyStarted = errors.New("node is already started")
)

type Node struct {
	// mu serializes every call into the components below
	mu              sync.Mutex
	config          Config
	eventBus        *event.EventBus
	db              *database.Database
	clock           *epoch.Clock
	registry        *registry.Registry
	staking         *staking.Staking
	boost           *staking.Boost
	authorizer      voting.StaticAuthorizer
	ledger          *ledger.Ledger
	allocator       *snapshot.Allocator
	wars            *war.Machine
	snapshotManager *snapshot.Manager
	cron            *cron.Cron
	apiServer       *api.Server
	shutdownFuncs   []func(context.Context) error
	started         bool
	transitions     uint64
	done            chan struct{}
	shutdownOnce    sync.Once
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		n.eventBus.Stop()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run starts the node and blocks until Stop is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return err
	}
	// Wait for shutdown signal
	<-n.done
	return nil
}

// Start opens the database, builds every component, restores the most
// recent checkpoint and starts the background services
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return ErrAlreadyStarted
	}
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		BlockCacheSize: n.config.blockCacheSize,
		IndexCacheSize: n.config.indexCacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err := n.buildComponents(); err != nil {
		return err
	}
	if err := n.restore(); err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}
	// Persist epoch transitions
	n.snapshotManager = snapshot.NewManager(
		n.db,
		n.eventBus,
		n.config.logger,
		n.config.checkpointRetention,
	)
	if err := n.snapshotManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start snapshot manager: %w", err)
	}
	// Advance epochs on a schedule
	if n.config.epochSchedule != "" {
		n.cron = cron.New()
		if _, err := n.cron.AddFunc(n.config.epochSchedule, func() {
			n.scheduledAdvance(ctx)
		}); err != nil {
			return fmt.Errorf("failed to schedule epoch advance: %w", err)
		}
		n.cron.Start()
		n.config.logger.Info(
			"epoch schedule enabled",
			"component", "node",
			"schedule", n.config.epochSchedule,
		)
	}
	// Configure REST API
	if n.config.apiListenAddress != "" {
		n.apiServer = api.New(api.Config{
			Backend:       n,
			Logger:        n.config.logger,
			ListenAddress: n.config.apiListenAddress,
		})
		if err := n.apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
	}
	n.started = true
	n.config.logger.Info(
		"node started",
		"component", "node",
		"epoch", n.clock.CurrentEpoch(),
	)
	return nil
}

func (n *Node) buildComponents() error {
	var err error
	n.clock = epoch.NewClock(n.config.startEpoch)
	n.registry = registry.New(n.config.logger)
	n.staking = staking.New(n.clock, n.config.maxLockEpochs, n.config.logger)
	n.boost = staking.NewBoost()
	n.authorizer = voting.NewStaticAuthorizer().Grant(
		voting.RoleEpochManager,
		n.config.operator,
	).Grant(
		voting.RoleEpochTrigger,
		n.config.operator,
	)
	for role, accounts := range n.config.roles {
		n.authorizer.Grant(role, accounts...)
	}
	n.ledger, err = ledger.New(ledger.Config{
		PowerSource:  n.staking,
		Registry:     n.registry,
		Clock:        n.clock,
		Boost:        n.boost,
		Authorizer:   n.authorizer,
		EventBus:     n.eventBus,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
		SampleSize:   n.config.sampleSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create vote ledger: %w", err)
	}
	n.allocator, err = snapshot.NewAllocator(snapshot.AllocatorConfig{
		Ledger:       n.ledger,
		Registry:     n.registry,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to create reward allocator: %w", err)
	}
	n.wars, err = war.New(war.Config{
		PowerSource:  n.staking,
		Registry:     n.registry,
		Clock:        n.clock,
		Authorizer:   n.authorizer,
		Custodian:    n.config.custodian,
		EventBus:     n.eventBus,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to create war state machine: %w", err)
	}
	return nil
}

// restore loads the latest checkpoint of every component. Without one the
// node starts fresh at the configured epoch with the configured collections.
func (n *Node) restore() error {
	restorers := []struct {
		name    string
		restore func([]byte) error
	}{
		{ComponentRegistry, n.registry.Restore},
		{ComponentStaking, n.staking.Restore},
		{ComponentLedger, n.ledger.Restore},
		{ComponentWar, n.wars.Restore},
	}
	restored := false
	for _, r := range restorers {
		checkpointEpoch, data, err := n.db.GetLatestCheckpoint(r.name)
		if err != nil {
			if errors.Is(err, database.ErrNoCheckpoint) {
				continue
			}
			return fmt.Errorf("load %s checkpoint: %w", r.name, err)
		}
		n.clock.Set(checkpointEpoch)
		if err := r.restore(data); err != nil {
			return fmt.Errorf("restore %s: %w", r.name, err)
		}
		restored = true
	}
	if restored {
		n.config.logger.Info(
			"restored state from checkpoint",
			"component", "node",
			"epoch", n.clock.CurrentEpoch(),
		)
		return nil
	}
	for _, c := range n.config.collections {
		if err := n.registry.Approve(c); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) checkpoints() (map[string][]byte, error) {
	ret := make(map[string][]byte, 4)
	for name, fn := range map[string]func() ([]byte, error){
		ComponentRegistry: n.registry.Checkpoint,
		ComponentStaking:  n.staking.Checkpoint,
		ComponentLedger:   n.ledger.Checkpoint,
		ComponentWar:      n.wars.Checkpoint,
	} {
		data, err := fn()
		if err != nil {
			return nil, fmt.Errorf("checkpoint %s: %w", name, err)
		}
		ret[name] = data
	}
	return ret, nil
}

func (n *Node) scheduledAdvance(ctx context.Context) {
	evt, err := n.AdvanceEpoch(ctx, n.config.operator)
	if err != nil {
		n.config.logger.Error(
			"scheduled epoch advance failed",
			"component", "node",
			"error", err,
		)
		return
	}
	n.config.logger.Debug(
		"scheduled epoch advance",
		"component", "node",
		"epoch", evt.NewEpoch,
	)
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work", "component", "node")

	if n.cron != nil {
		<-n.cron.Stop().Done()
	}

	if n.apiServer != nil {
		if stopErr := n.apiServer.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Drain pending epoch transitions
	n.config.logger.Debug("shutdown phase 2: draining epoch transitions", "component", "node")

	if n.snapshotManager != nil {
		if waitErr := n.waitForPersistence(ctx); waitErr != nil {
			err = errors.Join(err, waitErr)
		}
		if stopErr := n.snapshotManager.Stop(); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("snapshot manager shutdown: %w", stopErr))
		}
	}

	// Phase 3: Flush state and close database
	n.config.logger.Debug("shutdown phase 3: flushing state", "component", "node")

	n.mu.Lock()
	if n.started {
		if flushErr := n.flush(); flushErr != nil {
			err = errors.Join(err, flushErr)
		}
	}
	n.started = false
	n.mu.Unlock()

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources", "component", "node")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}

// flush writes a checkpoint of the current state. The caller holds n.mu.
func (n *Node) flush() error {
	cps, err := n.checkpoints()
	if err != nil {
		return err
	}
	if err := n.db.SetCheckpoints(n.clock.CurrentEpoch(), cps); err != nil {
		return fmt.Errorf("save final checkpoint: %w", err)
	}
	return nil
}

// waitForPersistence blocks until the snapshot manager has handled every
// published epoch transition or ctx is done
func (n *Node) waitForPersistence(ctx context.Context) error {
	n.mu.Lock()
	want := n.transitions
	n.mu.Unlock()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, handled := n.snapshotManager.Progress(); handled >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for epoch transitions to persist: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}
