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

// Package snapshot computes per-epoch reward distributions from the vote
// ledger and persists the results of each epoch transition.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/sweepwars/database"
	"github.com/blinklabs-io/sweepwars/event"
)

// DefaultCheckpointRetention is the number of epochs of component
// checkpoints kept in the blob store
const DefaultCheckpointRetention = 8

// Manager persists the distribution, war outcome and component checkpoints
// carried by each EpochTransitionEvent.
type Manager struct {
	db        *database.Database
	eventBus  *event.EventBus
	logger    *slog.Logger
	retention uint64

	mu             sync.RWMutex
	running        bool
	stopping       bool
	cancel         context.CancelFunc
	subscriptionId event.EventSubscriberId
	loopWg         sync.WaitGroup
	lastEpoch      uint64
	handled        uint64
}

// NewManager creates a new snapshot manager. A retention of 0 uses
// DefaultCheckpointRetention.
func NewManager(
	db *database.Database,
	eventBus *event.EventBus,
	logger *slog.Logger,
	retention uint64,
) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if retention == 0 {
		retention = DefaultCheckpointRetention
	}
	return &Manager{
		db:        db,
		eventBus:  eventBus,
		logger:    logger,
		retention: retention,
	}
}

// Start begins listening for epoch transitions. Cancelling ctx stops the
// manager as Stop would.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if m.stopping {
		return errors.New(
			"snapshot manager: Stop in progress, cannot Start",
		)
	}

	if ctx == nil {
		return errors.New(
			"snapshot manager: nil context",
		)
	}
	if m.db == nil {
		return errors.New("snapshot manager: nil database")
	}
	if m.eventBus == nil {
		return errors.New("snapshot manager: nil event bus")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("snapshot manager: parent context already done: %w", err)
	}

	childCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	var evtCh <-chan event.Event
	m.subscriptionId, evtCh = m.eventBus.Subscribe(
		event.EpochTransitionEventType,
	)

	if evtCh == nil {
		m.logger.Warn(
			"event bus not available, epoch transitions will not be tracked",
			"component", "snapshot",
		)
	} else {
		m.loopWg.Add(1)
		go func() {
			defer m.loopWg.Done()
			m.epochTransitionLoop(childCtx, evtCh)
			// Parent context cancelled: unsubscribe so Start
			// can be called again
			m.mu.Lock()
			if !m.stopping {
				m.running = false
				if m.cancel != nil {
					m.cancel()
					m.cancel = nil
				}
				if m.subscriptionId != 0 {
					m.eventBus.Unsubscribe(
						event.EpochTransitionEventType,
						m.subscriptionId,
					)
					m.subscriptionId = 0
				}
			}
			m.mu.Unlock()
		}()
	}

	m.logger.Info("snapshot manager started", "component", "snapshot")
	return nil
}

// Stop stops the snapshot manager.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}

	m.stopping = true
	if m.cancel != nil {
		m.cancel()
	}
	if m.subscriptionId != 0 {
		m.eventBus.Unsubscribe(
			event.EpochTransitionEventType,
			m.subscriptionId,
		)
		m.subscriptionId = 0
	}
	m.running = false
	m.mu.Unlock()

	// The loop's cleanup path takes m.mu
	m.loopWg.Wait()

	// Clear transient state so Start can be called again.
	m.mu.Lock()
	m.stopping = false
	m.cancel = nil
	m.mu.Unlock()

	m.logger.Info(
		"snapshot manager stopped",
		"component", "snapshot",
	)
	return nil
}

// epochTransitionLoop reads epoch transition events from the channel.
// Events that queued up while the previous batch was being persisted are
// handled together, in order, so no epoch's results are dropped.
func (m *Manager) epochTransitionLoop(
	ctx context.Context,
	evtCh <-chan event.Event,
) {
	for {
		var evt event.Event
		var ok bool
		select {
		case <-ctx.Done():
			return
		case evt, ok = <-evtCh:
			if !ok {
				return
			}
		}
		batch := []event.Event{evt}
	drain:
		for {
			select {
			case <-ctx.Done():
				return
			case queued, chOk := <-evtCh:
				if !chOk {
					break drain
				}
				batch = append(batch, queued)
			default:
				break drain
			}
		}
		if len(batch) > 1 {
			m.logger.Info(
				"handling queued epoch transitions",
				"component", "snapshot",
				"count", len(batch),
			)
		}
		for _, queued := range batch {
			epochEvent, ok := queued.Data.(event.EpochTransitionEvent)
			if !ok {
				m.logger.Error(
					"invalid event data for epoch transition",
					"component", "snapshot",
				)
				continue
			}
			err := m.handleEpochTransition(ctx, epochEvent)
			if err != nil {
				m.logger.Error(
					"failed to handle epoch transition",
					"component", "snapshot",
					"epoch", epochEvent.NewEpoch,
					"error", err,
				)
			}
			// A failed transition still counts as handled
			m.mu.Lock()
			if err == nil {
				m.lastEpoch = epochEvent.NewEpoch
			}
			m.handled++
			m.mu.Unlock()
		}
	}
}

// handleEpochTransition processes an epoch boundary event.
func (m *Manager) handleEpochTransition(
	ctx context.Context,
	evt event.EpochTransitionEvent,
) error {
	m.logger.Info(
		"handling epoch transition",
		"component", "snapshot",
		"previous_epoch", evt.PreviousEpoch,
		"new_epoch", evt.NewEpoch,
	)

	// 1. Record how the war that just ended turned out
	if evt.War != nil {
		if err := m.db.SetWarOutcome(evt.War); err != nil {
			return fmt.Errorf("save war outcome: %w", err)
		}
		m.logger.Info(
			"saved war outcome",
			"component", "snapshot",
			"war", evt.War.Index,
			"has_winner", evt.War.HasWinner,
			"winner", evt.War.Winner.Hex(),
		)
	}

	// 2. Save the reward distribution of the closed epoch
	if evt.Distribution != nil {
		if err := m.db.SetDistribution(evt.Distribution); err != nil {
			return fmt.Errorf("save distribution: %w", err)
		}
		m.logger.Info(
			"saved reward distribution",
			"component", "snapshot",
			"epoch", evt.Distribution.Epoch,
			"subjects", len(evt.Distribution.Allocations),
			"budget", evt.Distribution.Budget.Dec(),
		)
	}

	// 3. Checkpoint component state as of the new epoch
	if len(evt.Checkpoints) > 0 {
		if err := m.db.SetCheckpoints(evt.NewEpoch, evt.Checkpoints); err != nil {
			return fmt.Errorf("save checkpoints: %w", err)
		}
	}

	// 4. Cleanup old checkpoints
	if err := m.cleanupOldCheckpoints(ctx, evt); err != nil {
		return fmt.Errorf("cleanup old checkpoints: %w", err)
	}

	m.logger.Info(
		"epoch transition complete",
		"component", "snapshot",
		"epoch", evt.NewEpoch,
	)

	return nil
}

func (m *Manager) cleanupOldCheckpoints(
	ctx context.Context,
	evt event.EpochTransitionEvent,
) error {
	if evt.NewEpoch < m.retention {
		return nil
	}
	keepFrom := evt.NewEpoch - m.retention + 1
	for component := range evt.Checkpoints {
		if err := ctx.Err(); err != nil {
			return err
		}
		pruned, err := m.db.PruneCheckpoints(component, keepFrom)
		if err != nil {
			return fmt.Errorf("prune %s: %w", component, err)
		}
		if pruned > 0 {
			m.logger.Debug(
				"pruned old checkpoints",
				"component", "snapshot",
				"checkpoint", component,
				"count", pruned,
				"keep_from", keepFrom,
			)
		}
	}
	return nil
}

// Running reports whether the manager is listening for transitions
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Progress returns the epoch of the last handled transition and the number
// of transitions handled since the manager was created
func (m *Manager) Progress() (uint64, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastEpoch, m.handled
}
