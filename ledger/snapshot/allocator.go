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

package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/sweepwars/ledger/topk"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/blinklabs-io/sweepwars/ledger/snapshot"

// VoteReader is the read-only view of the vote ledger used to rank subjects
type VoteReader interface {
	topk.PowerReader
	SampleSize() int
}

type AllocatorConfig struct {
	Ledger       VoteReader
	Registry     voting.CollectionRegistry
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Allocator splits a reward budget across the most-voted subjects of an
// epoch. It never mutates the ledger.
type Allocator struct {
	ledger   VoteReader
	registry voting.CollectionRegistry
	logger   *slog.Logger
	metrics  allocatorMetrics
}

func NewAllocator(cfg AllocatorConfig) (*Allocator, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("snapshot: vote ledger is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("snapshot: collection registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	a := &Allocator{
		ledger:   cfg.Ledger,
		registry: cfg.Registry,
		logger:   cfg.Logger.With("component", "snapshot"),
	}
	a.metrics.init(cfg.PromRegistry)
	return a, nil
}

// Candidates returns every subject eligible for rewards: the approved
// collections followed by the base asset
func (a *Allocator) Candidates() []voting.Subject {
	approved := a.registry.ApprovedSubjects()
	ret := make([]voting.Subject, 0, len(approved)+1)
	for _, s := range approved {
		if voting.IsBaseAsset(s) {
			continue
		}
		ret = append(ret, s)
	}
	return append(ret, voting.BaseAssetSubject)
}

// Snapshot ranks the candidates by vote power at epoch and splits budget
// across the top SampleSize of them. Every subject but the last receives
// floor(budget * pct / 100e18) where pct = floor(power * 100e18 / total);
// the last receives whatever is left, so the amounts always sum to budget.
// With no positively voted subject the distribution is empty.
func (a *Allocator) Snapshot(
	ctx context.Context,
	budget *uint256.Int,
	epoch uint64,
) (*voting.Distribution, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "snapshot")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("epoch", int64(epoch)), //nolint:gosec
		attribute.String("budget", budget.Dec()),
	)

	dist, err := a.snapshot(budget, epoch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("subjects", len(dist.Allocations)))
	a.metrics.snapshots.Inc()
	a.metrics.subjects.Set(float64(len(dist.Allocations)))
	a.logger.Debug(
		"reward snapshot computed",
		"epoch", epoch,
		"budget", budget.Dec(),
		"total_power", dist.TotalPower.Dec(),
		"subjects", len(dist.Allocations),
	)
	return dist, nil
}

func (a *Allocator) snapshot(
	budget *uint256.Int,
	epoch uint64,
) (*voting.Distribution, error) {
	if budget == nil {
		budget = new(uint256.Int)
	}
	entries, err := topk.SelectTop(
		a.ledger,
		a.Candidates(),
		epoch,
		a.ledger.SampleSize(),
	)
	if err != nil {
		return nil, err
	}
	dist := &voting.Distribution{
		Epoch:      epoch,
		Budget:     new(uint256.Int).Set(budget),
		TotalPower: new(uint256.Int),
	}
	if len(entries) == 0 {
		return dist, nil
	}
	for _, e := range entries {
		if dist.TotalPower, err = wad.Add(dist.TotalPower, e.Power); err != nil {
			return nil, voting.ErrArithmeticOverflow
		}
	}
	scale := new(uint256.Int).Mul(uint256.NewInt(100), wad.Wad())
	remaining := new(uint256.Int).Set(budget)
	dist.Allocations = make([]voting.Allocation, len(entries))
	for i, e := range entries {
		amount := remaining
		if i < len(entries)-1 {
			pct, err := wad.MulDiv(e.Power, scale, dist.TotalPower)
			if err != nil {
				return nil, voting.ErrArithmeticOverflow
			}
			if amount, err = wad.MulDiv(budget, pct, scale); err != nil {
				return nil, voting.ErrArithmeticOverflow
			}
			remaining = new(uint256.Int).Sub(remaining, amount)
		}
		dist.Allocations[i] = voting.Allocation{
			Subject: e.Subject,
			Power:   e.Power,
			Amount:  amount,
		}
	}
	return dist, nil
}
