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

package node

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/sweepwars"
	"github.com/blinklabs-io/sweepwars/database"
	"github.com/blinklabs-io/sweepwars/database/types"
	"github.com/blinklabs-io/sweepwars/internal/config"
)

// Inspect prints the most recent reward distributions, war outcomes and
// checkpoints stored in the configured database
func Inspect(cfg *config.Config, logger *slog.Logger, out io.Writer, limit int) error {
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		BlockCacheSize: cfg.BlockCacheSize,
		IndexCacheSize: cfg.IndexCacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return inspect(db, out, limit)
}

func inspect(db *database.Database, out io.Writer, limit int) error {
	epochs, err := db.GetDistributionEpochs(limit)
	if err != nil {
		return fmt.Errorf("failed to list distributions: %w", err)
	}
	fmt.Fprintf(out, "reward distributions: %d\n", len(epochs))
	for _, epoch := range epochs {
		dist, err := db.GetDistribution(epoch)
		if err != nil {
			return fmt.Errorf("failed to load distribution %d: %w", epoch, err)
		}
		fmt.Fprintf(
			out,
			"  epoch %d: budget %s, total power %s\n",
			dist.Epoch,
			dist.Budget.Dec(),
			dist.TotalPower.Dec(),
		)
		for rank, a := range dist.Allocations {
			fmt.Fprintf(
				out,
				"    %d. %s power %s amount %s\n",
				rank+1,
				a.Subject.Hex(),
				a.Power.Dec(),
				a.Amount.Dec(),
			)
		}
	}

	outcomes, err := db.GetWarOutcomes(limit)
	if err != nil {
		return fmt.Errorf("failed to list war outcomes: %w", err)
	}
	fmt.Fprintf(out, "war outcomes: %d\n", len(outcomes))
	for _, o := range outcomes {
		winner := "none"
		if o.HasWinner {
			winner = o.Winner.Hex()
		}
		fmt.Fprintf(
			out,
			"  war %d (epoch %d): winner %s votes %s collateral locked until epoch %d\n",
			o.Index,
			o.StartEpoch,
			winner,
			o.WinnerVotes.Dec(),
			o.CollateralLockEpoch,
		)
	}

	fmt.Fprintln(out, "checkpoints:")
	for _, component := range []string{
		sweepwars.ComponentRegistry,
		sweepwars.ComponentStaking,
		sweepwars.ComponentLedger,
		sweepwars.ComponentWar,
	} {
		epochs, err := db.GetCheckpointEpochs(component)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("failed to list %s checkpoints: %w", component, err)
		}
		fmt.Fprintf(out, "  %s: %v\n", component, epochs)
	}
	return nil
}
