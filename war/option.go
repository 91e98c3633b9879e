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

package war

import (
	"fmt"

	"github.com/blinklabs-io/sweepwars/event"
	"github.com/blinklabs-io/sweepwars/voting"
	"github.com/blinklabs-io/sweepwars/wad"
	"github.com/holiman/uint256"
)

// MaxExercisePercent is the highest exercise percent an option may declare
const MaxExercisePercent = 100

// OptionPower returns the votes one unit of an option carries:
// spot + spot*(100-pct)/100, so underpriced options earn bonus power. It
// returns zero for a percent above MaxExercisePercent.
func OptionPower(spot *uint256.Int, exercisePercent uint64) *uint256.Int {
	if exercisePercent > MaxExercisePercent {
		return new(uint256.Int)
	}
	bonus := new(uint256.Int).Mul(spot, uint256.NewInt(MaxExercisePercent-exercisePercent))
	bonus.Div(bonus, uint256.NewInt(MaxExercisePercent))
	return bonus.Add(bonus, spot)
}

// CreateOption stakes the owner's tokens of collection as options in the
// running war. Every request is validated before any is applied. The
// custodian takes the collateral only after the war's books are updated;
// if it refuses, the options are withdrawn again.
func (m *Machine) CreateOption(
	owner voting.Account,
	collection voting.Subject,
	requests []OptionRequest,
) error {
	if len(requests) == 0 {
		return voting.ErrZeroAmount
	}
	for _, req := range requests {
		if req.Amount == 0 {
			return voting.ErrZeroAmount
		}
		if req.ExercisePercent > MaxExercisePercent {
			return voting.ErrInvalidExercisePercent
		}
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	ws, err := m.activeWar()
	if err != nil {
		return err
	}
	cv, ok := ws.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", voting.ErrCollectionNotInWar, collection.Hex())
	}

	staged := cv.clone()
	created := make([]*Option, 0, len(requests))
	seen := make(map[uint64]struct{}, len(requests))
	for _, req := range requests {
		key := optionKey{collection: collection, tokenID: req.TokenID}
		if _, exists := ws.options[key]; exists {
			return fmt.Errorf("%w: token %d", voting.ErrOptionExists, req.TokenID)
		}
		if _, dup := seen[req.TokenID]; dup {
			return fmt.Errorf("%w: token %d", voting.ErrOptionExists, req.TokenID)
		}
		seen[req.TokenID] = struct{}{}
		power, err := wad.Mul(
			OptionPower(staged.SpotPrice, req.ExercisePercent),
			uint256.NewInt(req.Amount),
		)
		if err != nil {
			return voting.ErrArithmeticOverflow
		}
		if _, overflow := staged.NftVotes.AddOverflow(staged.NftVotes, power); overflow {
			return voting.ErrArithmeticOverflow
		}
		created = append(created, &Option{
			Owner:           owner,
			Collection:      collection,
			TokenID:         req.TokenID,
			Amount:          req.Amount,
			Remaining:       req.Amount,
			ExercisePercent: req.ExercisePercent,
			Power:           power,
		})
	}

	// Commit
	previous := ws.collections[collection]
	ws.collections[collection] = staged
	for _, opt := range created {
		key := optionKey{collection: collection, tokenID: opt.TokenID}
		ws.options[key] = opt
		ws.optionOrder = append(ws.optionOrder, key)
	}

	if custodian := m.config.Custodian; custodian != nil {
		for i, opt := range created {
			if err := custodian.Lock(owner, collection, opt.TokenID, opt.Amount); err != nil {
				m.withdrawOptions(ws, owner, collection, previous, created, i)
				return fmt.Errorf("lock token %d: %w", opt.TokenID, err)
			}
		}
	}

	for _, opt := range created {
		m.metrics.options.Inc()
		m.logger.Debug(
			"option created",
			"war", ws.war.Index,
			"owner", owner.Hex(),
			"collection", collection.Hex(),
			"token_id", opt.TokenID,
			"amount", opt.Amount,
			"exercise_percent", opt.ExercisePercent,
			"power", opt.Power.Dec(),
		)
		m.publish(event.WarOptionEventType, event.WarOptionEvent{
			Index:           ws.war.Index,
			Owner:           owner,
			Collection:      collection,
			TokenID:         opt.TokenID,
			Amount:          opt.Amount,
			ExercisePercent: opt.ExercisePercent,
			Power:           new(uint256.Int).Set(opt.Power),
		})
	}
	return nil
}

// withdrawOptions undoes a CreateOption commit. Tokens the custodian
// already locked are released back to their owner.
func (m *Machine) withdrawOptions(
	ws *warState,
	owner voting.Account,
	collection voting.Subject,
	previous *CollectionVotes,
	created []*Option,
	locked int,
) {
	removed := make(map[optionKey]struct{}, len(created))
	for _, opt := range created {
		key := optionKey{collection: collection, tokenID: opt.TokenID}
		delete(ws.options, key)
		removed[key] = struct{}{}
	}
	order := ws.optionOrder[:0]
	for _, k := range ws.optionOrder {
		if _, ok := removed[k]; !ok {
			order = append(order, k)
		}
	}
	ws.optionOrder = order
	ws.collections[collection] = previous
	for _, opt := range created[:locked] {
		if err := m.config.Custodian.Release(owner, collection, opt.TokenID, opt.Amount); err != nil {
			m.logger.Error(
				"failed to return locked option collateral",
				"war", ws.war.Index,
				"owner", owner.Hex(),
				"collection", collection.Hex(),
				"token_id", opt.TokenID,
				"error", err,
			)
		}
	}
	m.logger.Warn(
		"custodian refused option collateral, options withdrawn",
		"war", ws.war.Index,
		"collection", collection.Hex(),
		"count", len(created),
	)
}

// UpdateSpotPrice publishes a new spot price for a collection in the
// running war. The collection's NFT votes are rescaled by the price change;
// its token votes are unaffected.
func (m *Machine) UpdateSpotPrice(
	caller voting.Account,
	collection voting.Subject,
	price *uint256.Int,
) error {
	if err := voting.Authorize(m.config.Authorizer, caller, voting.RoleTreasuryManager); err != nil {
		return err
	}
	if price == nil || price.IsZero() {
		return voting.ErrZeroSpotPrice
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	ws, err := m.activeWar()
	if err != nil {
		return err
	}
	cv, ok := ws.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", voting.ErrCollectionNotInWar, collection.Hex())
	}
	ratio, err := wad.MulDiv(price, wad.Wad(), cv.SpotPrice)
	if err != nil {
		return voting.ErrArithmeticOverflow
	}
	staged := cv.clone()
	if staged.NftVotes, err = wad.MulDiv(cv.NftVotes, ratio, wad.Wad()); err != nil {
		return voting.ErrArithmeticOverflow
	}
	staged.SpotPrice.Set(price)
	ws.collections[collection] = staged
	m.logger.Info(
		"spot price updated",
		"war", ws.war.Index,
		"collection", collection.Hex(),
		"previous_price", cv.SpotPrice.Dec(),
		"price", price.Dec(),
		"nft_votes", staged.NftVotes.Dec(),
	)
	return nil
}

// ExerciseOption buys amount of the winning collection's tokenID option on
// behalf of the treasury. It is only possible after the war ended and
// before the winner's collateral lock expires.
func (m *Machine) ExerciseOption(
	caller voting.Account,
	warIndex uint64,
	tokenID uint64,
	amount uint64,
) error {
	if err := voting.Authorize(m.config.Authorizer, caller, voting.RoleTreasuryManager); err != nil {
		return err
	}
	if amount == 0 {
		return voting.ErrZeroAmount
	}
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	ws, err := m.lookup(warIndex)
	if err != nil {
		return err
	}
	if ws.war.State != Ended {
		return voting.ErrWarNotEnded
	}
	if !ws.war.HasWinner {
		return voting.ErrNotWarWinner
	}
	winner := ws.war.Winner
	if m.currentEpoch() >= ws.collections[winner].LockEpoch {
		return voting.ErrExerciseWindowOver
	}
	opt, ok := ws.options[optionKey{collection: winner, tokenID: tokenID}]
	if !ok {
		return fmt.Errorf("%w: token %d", voting.ErrOptionNotFound, tokenID)
	}
	if amount > opt.Remaining {
		return fmt.Errorf(
			"%w: %d remaining, requested %d",
			voting.ErrInsufficientCollateral,
			opt.Remaining,
			amount,
		)
	}
	opt.Remaining -= amount

	if custodian := m.config.Custodian; custodian != nil {
		if err := custodian.Release(caller, winner, tokenID, amount); err != nil {
			opt.Remaining += amount
			return fmt.Errorf("release token %d: %w", tokenID, err)
		}
	}
	m.logger.Info(
		"option exercised",
		"war", warIndex,
		"collection", winner.Hex(),
		"token_id", tokenID,
		"amount", amount,
		"remaining", opt.Remaining,
	)
	return nil
}

// ReclaimOptions returns the owner's unexercised collateral once the
// collection's lock has expired. Reclaimed options keep their record with
// nothing remaining.
func (m *Machine) ReclaimOptions(
	owner voting.Account,
	warIndex uint64,
	collection voting.Subject,
	tokenIDs []uint64,
) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	ws, err := m.lookup(warIndex)
	if err != nil {
		return err
	}
	if ws.war.State != Ended {
		return voting.ErrWarNotEnded
	}
	cv, ok := ws.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", voting.ErrCollectionNotInWar, collection.Hex())
	}
	if m.currentEpoch() < cv.LockEpoch {
		return fmt.Errorf(
			"%w: until epoch %d",
			voting.ErrCollateralLocked,
			cv.LockEpoch,
		)
	}
	opts := make([]*Option, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		opt, ok := ws.options[optionKey{collection: collection, tokenID: id}]
		if !ok || opt.Owner != owner {
			return fmt.Errorf("%w: token %d", voting.ErrOptionNotFound, id)
		}
		opts = append(opts, opt)
	}

	// Tombstone before handing anything back
	amounts := make([]uint64, len(opts))
	for i, opt := range opts {
		amounts[i] = opt.Remaining
		opt.Remaining = 0
	}
	if custodian := m.config.Custodian; custodian != nil {
		for i, opt := range opts {
			if amounts[i] == 0 {
				continue
			}
			if err := custodian.Release(owner, collection, opt.TokenID, amounts[i]); err != nil {
				for j := i; j < len(opts); j++ {
					opts[j].Remaining = amounts[j]
				}
				return fmt.Errorf("release token %d: %w", opt.TokenID, err)
			}
		}
	}
	m.logger.Info(
		"options reclaimed",
		"war", warIndex,
		"owner", owner.Hex(),
		"collection", collection.Hex(),
		"count", len(opts),
	)
	return nil
}
