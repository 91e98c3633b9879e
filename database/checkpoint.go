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

package database

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/sweepwars/database/types"
)

// ErrNoCheckpoint is returned when a component has never been checkpointed
var ErrNoCheckpoint = errors.New("no checkpoint stored")

// SetCheckpoints stores each component's checkpoint for epoch and moves
// the components' latest pointers to it, all in one transaction
func (d *Database) SetCheckpoints(epoch uint64, checkpoints map[string][]byte) error {
	txn := d.blob.NewTransaction(true)
	defer func() { _ = txn.Rollback() }()
	for component, data := range checkpoints {
		if err := d.blob.Set(txn, types.CheckpointKey(component, epoch), data); err != nil {
			return fmt.Errorf("store %s checkpoint: %w", component, err)
		}
		if err := d.blob.Set(
			txn,
			types.CheckpointLatestKey(component),
			types.CheckpointKeyUint64ToBytes(epoch),
		); err != nil {
			return fmt.Errorf("store %s checkpoint pointer: %w", component, err)
		}
	}
	return txn.Commit()
}

// GetCheckpoint returns a component's checkpoint for epoch
func (d *Database) GetCheckpoint(component string, epoch uint64) ([]byte, error) {
	txn := d.blob.NewTransaction(false)
	defer func() { _ = txn.Rollback() }()
	data, err := d.blob.Get(txn, types.CheckpointKey(component, epoch))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, ErrNoCheckpoint
		}
		return nil, err
	}
	return data, nil
}

// GetLatestCheckpoint returns the most recent checkpoint of a component and
// the epoch it was taken at
func (d *Database) GetLatestCheckpoint(component string) (uint64, []byte, error) {
	txn := d.blob.NewTransaction(false)
	defer func() { _ = txn.Rollback() }()
	ptr, err := d.blob.Get(txn, types.CheckpointLatestKey(component))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil, ErrNoCheckpoint
		}
		return 0, nil, err
	}
	if len(ptr) != 8 {
		return 0, nil, fmt.Errorf("corrupt %s checkpoint pointer", component)
	}
	epoch := binary.BigEndian.Uint64(ptr)
	data, err := d.blob.Get(txn, types.CheckpointKey(component, epoch))
	if err != nil {
		return 0, nil, fmt.Errorf("load %s checkpoint for epoch %d: %w", component, epoch, err)
	}
	return epoch, data, nil
}

// GetCheckpointEpochs lists the epochs a component has checkpoints for
func (d *Database) GetCheckpointEpochs(component string) ([]uint64, error) {
	txn := d.blob.NewTransaction(false)
	defer func() { _ = txn.Rollback() }()
	prefix := types.CheckpointPrefix(component)
	keys, err := d.blob.Keys(txn, prefix)
	if err != nil {
		return nil, err
	}
	ret := make([]uint64, 0, len(keys))
	for _, k := range keys {
		if len(k) != len(prefix)+8 {
			continue
		}
		ret = append(ret, binary.BigEndian.Uint64(k[len(prefix):]))
	}
	return ret, nil
}

// PruneCheckpoints deletes a component's checkpoints older than keepFrom
func (d *Database) PruneCheckpoints(component string, keepFrom uint64) (int, error) {
	epochs, err := d.GetCheckpointEpochs(component)
	if err != nil {
		return 0, err
	}
	txn := d.blob.NewTransaction(true)
	defer func() { _ = txn.Rollback() }()
	count := 0
	for _, e := range epochs {
		if e >= keepFrom {
			break
		}
		if err := d.blob.Delete(txn, types.CheckpointKey(component, e)); err != nil {
			return 0, err
		}
		count++
	}
	if err := txn.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}
