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

package types

import (
	"encoding/binary"
	"slices"
)

const (
	CheckpointKeyPrefix       = "cp_"
	CheckpointLatestKeySuffix = "_latest"
)

func CheckpointKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// CheckpointPrefix returns the key prefix shared by every checkpoint of a
// component. Keys under it sort by epoch.
func CheckpointPrefix(component string) []byte {
	return slices.Concat([]byte(CheckpointKeyPrefix), []byte(component), []byte{'/'})
}

// CheckpointKey returns the key of a component's checkpoint for epoch
func CheckpointKey(component string, epoch uint64) []byte {
	return slices.Concat(CheckpointPrefix(component), CheckpointKeyUint64ToBytes(epoch))
}

// CheckpointLatestKey returns the key that points at the epoch of a
// component's most recent checkpoint
func CheckpointLatestKey(component string) []byte {
	return slices.Concat(
		[]byte(CheckpointKeyPrefix),
		[]byte(component),
		[]byte(CheckpointLatestKeySuffix),
	)
}
