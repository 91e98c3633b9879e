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

// Package registry keeps the set of collections that may receive votes
package registry

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/sweepwars/voting"
)

var ErrBaseAssetSubject = errors.New("the base asset subject cannot be registered")

type entry struct {
	subject  voting.Subject
	approved bool
}

// Registry is a CollectionRegistry. Unapproved collections keep their
// position and can be approved again.
type Registry struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	index   map[voting.Subject]int
	entries []entry
}

func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Registry{
		logger: logger.With("component", "registry"),
		index:  make(map[voting.Subject]int),
	}
}

// Approve makes subject eligible for votes
func (r *Registry) Approve(subject voting.Subject) error {
	if voting.IsBaseAsset(subject) {
		return ErrBaseAssetSubject
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index[subject]; ok {
		r.entries[idx].approved = true
	} else {
		r.index[subject] = len(r.entries)
		r.entries = append(r.entries, entry{subject: subject, approved: true})
	}
	r.logger.Info("collection approved", "subject", subject.Hex())
	return nil
}

// Unapprove stops subject from receiving new votes. Existing votes stay.
func (r *Registry) Unapprove(subject voting.Subject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.index[subject]
	if !ok || !r.entries[idx].approved {
		return
	}
	r.entries[idx].approved = false
	r.logger.Info("collection unapproved", "subject", subject.Hex())
}

func (r *Registry) IsApproved(subject voting.Subject) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[subject]
	return ok && r.entries[idx].approved
}

// ApprovedSubjects returns approved collections in registration order
func (r *Registry) ApprovedSubjects() []voting.Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]voting.Subject, 0, len(r.entries))
	for _, e := range r.entries {
		if e.approved {
			ret = append(ret, e.subject)
		}
	}
	return ret
}

// Known returns every collection ever registered, approved or not
func (r *Registry) Known() []voting.Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]voting.Subject, len(r.entries))
	for i, e := range r.entries {
		ret[i] = e.subject
	}
	return ret
}
