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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	votesCast     prometheus.Counter
	votesRevoked  prometheus.Counter
	subjectsVoted prometheus.Gauge
}

func (m *ledgerMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.votesCast = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "sweepwars_votes_cast_total",
		Help: "total votes cast",
	})
	m.votesRevoked = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "sweepwars_votes_revoked_total",
		Help: "total per-subject vote revocations",
	})
	m.subjectsVoted = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "sweepwars_subjects_voted_int",
		Help: "subjects with at least one active voter",
	})
}
