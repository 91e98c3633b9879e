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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type allocatorMetrics struct {
	snapshots prometheus.Counter
	subjects  prometheus.Gauge
}

func (m *allocatorMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.snapshots = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "sweepwars_snapshots_total",
		Help: "total reward snapshots computed",
	})
	m.subjects = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "sweepwars_snapshot_subjects_int",
		Help: "subjects rewarded by the latest snapshot",
	})
}
