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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type warMetrics struct {
	currentIndex prometheus.Gauge
	warsEnded    prometheus.Counter
	votes        prometheus.Counter
	options      prometheus.Counter
}

func (m *warMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.currentIndex = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "sweepwars_war_current_index_int",
		Help: "index of the running war, 0 when none is running",
	})
	m.warsEnded = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "sweepwars_wars_ended_total",
		Help: "total wars ended",
	})
	m.votes = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "sweepwars_war_votes_total",
		Help: "total token votes cast in wars",
	})
	m.options = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "sweepwars_war_options_total",
		Help: "total NFT options created",
	})
}
