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

package event_test

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/sweepwars/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testEvtType event.EventType = "test.event"

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		require.FailNow(t, "timeout waiting for event")
	}
	return event.Event{}
}

func TestPublishFansOutToSubscribers(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1 := eb.Subscribe(testEvtType)
	_, sub2 := eb.Subscribe(testEvtType)
	_, other := eb.Subscribe("other.event")

	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))

	for _, ch := range []<-chan event.Event{sub1, sub2} {
		evt := receive(t, ch)
		assert.Equal(t, testEvtType, evt.Type)
		assert.Equal(t, 999, evt.Data)
		assert.False(t, evt.Timestamp.IsZero())
	}
	select {
	case <-other:
		t.Fatal("subscriber of another type received the event")
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	// unknown ids are ignored
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	select {
	case _, ok := <-subCh:
		assert.False(t, ok, "received event after Unsubscribe")
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was not closed after Unsubscribe")
	}
}

func TestPublishAsync(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	require.True(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, "async")))
	evt := receive(t, subCh)
	assert.Equal(t, "async", evt.Data)
}

func TestStopIsTerminalForAsync(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	var handled atomic.Int32
	eb.SubscribeFunc(testEvtType, func(event.Event) {
		handled.Add(1)
	})

	eb.Stop()
	eb.Stop()

	_, ok := <-subCh
	assert.False(t, ok, "subscriber channel should be closed by Stop")
	assert.False(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 1)))

	// synchronous publishing still reaches new subscribers
	_, newCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "sync"))
	assert.Equal(t, "sync", receive(t, newCh).Data)
	assert.Equal(t, int32(0), handled.Load())
	eb.Stop()
	_, ok = <-newCh
	assert.False(t, ok)
}

func TestSubscribeFuncSurvivesPanic(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()

	var received atomic.Int32
	eb.SubscribeFunc(testEvtType, func(event.Event) {
		if received.Add(1) == 1 {
			panic("handler failure")
		}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "first"))
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "second"))

	require.Eventually(t, func() bool {
		return received.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()

	subId, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	receive(t, subCh)

	count, err := testutil.GatherAndCount(reg, "sweepwars_event_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	expected := `
# HELP sweepwars_event_subscribers_int current subscribers by event type
# TYPE sweepwars_event_subscribers_int gauge
sweepwars_event_subscribers_int{type="test.event"} 1
`
	require.NoError(t, testutil.GatherAndCompare(
		reg,
		strings.NewReader(expected),
		"sweepwars_event_subscribers_int",
	))
	eb.Unsubscribe(testEvtType, subId)
}
