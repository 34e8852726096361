package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/core/system"
)

func TestBusObserverCountsPublishes(t *testing.T) {
	m := New("test", true)
	b := bus.New(nil)
	b.AddObserver(m)

	ping := bus.NewTopic1[int]("Test.Ping")
	_, err := ping.On(b, func(int) {})
	require.NoError(t, err)
	_, err = ping.On(b, func(int) {})
	require.NoError(t, err)

	ping.Publish(b, 1)
	ping.Publish(b, 2)
	bus.NewTopic0("Test.Empty").Publish(b)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.published.WithLabelValues("Test.Ping")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.delivered.WithLabelValues("Test.Ping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("Test.Empty")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.delivered.WithLabelValues("Test.Empty")))
}

func TestManagerObserverCountsFailures(t *testing.T) {
	m := New("test", true)

	m.OnPass(system.PhaseInitialize, 3, []system.Failure{
		{System: "farming", Phase: system.PhaseInitialize, Err: errors.New("no crops")},
	}, 0)
	m.OnPass(system.PhaseUpdate, 3, nil, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.systemFailures.WithLabelValues("initialize", "farming")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.systemFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.systems))
	assert.Equal(t, 2, testutil.CollectAndCount(m.passDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("fxdemo", true)
	m.OnPublish("Player.LevelUp")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `fxdemo_eventbus_published_total{channel="Player.LevelUp"} 1`)
}

func TestDisabledIsNoop(t *testing.T) {
	m := New("fxdemo", false)
	assert.False(t, m.Enabled())
	assert.Nil(t, m.Registry())

	m.OnPublish("x")
	m.OnDelivered("x", 1, 0)
	m.OnPass(system.PhaseStart, 1, []system.Failure{{System: "a"}}, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
