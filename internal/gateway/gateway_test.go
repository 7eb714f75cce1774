package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/scheduling/manager"
	"github.com/vnykmshr/taskflow/pkg/sharedstate"
	"github.com/vnykmshr/taskflow/pkg/taskservice"
)

type fixture struct {
	srv   *Server
	m     *manager.Manager
	state *sharedstate.State
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	mcfg := manager.DefaultConfig()
	mcfg.GeneralWorkers = 2
	mcfg.HeavyWorkers = 1
	mcfg.TickInterval = 5 * time.Millisecond
	mcfg.ForceGrace = 50 * time.Millisecond
	m, err := manager.New(mcfg, manager.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(time.Second) })

	scfg := sharedstate.DefaultConfig()
	scfg.QueueCapacity = 1
	scfg.OfferTimeout = 10 * time.Millisecond
	st, err := sharedstate.New(scfg)
	require.NoError(t, err)

	tcfg := taskservice.DefaultConfig()
	tcfg.LatencyDelay = 10 * time.Millisecond
	tcfg.RegionDelay = 5 * time.Millisecond
	svc, err := taskservice.New(m, st, tcfg, logger)
	require.NoError(t, err)

	if opts.Logger == nil {
		opts.Logger = logger
	}
	srv := New(svc, m, st, opts)
	srv.now = func() time.Time { return time.UnixMilli(1700000000000) }

	return &fixture{srv: srv, m: m, state: st}
}

func (f *fixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestAsyncTask(t *testing.T) {
	f := newFixture(t, Options{})

	rec, body := f.do(t, http.MethodPost, "/api/tasks/async?taskName=report")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Task submitted", body["status"])
	assert.Equal(t, "report", body["task"])

	assert.Eventually(t, func() bool { return f.state.Counter.Value() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Task report completed"}, f.state.Events.Snapshot())
}

func TestAsyncTaskMissingName(t *testing.T) {
	f := newFixture(t, Options{})

	rec, body := f.do(t, http.MethodPost, "/api/tasks/async")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "taskName")
}

func TestHeavyTask(t *testing.T) {
	f := newFixture(t, Options{})

	rec, body := f.do(t, http.MethodPost, "/api/tasks/heavy?iterations=1000")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Heavy task submitted", body["status"])
	assert.Equal(t, float64(1000), body["iterations"])
	assert.Contains(t, body, "activeThreads")

	for _, target := range []string{
		"/api/tasks/heavy",
		"/api/tasks/heavy?iterations=lots",
		"/api/tasks/heavy?iterations=-5",
	} {
		rec, _ := f.do(t, http.MethodPost, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t, Options{})
	f.state.Counter.Increment()

	rec, body := f.do(t, http.MethodGet, "/api/tasks/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["activeTasks"])
	assert.Equal(t, float64(1), body["counterValue"])
	assert.Equal(t, float64(1700000000000), body["timestamp"])
}

func TestCacheRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})

	rec, body := f.do(t, http.MethodPost, "/api/tasks/cache?key=color&value=blue")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cached", body["status"])

	rec, body = f.do(t, http.MethodGet, "/api/tasks/cache/color")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "color", body["key"])
	assert.Equal(t, "blue", body["value"])

	rec, body = f.do(t, http.MethodGet, "/api/tasks/cache/missing")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "value")
	assert.Nil(t, body["value"])

	rec, _ = f.do(t, http.MethodPost, "/api/tasks/cache?key=color")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty values are allowed
	rec, _ = f.do(t, http.MethodPost, "/api/tasks/cache?key=blank&value=")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingCache struct{}

func (failingCache) Put(context.Context, string, string) error { return errors.New("down") }
func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("down")
}

func TestCacheBackendFailure(t *testing.T) {
	f := newFixture(t, Options{Cache: failingCache{}})

	rec, _ := f.do(t, http.MethodPost, "/api/tasks/cache?key=a&value=b")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/tasks/cache/a")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestQueueAndEvents(t *testing.T) {
	f := newFixture(t, Options{})

	_, body := f.do(t, http.MethodPost, "/api/tasks/queue?item=first")
	assert.Equal(t, true, body["accepted"])

	// Capacity is one
	_, body = f.do(t, http.MethodPost, "/api/tasks/queue?item=second")
	assert.Equal(t, false, body["accepted"])

	f.state.Events.Append("hello")
	rec, body := f.do(t, http.MethodGet, "/api/tasks/events")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"hello"}, body["events"])
}

func TestRegionEndpoints(t *testing.T) {
	f := newFixture(t, Options{})

	rec, body := f.do(t, http.MethodPost, "/api/tasks/region/write?event=deployed")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Write submitted", body["status"])
	assert.Equal(t, "deployed", body["event"])

	assert.Eventually(t, func() bool { return f.state.Events.Len() == 1 }, time.Second, 5*time.Millisecond)

	rec, body = f.do(t, http.MethodPost, "/api/tasks/region/read")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Read submitted", body["status"])

	rec, _ = f.do(t, http.MethodPost, "/api/tasks/region/write")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/tasks/region/read")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPools(t *testing.T) {
	f := newFixture(t, Options{})

	rec, body := f.do(t, http.MethodGet, "/api/pools")
	assert.Equal(t, http.StatusOK, rec.Code)
	pools, ok := body["pools"].([]any)
	require.True(t, ok)
	assert.Len(t, pools, 3)
	assert.Equal(t, manager.PoolGeneral, pools[0].(map[string]any)["name"])
}

func TestSubmitAfterShutdown(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.m.Shutdown(time.Second))

	rec, _ := f.do(t, http.MethodPost, "/api/tasks/async?taskName=late")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, body := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "shutting_down", body["status"])
}

func TestHealthAndMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	reg := metrics.NewRegistry(promReg)
	reg.TasksInFlight.Set(0)

	f := newFixture(t, Options{Gatherer: promReg})

	rec, body := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = f.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskflow_tasks_in_flight")
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, Options{})

	rec, _ := f.do(t, http.MethodGet, "/api/tasks/async?taskName=x")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	for _, tc := range []struct{ method, target string }{
		{http.MethodPost, "/api/pools"},
		{http.MethodGet, "/api/tasks/queue?item=x"},
		{http.MethodDelete, "/api/tasks/cache/k"},
	} {
		rec, _ := f.do(t, tc.method, tc.target)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.target)
	}

	rec, _ = f.do(t, http.MethodGet, "/api/tasks/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
