// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/addon-container/pkg/addon"
	apperrors "github.com/NVIDIA/addon-container/pkg/errors"
	"github.com/NVIDIA/addon-container/pkg/loader"
	"github.com/NVIDIA/addon-container/pkg/repository"
)

const (
	waitFor = 2 * time.Second
	pollFor = 5 * time.Millisecond
)

// startTracker records how many modules are inside Start at once.
type startTracker struct {
	cur atomic.Int32
	max atomic.Int32
}

func (t *startTracker) enter() {
	n := t.cur.Add(1)
	for {
		m := t.max.Load()
		if n <= m || t.max.CompareAndSwap(m, n) {
			return
		}
	}
}

func (t *startTracker) leave() {
	t.cur.Add(-1)
}

type testModule struct {
	gate      chan struct{}
	tracker   *startTracker
	startErr  error
	runErr    error
	returnNow bool
	panics    bool

	runs      atomic.Int32
	cancelled atomic.Int32
	closed    atomic.Int32
}

func (m *testModule) Start(ctx context.Context) error {
	if m.tracker != nil {
		m.tracker.enter()
		defer m.tracker.leave()
	}
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.startErr
}

func (m *testModule) Run(ctx context.Context) error {
	m.runs.Add(1)
	if m.panics {
		panic("boom")
	}
	if m.returnNow {
		return m.runErr
	}
	<-ctx.Done()
	m.cancelled.Add(1)
	return nil
}

func (m *testModule) Close() error {
	m.closed.Add(1)
	return nil
}

type testLoader struct {
	mu       sync.Mutex
	build    func(id addon.ID) *testModule
	fail     map[string]error
	loads    map[addon.ID]int
	modules  map[addon.ID][]*testModule
	overlaps int
}

func newTestLoader(build func(id addon.ID) *testModule) *testLoader {
	return &testLoader{
		build:   build,
		fail:    make(map[string]error),
		loads:   make(map[addon.ID]int),
		modules: make(map[addon.ID][]*testModule),
	}
}

func (l *testLoader) Load(_ context.Context, id addon.ID) (loader.Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loads[id]++
	if err, ok := l.fail[id.Name]; ok {
		return nil, err
	}
	if prev := l.modules[id]; len(prev) > 0 && prev[len(prev)-1].closed.Load() == 0 {
		l.overlaps++
	}
	m := &testModule{}
	if l.build != nil {
		m = l.build(id)
	}
	l.modules[id] = append(l.modules[id], m)
	return m, nil
}

func (l *testLoader) module(id addon.ID) *testModule {
	l.mu.Lock()
	defer l.mu.Unlock()
	ms := l.modules[id]
	if len(ms) == 0 {
		return nil
	}
	return ms[len(ms)-1]
}

func (l *testLoader) loadCount(id addon.ID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[id]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContainer(t *testing.T, repo repository.Repository, l loader.Loader, mutate func(*Config)) *Container {
	t.Helper()
	cfg := NewConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.BatchSize = 4
	cfg.ShutdownTimeout = 5 * time.Second
	if mutate != nil {
		mutate(cfg)
	}
	c, err := New(cfg, WithRepository(repo), WithLoader(l), WithLogger(discardLogger()))
	require.NoError(t, err)
	return c
}

// tickDriven registers cleanup for tests that call tick directly.
func tickDriven(t *testing.T, c *Container) {
	t.Helper()
	t.Cleanup(c.stopAll)
}

func statusOf(c *Container, id addon.ID) addon.Status {
	a, ok := c.Registry().Get(id)
	if !ok {
		return ""
	}
	return a.Status()
}

func eventuallyStatus(t *testing.T, c *Container, id addon.ID, want addon.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return statusOf(c, id) == want
	}, waitFor, pollFor, "%s never reached %s (is %s)", id.Coordinates(), want, statusOf(c, id))
}

var (
	x = addon.NewID("x", "1.0.0")
	y = addon.NewID("y", "1.0.0")
	z = addon.NewID("z", "1.0.0")
)

func TestContainer_SingleAddonStartedAfterOneTick(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(x)
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))

	eventuallyStatus(t, c, x, addon.StatusStarted)
	assert.Len(t, c.workers, 1)
	require.Eventually(t, func() bool { return l.module(x).runs.Load() == 1 }, waitFor, pollFor)
	assert.Equal(t, 0, c.batch.InFlight())
}

func TestContainer_DisableStopsAddon(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(x)
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))
	eventuallyStatus(t, c, x, addon.StatusStarted)

	entry, _ := c.Registry().Get(x)
	w := c.workers[x]
	require.NotNil(t, w)

	require.NoError(t, repo.Disable(x))
	require.NoError(t, c.tick(context.Background()))

	assert.False(t, c.Registry().IsRegistered(x), "stopped addon is deregistered")
	assert.Contains(t, []addon.Status{addon.StatusStopping, addon.StatusStopped}, entry.Status())
	assert.False(t, entry.HasModule())
	assert.NotContains(t, c.workers, x)
	assert.Equal(t, int32(1), w.signals.Load())

	m := l.module(x)
	require.Eventually(t, func() bool { return m.closed.Load() == 1 }, waitFor, pollFor)
	assert.Equal(t, int32(1), m.cancelled.Load())
	assert.Equal(t, addon.StatusStopped, entry.Status())

	require.NoError(t, c.tick(context.Background()))
	assert.Empty(t, c.draining)

	c.stopAll()
	assert.Equal(t, int32(1), w.signals.Load(), "shutdown is signalled exactly once")
}

func TestContainer_ReenableLoadsFreshModule(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(x)
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))
	eventuallyStatus(t, c, x, addon.StatusStarted)

	require.NoError(t, repo.Disable(x))
	require.NoError(t, c.tick(context.Background()))
	require.NoError(t, repo.Enable(x))

	// the first ticks may defer x until the old worker has drained
	deadline := time.Now().Add(waitFor)
	for statusOf(c, x) != addon.StatusStarted {
		require.True(t, time.Now().Before(deadline), "x was not restarted (status %s)", statusOf(c, x))
		require.NoError(t, c.tick(context.Background()))
		time.Sleep(pollFor)
	}

	assert.Equal(t, 2, l.loadCount(x))
	assert.Zero(t, l.overlaps, "a new module was loaded before the old one was closed")
}

func TestContainer_BatchCap(t *testing.T) {
	gate := make(chan struct{})
	tracker := &startTracker{}
	l := newTestLoader(func(addon.ID) *testModule {
		return &testModule{gate: gate, tracker: tracker}
	})

	repo := repository.NewMemory("")
	ids := []addon.ID{
		addon.NewID("a", "1"), addon.NewID("b", "1"), addon.NewID("c", "1"),
		addon.NewID("d", "1"), addon.NewID("e", "1"), addon.NewID("f", "1"),
	}
	for _, id := range ids {
		repo.Install(id)
	}

	c := newTestContainer(t, repo, l, func(cfg *Config) { cfg.BatchSize = 2 })
	tickDriven(t, c)

	tickDone := make(chan error, 1)
	go func() { tickDone <- c.tick(context.Background()) }()

	require.Eventually(t, func() bool { return tracker.cur.Load() == 2 }, waitFor, pollFor)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), tracker.cur.Load(), "start phase must wait for a free slot")

	starting := 0
	for _, id := range ids {
		if statusOf(c, id) == addon.StatusStarting {
			starting++
		}
	}
	assert.LessOrEqual(t, starting, 2)

	close(gate)
	select {
	case err := <-tickDone:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("tick did not finish after starts were released")
	}

	for _, id := range ids {
		eventuallyStatus(t, c, id, addon.StatusStarted)
	}
	assert.Equal(t, int32(2), tracker.max.Load())
	require.Eventually(t, func() bool { return c.batch.InFlight() == 0 }, waitFor, pollFor)
}

func TestContainer_WaitlistScenario(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(y, addon.Required(z))
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))

	assert.Equal(t, addon.StatusFailed, statusOf(c, y))
	assert.Equal(t, []addon.ID{z}, c.Registry().MutableWaitlist().Missing(y))
	assert.Equal(t, addon.StatusStopped, statusOf(c, z), "stub survives collection while y waits on it")

	// y disabled: nothing live references the stub any more
	require.NoError(t, repo.Disable(y))
	require.NoError(t, c.tick(context.Background()))
	assert.False(t, c.Registry().IsRegistered(y))
	assert.False(t, c.Registry().IsRegistered(z))
	assert.Zero(t, c.Registry().MutableWaitlist().Len())
}

func TestContainer_Convergence(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(y, addon.Required(z))
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))
	require.True(t, c.Registry().IsWaiting(y))

	repo.Install(z)
	require.NoError(t, c.tick(context.Background()))
	assert.False(t, c.Registry().IsWaiting(y), "y leaves the waitlist on the tick z appears")
	eventuallyStatus(t, c, z, addon.StatusStarted)

	require.NoError(t, c.tick(context.Background()))
	eventuallyStatus(t, c, y, addon.StatusStarted)
}

func TestContainer_RunningAddonStopsWhenDependencyDisabled(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(z)
	repo.Install(y, addon.Required(z))
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))
	eventuallyStatus(t, c, z, addon.StatusStarted)
	eventuallyStatus(t, c, y, addon.StatusStarted)
	w, zw := c.workers[y], c.workers[z]
	require.NotNil(t, w)
	require.NotNil(t, zw)

	require.NoError(t, repo.Disable(z))
	require.NoError(t, c.tick(context.Background()))

	assert.Equal(t, int32(1), w.signals.Load())
	assert.NotContains(t, c.workers, y)
	assert.Equal(t, []addon.ID{z}, c.Registry().MutableWaitlist().Missing(y))
	select {
	case <-w.Done():
	case <-time.After(waitFor):
		t.Fatal("worker for y did not exit")
	}
	assert.Equal(t, addon.StatusFailed, statusOf(c, y))
	assert.Equal(t, int32(1), l.module(y).cancelled.Load())

	for i := 0; i < 3; i++ {
		require.NoError(t, c.tick(context.Background()))
		assert.Equal(t, addon.StatusFailed, statusOf(c, y))
		assert.True(t, c.Registry().IsWaiting(y))
	}
	assert.Equal(t, 1, l.loadCount(y))
	select {
	case <-zw.Done():
	case <-time.After(waitFor):
		t.Fatal("worker for z did not exit")
	}

	// z back: y is loaded again with a fresh module
	require.NoError(t, repo.Enable(z))
	require.NoError(t, c.tick(context.Background()))
	eventuallyStatus(t, c, y, addon.StatusStarted)
	assert.False(t, c.Registry().IsWaiting(y))
	assert.Equal(t, 2, l.loadCount(y))
	assert.Zero(t, l.overlaps)
}

func TestContainer_WaitingAddonStartsWhenDependencyDropped(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(y, addon.Required(z))
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))
	require.True(t, c.Registry().IsWaiting(y))

	repo.SetDependencies(y)
	require.NoError(t, c.tick(context.Background()))

	eventuallyStatus(t, c, y, addon.StatusStarted)
	assert.False(t, c.Registry().IsWaiting(y))
}

func TestContainer_MutualDependencyKeepsTicking(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(x, addon.Required(y))
	repo.Install(y, addon.Required(x))
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)

	errCh := c.StartAsync(context.Background())
	require.Eventually(t, c.Ready, waitFor, pollFor)
	time.Sleep(50 * time.Millisecond)

	assert.True(t, c.Alive())
	assert.Equal(t, addon.StatusFailed, statusOf(c, x))
	assert.Equal(t, addon.StatusFailed, statusOf(c, y))
	assert.True(t, c.Registry().IsWaiting(x))
	assert.True(t, c.Registry().IsWaiting(y))

	c.Stop()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("container did not stop")
	}
	assert.Zero(t, l.loadCount(x))
	assert.Zero(t, l.loadCount(y))
}

func TestContainer_PanicIsIsolated(t *testing.T) {
	bad := addon.NewID("bad", "1.0.0")
	l := newTestLoader(func(id addon.ID) *testModule {
		return &testModule{panics: id.Name == "bad"}
	})
	repo := repository.NewMemory("")
	repo.Install(bad)
	repo.Install(x)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))

	eventuallyStatus(t, c, bad, addon.StatusFailed)
	eventuallyStatus(t, c, x, addon.StatusStarted)

	entry, _ := c.Registry().Get(bad)
	assert.True(t, entry.Parked())
	assert.True(t, apperrors.HasCode(entry.Err(), apperrors.ErrCodeRuntimeFailure))
	require.Eventually(t, func() bool { return l.module(bad).closed.Load() == 1 }, waitFor, pollFor)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.tick(context.Background()))
	}
	assert.Equal(t, 1, l.loadCount(bad), "failed addon is not restarted")
	assert.Equal(t, addon.StatusStarted, statusOf(c, x))
}

func TestContainer_StartFailure(t *testing.T) {
	l := newTestLoader(func(addon.ID) *testModule {
		return &testModule{startErr: errors.New("port in use")}
	})
	repo := repository.NewMemory("")
	repo.Install(x)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))

	eventuallyStatus(t, c, x, addon.StatusFailed)
	require.Eventually(t, func() bool { return c.batch.InFlight() == 0 }, waitFor, pollFor)
	assert.Zero(t, l.module(x).runs.Load())
}

func TestContainer_CompletedAddonNotRestarted(t *testing.T) {
	l := newTestLoader(func(addon.ID) *testModule {
		return &testModule{returnNow: true}
	})
	repo := repository.NewMemory("")
	repo.Install(x)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))
	w := c.workers[x]
	require.NotNil(t, w)
	select {
	case <-w.Done():
	case <-time.After(waitFor):
		t.Fatal("worker did not exit")
	}
	assert.Equal(t, addon.StatusStopped, statusOf(c, x))
	assert.Equal(t, int32(1), l.module(x).closed.Load())

	for i := 0; i < 3; i++ {
		require.NoError(t, c.tick(context.Background()))
	}
	assert.Equal(t, 1, l.loadCount(x))

	// disabling clears the entry; enabling again runs it once more
	require.NoError(t, repo.Disable(x))
	require.NoError(t, c.tick(context.Background()))
	assert.False(t, c.Registry().IsRegistered(x))

	require.NoError(t, repo.Enable(x))
	require.NoError(t, c.tick(context.Background()))
	assert.Equal(t, 2, l.loadCount(x))
}

func TestContainer_LoadFailureNotRetried(t *testing.T) {
	l := newTestLoader(nil)
	l.fail["x"] = errors.New("corrupt module")
	repo := repository.NewMemory("")
	repo.Install(x)
	c := newTestContainer(t, repo, l, nil)
	tickDriven(t, c)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.tick(context.Background()))
	}

	assert.Equal(t, 1, l.loadCount(x))
	assert.Equal(t, addon.StatusFailed, statusOf(c, x))
	assert.Empty(t, c.workers)
}

func TestContainer_NonServerMode(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(x)
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, func(cfg *Config) { cfg.ServerMode = false })

	errCh := c.StartAsync(context.Background())
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(waitFor):
		c.Stop()
		t.Fatal("Start did not return in non-server mode")
	}

	m := l.module(x)
	require.NotNil(t, m)
	assert.Equal(t, int32(1), m.runs.Load())
	assert.Equal(t, int32(1), m.cancelled.Load())
	assert.Equal(t, int32(1), m.closed.Load())
	assert.Equal(t, addon.StatusStopped, statusOf(c, x))
	assert.False(t, c.Alive())
}

func TestContainer_ContextCancelStopsWorkers(t *testing.T) {
	repo := repository.NewMemory("")
	repo.Install(x)
	repo.Install(y)
	l := newTestLoader(nil)
	c := newTestContainer(t, repo, l, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := c.StartAsync(ctx)
	eventuallyStatus(t, c, x, addon.StatusStarted)
	eventuallyStatus(t, c, y, addon.StatusStarted)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("container did not stop")
	}
	<-c.Done()

	for _, id := range []addon.ID{x, y} {
		m := l.module(id)
		assert.Equal(t, int32(1), m.cancelled.Load(), id.Coordinates())
		assert.Equal(t, int32(1), m.closed.Load(), id.Coordinates())
		assert.Equal(t, addon.StatusStopped, statusOf(c, id))
	}
}

func TestContainer_StartTwice(t *testing.T) {
	c := newTestContainer(t, repository.NewMemory(""), newTestLoader(nil), nil)

	errCh := c.StartAsync(context.Background())
	require.Eventually(t, c.Alive, waitFor, pollFor)

	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)

	c.Stop()
	require.NoError(t, <-errCh)
}

type panickingRepo struct {
	*repository.Memory
}

func (panickingRepo) ListEnabled() ([]addon.ID, error) {
	panic("repository corrupted")
}

func TestContainer_SchedulerFatal(t *testing.T) {
	c := newTestContainer(t, panickingRepo{repository.NewMemory("1.0")}, newTestLoader(nil), nil)

	err := c.Start(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSchedulerFatal))
	assert.False(t, c.Alive())
}

type failingRepo struct {
	*repository.Memory
	fail atomic.Bool
}

func (r *failingRepo) ListEnabled() ([]addon.ID, error) {
	if r.fail.Load() {
		return nil, errors.New("manifest unreadable")
	}
	return r.Memory.ListEnabled()
}

func TestContainer_RepositoryErrorIsTransient(t *testing.T) {
	repo := &failingRepo{Memory: repository.NewMemory("")}
	repo.Install(x)
	c := newTestContainer(t, repo, newTestLoader(nil), nil)
	tickDriven(t, c)

	require.NoError(t, c.tick(context.Background()))
	eventuallyStatus(t, c, x, addon.StatusStarted)

	repo.fail.Store(true)
	require.NoError(t, c.tick(context.Background()))
	assert.Equal(t, addon.StatusStarted, statusOf(c, x), "running addons are kept when the repository cannot be read")
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestContainer_IncompatibleLoggedOnChange(t *testing.T) {
	repo := repository.NewMemory("2.0.0")
	old := addon.NewID("old", "1.0.0").WithAPIVersion("1.0.0")
	repo.Install(old)
	repo.Install(x)

	var logs syncBuffer
	cfg := NewConfig()
	cfg.PollInterval = 10 * time.Millisecond
	c, err := New(cfg,
		WithRepository(repo),
		WithLoader(newTestLoader(nil)),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))
	require.NoError(t, err)
	tickDriven(t, c)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.tick(context.Background()))
	}
	assert.Equal(t, 1, strings.Count(logs.String(), "skipping incompatible addon"))
	assert.False(t, c.Registry().IsRegistered(old))

	repo.SetRuntimeAPIVersion("1.2.0")
	require.NoError(t, c.tick(context.Background()))
	eventuallyStatus(t, c, old, addon.StatusStarted)
}

func TestContainer_Version(t *testing.T) {
	repo := repository.NewMemory("2.1.0")

	c := newTestContainer(t, repo, newTestLoader(nil), nil)
	assert.Equal(t, "2.1.0", c.Version())
	assert.Same(t, repo, c.Repository())
	assert.NotEmpty(t, c.ID())

	c = newTestContainer(t, repo, newTestLoader(nil), func(cfg *Config) { cfg.RuntimeAPIVersion = "3.0" })
	assert.Equal(t, "3.0", c.Version())
}

func TestNew_Repository(t *testing.T) {
	cfg := NewConfig()
	cfg.RepositoryDir = ""
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))

	cfg.RepositoryDir = t.TempDir()
	cfg.RuntimeAPIVersion = "1.4"
	c, err := New(cfg, WithLogger(discardLogger()))
	require.NoError(t, err)

	dir, ok := c.Repository().(*repository.Directory)
	require.True(t, ok)
	assert.Equal(t, cfg.RepositoryDir, dir.Root())
	assert.Equal(t, "1.4", dir.RuntimeAPIVersion())
	assert.IsType(t, loader.Chain{}, c.loader)
}
