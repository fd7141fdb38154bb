package hosting_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/hosting"
)

// recordingService 阻塞直到 ctx 取消，并记录停止顺序
type recordingService struct {
	name    string
	mu      *sync.Mutex
	stopped *[]string
	fail    error
}

func (s *recordingService) Start(ctx context.Context) error {
	if s.fail != nil {
		return s.fail
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *recordingService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.stopped = append(*s.stopped, s.name)
	return nil
}

func newServices(c *di.Container, fail error) *[]string {
	var mu sync.Mutex
	stopped := []string{}
	di.Bind[hosting.HostedService](c).FromInstance(&recordingService{name: "first", mu: &mu, stopped: &stopped})
	di.Bind[hosting.HostedService](c).FromInstance(&recordingService{name: "second", mu: &mu, stopped: &stopped, fail: fail})
	return &stopped
}

func TestManagerRunUntilCancelled(t *testing.T) {
	c := di.NewContainer()
	stopped := newServices(c, nil)

	m, err := hosting.NewManager(c)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Services())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Second) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Equal(t, []string{"second", "first"}, *stopped)
}

func TestManagerStopsOnServiceError(t *testing.T) {
	boom := errors.New("boom")
	c := di.NewContainer()
	stopped := newServices(c, boom)

	m, err := hosting.NewManager(c)
	require.NoError(t, err)

	err = m.Run(context.Background(), time.Second)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, *stopped, 2)
}

type ticker struct {
	*hosting.TimedHostedService
}

func TestAddHostedServiceSharesInstance(t *testing.T) {
	var runs atomic.Int64
	c := di.NewContainer()
	di.Bind[*ticker](c).FromMethod(func() *ticker {
		return &ticker{hosting.NewTimedHostedService("tick", 10*time.Millisecond, func(context.Context) error {
			runs.Add(1)
			return nil
		}, nil)}
	}).AsSingle()
	hosting.AddHostedService(c, di.TypeOf[*ticker]())

	m, err := hosting.NewManager(c)
	require.NoError(t, err)
	require.Equal(t, 1, m.Services())

	services, err := di.ResolveAll[hosting.HostedService](c)
	require.NoError(t, err)
	assert.Same(t, di.MustResolve[*ticker](c), services[0])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Second) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestTimedServiceStop(t *testing.T) {
	svc := hosting.NewTimedHostedService("idle", time.Hour, func(context.Context) error { return nil }, nil)
	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	require.NoError(t, svc.Stop(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
	assert.NoError(t, <-done)
}
