package cron_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/configure/cron"
	"github.com/gocrud/inject/di"
)

type counter struct {
	n atomic.Int64
}

// cleanupJob 以 Job 合约注册到容器
type cleanupJob struct {
	Counter *counter `di:""`
}

func (j *cleanupJob) Name() string { return "cleanup" }
func (j *cleanupJob) Spec() string { return "@every 1h" }
func (j *cleanupJob) Run(context.Context) error {
	j.Counter.n.Add(10)
	return nil
}

func TestSchedulerJobs(t *testing.T) {
	c := di.NewContainer()
	cnt := &counter{}
	di.Bind[*counter](c).FromInstance(cnt)
	di.Bind[cron.Job](c).To(di.TypeOf[*cleanupJob]()).AsSingle()

	simple := 0
	require.NoError(t, c.Install(cron.Configure(func(b *cron.Builder) {
		b.AddJob("0 2 * * *", "nightly", func() { simple++ })
		b.AddJobWithDI("*/5 * * * *", "sync", func(ctx context.Context, cnt *counter) error {
			require.NotNil(t, ctx)
			cnt.n.Add(1)
			return nil
		})
		b.AddJobWithDI("*/5 * * * *", "unresolvable", func(*cleanupJob) error { return errors.New("unreachable") })
	})))
	require.NoError(t, c.Build())

	s, err := di.Resolve[*cron.Scheduler](c)
	require.NoError(t, err)
	assert.Equal(t, []string{"cleanup", "nightly", "sync", "unresolvable"}, s.Jobs())

	ctx := context.Background()
	require.NoError(t, s.Trigger(ctx, "nightly"))
	require.NoError(t, s.Trigger(ctx, "sync"))
	require.NoError(t, s.Trigger(ctx, "cleanup"))
	assert.Equal(t, 1, simple)
	assert.Equal(t, int64(11), cnt.n.Load())

	// 依赖无法解析时返回错误
	err = s.Trigger(ctx, "unresolvable")
	assert.ErrorIs(t, err, di.ErrResolution)
	assert.Error(t, s.Trigger(ctx, "missing"))

	assert.True(t, s.Remove("nightly"))
	assert.False(t, s.Remove("nightly"))
	require.NoError(t, c.Dispose())
}

func TestSchedulerRunsWithSeconds(t *testing.T) {
	cnt := &counter{}
	c := di.NewContainer()
	di.Bind[*counter](c).FromInstance(cnt)
	require.NoError(t, c.Install(cron.Configure(func(b *cron.Builder) {
		b.WithSeconds().AutoStart()
		b.AddJobWithDI("* * * * * *", "tick", func(cnt *counter) { cnt.n.Add(1) })
	})))
	// AutoStart 的调度器在 Build 时创建并启动
	require.NoError(t, c.Build())

	assert.Eventually(t, func() bool { return cnt.n.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	s := di.MustResolve[*cron.Scheduler](c)
	next, ok := s.Next("tick")
	assert.True(t, ok)
	assert.False(t, next.IsZero())

	require.NoError(t, c.Dispose())
	stopped := cnt.n.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, stopped, cnt.n.Load())
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.Install(cron.Configure(nil)))
	s := di.MustResolve[*cron.Scheduler](c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestCronBuilderErrors(t *testing.T) {
	err := di.NewContainer().Install(cron.Configure(func(b *cron.Builder) {
		b.WithLocation("Mars/Olympus")
		b.AddJobWithDI("* * * * *", "not-func", 42)
		b.AddJobWithDI("* * * * *", "bad-result", func() int { return 0 })
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid location")
	assert.Contains(t, err.Error(), "handler must be a function")
	assert.Contains(t, err.Error(), "may only return error")
}

func TestCronInvalidSpec(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.Install(cron.Configure(func(b *cron.Builder) {
		b.AddJob("not a spec", "bad", func() {})
	})))

	_, err := di.Resolve[*cron.Scheduler](c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add cron job 'bad'")
}

func TestCronFromConfig(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"cron": map[string]any{"enableSeconds": true, "location": "Local", "stopTimeout": "1s"},
	}).Build()
	require.NoError(t, err)

	b, err := cron.FromConfig(cfg, "cron")
	require.NoError(t, err)
	b.AddJob("30 * * * * *", "half-minute", func() {})

	c := di.NewContainer()
	require.NoError(t, c.Install(b))
	s := di.MustResolve[*cron.Scheduler](c)
	assert.Equal(t, []string{"half-minute"}, s.Jobs())
	require.NoError(t, c.Dispose())
}
