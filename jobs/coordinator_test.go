package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/postmeta/config"
	"github.com/use-agent/postmeta/models"
)

type runnerFunc func(ctx context.Context, job models.Job) *models.Payload

func (f runnerFunc) Scrape(ctx context.Context, job models.Job) *models.Payload { return f(ctx, job) }

type recordingDeliverer struct {
	mu    sync.Mutex
	calls []delivery
	err   error
}

type delivery struct {
	url     string
	payload *models.Payload
}

func (d *recordingDeliverer) Deliver(_ context.Context, url string, p *models.Payload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, delivery{url: url, payload: p})
	return d.err
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func successRunner() Runner {
	return runnerFunc(func(_ context.Context, job models.Job) *models.Payload {
		return &models.Payload{
			JobID:  job.ID,
			URL:    job.URL,
			Status: models.StatusSuccess,
			Data:   &models.Record{Caption: "hello", Images: []string{"a.jpg"}},
		}
	})
}

func newCoordinator(t *testing.T, limit int, r Runner, d Deliverer) *Coordinator {
	t.Helper()
	c := New(config.JobsConfig{MaxConcurrent: limit}, "https://hooks.example.com/default", r, d, nil)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c
}

func waitTerminal(t *testing.T, c *Coordinator, id string) models.Job {
	t.Helper()
	var job models.Job
	require.Eventually(t, func() bool {
		j, ok := c.Get(id)
		job = j
		return ok && j.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestSubmit_AcceptsAndDeliversOnce(t *testing.T) {
	release := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context, job models.Job) *models.Payload {
		<-release
		return successRunner().Scrape(ctx, job)
	})
	d := &recordingDeliverer{}
	c := newCoordinator(t, 1, runner, d)

	job, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1", CallbackURL: "https://hooks.example.com/cb"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, job.Status)
	assert.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		j, _ := c.Get(job.ID)
		return j.Status == models.StatusRunning
	}, time.Second, 5*time.Millisecond)
	close(release)

	done := waitTerminal(t, c, job.ID)
	assert.Equal(t, models.StatusSuccess, done.Status)
	assert.False(t, done.CompletedAt.IsZero())
	require.NotNil(t, done.Payload)
	assert.Equal(t, "hello", done.Payload.Data.Caption)

	require.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://hooks.example.com/cb", d.calls[0].url)
	assert.Equal(t, job.ID, d.calls[0].payload.JobID)
}

func TestSubmit_DefaultCallback(t *testing.T) {
	d := &recordingDeliverer{}
	c := newCoordinator(t, 1, successRunner(), d)

	job, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)
	waitTerminal(t, c, job.ID)

	require.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "https://hooks.example.com/default", d.calls[0].url)
}

func TestSubmit_InvalidInput(t *testing.T) {
	c := newCoordinator(t, 1, successRunner(), nil)

	for _, raw := range []string{"", "not a url", "ftp://example.com/x", "https://"} {
		_, err := c.Submit(models.ScrapeRequest{URL: raw})
		var se *models.ScrapeError
		require.ErrorAs(t, err, &se, raw)
		assert.Equal(t, models.ErrCodeInvalidInput, se.Code)
	}
	assert.Zero(t, c.Stats().Tracked)
}

func TestRun_PanicBecomesInternalError(t *testing.T) {
	d := &recordingDeliverer{}
	c := newCoordinator(t, 1, runnerFunc(func(context.Context, models.Job) *models.Payload {
		panic("boom")
	}), d)

	job, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)

	done := waitTerminal(t, c, job.ID)
	assert.Equal(t, models.StatusError, done.Status)
	require.NotNil(t, done.Payload.Error)
	assert.Equal(t, models.ErrCodeInternal, *done.Payload.Error)
	require.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRun_DeliveryFailureIsDropped(t *testing.T) {
	d := &recordingDeliverer{err: errors.New("connection refused")}
	c := newCoordinator(t, 1, successRunner(), d)

	job, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)
	done := waitTerminal(t, c, job.ID)

	assert.Equal(t, models.StatusSuccess, done.Status)
	require.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, d.count())
}

func TestRun_ConcurrencyBound(t *testing.T) {
	var active, peak atomic.Int32
	runner := runnerFunc(func(ctx context.Context, job models.Job) *models.Payload {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return successRunner().Scrape(ctx, job)
	})
	c := newCoordinator(t, 2, runner, nil)

	var ids []string
	for range 6 {
		job, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}
	for _, id := range ids {
		waitTerminal(t, c, id)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 2, c.Stats().MaxConcurrent)
}

func TestComplete_SecondTransitionIsNoop(t *testing.T) {
	d := &recordingDeliverer{}
	c := newCoordinator(t, 1, successRunner(), d)

	job, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)
	first := waitTerminal(t, c, job.ID)
	require.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)

	c.complete(job.ID, c.internalError(first, "late"), c.logger)

	again, ok := c.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusSuccess, again.Status)
	assert.Equal(t, first.CompletedAt, again.CompletedAt)
	assert.Equal(t, 1, d.count())
}

func TestGet_ReturnsSnapshot(t *testing.T) {
	c := newCoordinator(t, 1, successRunner(), nil)
	job, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)

	snap := waitTerminal(t, c, job.ID)
	snap.Status = models.StatusAccepted
	snap.Payload.Data.Images[0] = "mutated"

	again, _ := c.Get(job.ID)
	assert.Equal(t, models.StatusSuccess, again.Status)
	assert.Equal(t, "a.jpg", again.Payload.Data.Images[0])

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestEvictExpired(t *testing.T) {
	c := newCoordinator(t, 1, successRunner(), nil)
	c.retention = time.Hour

	job, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)
	done := waitTerminal(t, c, job.ID)

	assert.Zero(t, c.evictExpired(done.CompletedAt.Add(30*time.Minute)))
	assert.Equal(t, 1, c.evictExpired(done.CompletedAt.Add(2*time.Hour)))
	_, ok := c.Get(job.ID)
	assert.False(t, ok)
}

func TestShutdown_RejectsAndWaits(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	runner := runnerFunc(func(ctx context.Context, job models.Job) *models.Payload {
		<-release
		finished.Store(true)
		return successRunner().Scrape(ctx, job)
	})
	c := New(config.JobsConfig{MaxConcurrent: 1}, "", runner, nil, nil)

	_, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		close(release)
	}()
	require.NoError(t, c.Shutdown(context.Background()))
	assert.True(t, finished.Load())

	_, err = c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/2"})
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeUnavailable, se.Code)
}

func TestShutdown_DeadlineCancelsRunningJobs(t *testing.T) {
	runner := runnerFunc(func(ctx context.Context, job models.Job) *models.Payload {
		<-ctx.Done()
		code := models.ErrCodeTimeout
		return &models.Payload{JobID: job.ID, Status: models.StatusError, Error: &code}
	})
	c := New(config.JobsConfig{MaxConcurrent: 1}, "", runner, nil, nil)

	running, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)
	queued, err := c.Submit(models.ScrapeRequest{URL: "https://www.facebook.com/p/2"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Shutdown(ctx), context.DeadlineExceeded)

	for _, id := range []string{running.ID, queued.ID} {
		j, ok := c.Get(id)
		require.True(t, ok)
		assert.Equal(t, models.StatusError, j.Status)
	}
}
