// Package jobs owns the job registry and lifecycle: acceptance, bounded
// concurrent execution, terminal transition and callback delivery.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/use-agent/postmeta/config"
	"github.com/use-agent/postmeta/models"
)

// Runner executes one job and returns its terminal payload.
type Runner interface {
	Scrape(ctx context.Context, job models.Job) *models.Payload
}

// Deliverer sends a terminal payload to a callback URL.
type Deliverer interface {
	Deliver(ctx context.Context, url string, p *models.Payload) error
}

// Coordinator runs accepted jobs in the background. It is safe for
// concurrent use.
type Coordinator struct {
	runner          Runner
	deliverer       Deliverer
	defaultCallback string
	retention       time.Duration
	maxConcurrent   int
	logger          *slog.Logger

	sem     *semaphore.Weighted
	running atomic.Int32
	queued  atomic.Int32

	mu     sync.RWMutex
	jobs   map[string]models.Job
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// New creates a Coordinator and starts its retention janitor.
func New(cfg config.JobsConfig, defaultCallback string, runner Runner, deliverer Deliverer, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	maxConcurrent := max(cfg.MaxConcurrent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		runner:          runner,
		deliverer:       deliverer,
		defaultCallback: defaultCallback,
		retention:       cfg.Retention,
		maxConcurrent:   maxConcurrent,
		logger:          logger,
		sem:             semaphore.NewWeighted(int64(maxConcurrent)),
		jobs:            make(map[string]models.Job),
		ctx:             ctx,
		cancel:          cancel,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	if c.retention > 0 {
		go c.janitor()
	}
	return c
}

// Submit validates req, registers the job as accepted and starts it in the
// background. It never blocks on execution.
func (c *Coordinator) Submit(req models.ScrapeRequest) (models.Job, error) {
	if err := validateURL(req.URL); err != nil {
		return models.Job{}, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err)
	}
	if req.CallbackURL != "" {
		if err := validateURL(req.CallbackURL); err != nil {
			return models.Job{}, models.NewScrapeError(models.ErrCodeInvalidInput, "callback_url: "+err.Error(), err)
		}
	}
	req.Defaults()

	job := models.Job{
		ID:          c.newID(),
		URL:         req.URL,
		CallbackURL: req.CallbackURL,
		Debug:       req.DebugOptions(),
		Status:      models.StatusAccepted,
		CreatedAt:   c.now().UTC(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.Job{}, models.NewScrapeError(models.ErrCodeUnavailable, "server is shutting down", nil)
	}
	c.jobs[job.ID] = job
	c.wg.Add(1)
	c.mu.Unlock()

	c.queued.Add(1)
	go c.run(job)

	c.logger.Info("job accepted", "job_id", job.ID, "url", job.URL)
	return job.Snapshot(), nil
}

// Get returns a snapshot of the job.
func (c *Coordinator) Get(id string) (models.Job, bool) {
	c.mu.RLock()
	job, ok := c.jobs[id]
	c.mu.RUnlock()
	if !ok {
		return models.Job{}, false
	}
	return job.Snapshot(), true
}

// Stats reports the current load.
func (c *Coordinator) Stats() models.JobStats {
	c.mu.RLock()
	tracked := len(c.jobs)
	c.mu.RUnlock()
	return models.JobStats{
		MaxConcurrent: c.maxConcurrent,
		Running:       int(c.running.Load()),
		Queued:        int(c.queued.Load()),
		Tracked:       tracked,
	}
}

// Shutdown stops accepting jobs and waits for in-flight ones. When ctx
// expires first, running jobs are cancelled and Shutdown returns ctx.Err()
// once they have finished.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		<-done
		return ctx.Err()
	}
}

func (c *Coordinator) run(job models.Job) {
	defer c.wg.Done()
	logger := c.logger.With("job_id", job.ID)

	if err := c.sem.Acquire(c.ctx, 1); err != nil {
		c.queued.Add(-1)
		c.complete(job.ID, c.internalError(job, "aborted before start"), logger)
		return
	}
	c.queued.Add(-1)
	c.running.Add(1)
	defer func() {
		c.running.Add(-1)
		c.sem.Release(1)
	}()

	if !c.update(job.ID, func(j *models.Job) { j.Status = models.StatusRunning }) {
		return
	}
	logger.Info("job running", "url", job.URL)

	c.complete(job.ID, c.execute(job, logger), logger)
}

// execute runs the job with panic isolation.
func (c *Coordinator) execute(job models.Job, logger *slog.Logger) (p *models.Payload) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", "panic", fmt.Sprint(r))
			p = c.internalError(job, "panic")
		}
	}()
	p = c.runner.Scrape(c.ctx, job)
	if p == nil {
		return c.internalError(job, "no payload")
	}
	return p
}

// complete performs the guarded terminal transition and triggers delivery
// exactly once.
func (c *Coordinator) complete(id string, p *models.Payload, logger *slog.Logger) {
	if p.Status != models.StatusSuccess {
		p.Status = models.StatusError
	}
	stored := p.Clone()

	var (
		callback string
		won      bool
	)
	c.mu.Lock()
	if job, ok := c.jobs[id]; ok && !job.Status.Terminal() {
		job.Status = stored.Status
		job.CompletedAt = c.now().UTC()
		job.Payload = stored
		c.jobs[id] = job
		callback = job.CallbackURL
		won = true
	}
	c.mu.Unlock()

	if !won {
		logger.Warn("duplicate terminal transition ignored")
		return
	}

	code := ""
	if p.Error != nil {
		code = *p.Error
	}
	logger.Info("job finished", "status", p.Status, "error", code)

	if callback == "" {
		callback = c.defaultCallback
	}
	if callback == "" || c.deliverer == nil {
		return
	}
	if err := c.deliverer.Deliver(context.WithoutCancel(c.ctx), callback, p); err != nil {
		logger.Error("callback delivery failed, dropping", "callback", callback, "error", err)
		return
	}
	logger.Info("callback delivered", "callback", callback)
}

// update applies fn to a non-terminal job. It reports whether it did.
func (c *Coordinator) update(id string, fn func(*models.Job)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}
	fn(&job)
	c.jobs[id] = job
	return true
}

func (c *Coordinator) internalError(job models.Job, reason string) *models.Payload {
	code := models.ErrCodeInternal
	c.logger.Debug("internal job failure", "job_id", job.ID, "reason", reason)
	return &models.Payload{
		JobID:     job.ID,
		URL:       job.URL,
		Status:    models.StatusError,
		Timestamp: c.now().UTC(),
		Error:     &code,
	}
}

// janitor evicts terminal jobs older than the retention period.
func (c *Coordinator) janitor() {
	interval := min(max(c.retention/4, time.Second), 5*time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if n := c.evictExpired(c.now()); n > 0 {
				c.logger.Debug("evicted expired jobs", "count", n)
			}
		}
	}
}

func (c *Coordinator) evictExpired(now time.Time) int {
	cutoff := now.Add(-c.retention)
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, job := range c.jobs {
		if job.Status.Terminal() && job.CompletedAt.Before(cutoff) {
			delete(c.jobs, id)
			n++
		}
	}
	return n
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host")
	}
	return nil
}
