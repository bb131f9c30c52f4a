package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dkovalev/novel-translate-back/internal/domain"
	"github.com/dkovalev/novel-translate-back/internal/registry"
	"github.com/dkovalev/novel-translate-back/internal/translator"
)

var ErrJobTimeout = errors.New("job made no forward progress before the watchdog deadline")

type CoordinatorConfig struct {
	// Watchdog fails a job when no segment completes within this window.
	Watchdog time.Duration
}

// Coordinator drives jobs through Processing to a terminal status. One Run
// per job; the coordinator goroutine is the only writer of that job's
// registry entry while it runs.
type Coordinator struct {
	registry registry.Registry
	pool     *Pool
	watchdog time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewCoordinator(reg registry.Registry, pool *Pool, cfg CoordinatorConfig, logger *log.Logger) *Coordinator {
	if cfg.Watchdog <= 0 {
		cfg.Watchdog = 2 * time.Minute
	}
	return &Coordinator{
		registry: reg,
		pool:     pool,
		watchdog: cfg.Watchdog,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Cancel stops dispatching segments for a job. In-flight backend calls run
// to completion but their results are discarded.
func (c *Coordinator) Cancel(jobID string) {
	c.mu.Lock()
	cancel, ok := c.cancels[jobID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// Run processes one job already moved to Processing by Start. It fans the
// segments out to the pool, folds completions into the job under single-
// writer discipline, and reassembles the result strictly by segment index.
func (c *Coordinator) Run(ctx context.Context, jobID string) {
	job, err := c.registry.Get(ctx, jobID)
	if err != nil {
		c.logf("coordinator: load job %s: %v", jobID, err)
		return
	}
	if job.Status != domain.JobStatusProcessing {
		c.logf("coordinator: job %s is %s, nothing to run", jobID, job.Status)
		return
	}
	if job.Results == nil {
		job.Results = make(map[int]string, job.TotalCount)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.track(jobID, cancel)
	defer c.untrack(jobID)

	out := make(chan Outcome, job.TotalCount)
	go c.dispatch(jobCtx, job, out)

	watchdog := time.NewTimer(c.watchdog)
	defer watchdog.Stop()

	for job.CompletedCount < job.TotalCount {
		select {
		case <-jobCtx.Done():
			return
		case <-watchdog.C:
			c.fail(ctx, job, fmt.Errorf("%w (%s)", ErrJobTimeout, c.watchdog))
			return
		case outcome := <-out:
			if outcome.Err != nil {
				c.fail(ctx, job, fmt.Errorf("segment %d: %v", outcome.Index, outcome.Err))
				return
			}
			job.Results[outcome.Index] = outcome.Text
			job.CompletedCount++
			job.UpdatedAt = time.Now().UTC()
			if !c.update(ctx, job, cancel) {
				return
			}
			if !watchdog.Stop() {
				select {
				case <-watchdog.C:
				default:
				}
			}
			watchdog.Reset(c.watchdog)
		}
	}

	var assembled strings.Builder
	for index := 0; index < job.TotalCount; index++ {
		assembled.WriteString(job.Results[index])
	}
	job.Result = assembled.String()
	job.Status = domain.JobStatusCompleted
	job.UpdatedAt = time.Now().UTC()
	if c.update(ctx, job, cancel) {
		c.logf("job completed id=%s segments=%d", job.ID, job.TotalCount)
	}
}

func (c *Coordinator) dispatch(jobCtx context.Context, job *domain.Job, out chan<- Outcome) {
	for _, segment := range job.Segments {
		request := translator.Request{
			Text:         segment.Text,
			Context:      segment.Context,
			Instructions: job.Instructions,
			SourceLang:   job.SourceLang,
			TargetLang:   job.TargetLang,
		}
		if err := c.pool.Submit(jobCtx, segment.Index, request, out); err != nil {
			return
		}
	}
}

func (c *Coordinator) fail(ctx context.Context, job *domain.Job, cause error) {
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = cause.Error()
	job.UpdatedAt = time.Now().UTC()
	if err := c.registry.Update(ctx, job); err != nil && !errors.Is(err, registry.ErrNotFound) {
		c.logf("coordinator: record failure for job %s: %v", job.ID, err)
	}
	c.logf("job failed id=%s err=%v", job.ID, cause)
}

// update persists the coordinator's copy. A vanished registry entry means
// the job was removed mid-run: stop dispatching and discard the rest. Any
// other persistence error also stops the run, but the job must not stay
// Processing with no owner, so one attempt is made to mark it Failed; if
// that write fails too, the retention sweep reclaims the stale entry.
func (c *Coordinator) update(ctx context.Context, job *domain.Job, cancel context.CancelFunc) bool {
	err := c.registry.Update(ctx, job)
	if err == nil {
		return true
	}
	if errors.Is(err, registry.ErrNotFound) {
		c.logf("coordinator: job %s removed while processing, discarding results", job.ID)
	} else {
		c.logf("coordinator: update job %s: %v", job.ID, err)
		c.fail(ctx, job, fmt.Errorf("persist job state: %v", err))
	}
	cancel()
	return false
}

func (c *Coordinator) track(jobID string, cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancels[jobID] = cancel
	c.mu.Unlock()
}

func (c *Coordinator) untrack(jobID string) {
	c.mu.Lock()
	delete(c.cancels, jobID)
	c.mu.Unlock()
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
