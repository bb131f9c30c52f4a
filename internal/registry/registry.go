// Package registry holds the process-wide job table shared by the polling
// path (read-only) and the coordinator owning each job (single writer).
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkovalev/novel-translate-back/internal/domain"
)

var ErrNotFound = errors.New("job not found")

// Registry abstracts job state storage and lifecycle operations.
type Registry interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, jobID string) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	Remove(ctx context.Context, jobID string) error
	// Evict drops jobs untouched for longer than retention and reports how
	// many were removed. Staleness covers terminal jobs past their retention
	// window, uploads that were never started, and Processing entries whose
	// coordinator is gone; a live coordinator refreshes UpdatedAt on every
	// segment and treats a vanished entry as cancellation.
	Evict(ctx context.Context, retention time.Duration) (int, error)
}

// MemoryRegistry stores jobs in memory. Readers get clones so polling never
// observes a job mid-mutation.
type MemoryRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		jobs: make(map[string]*domain.Job),
	}
}

func (r *MemoryRegistry) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryRegistry) Update(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryRegistry) Remove(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[jobID]; !ok {
		return ErrNotFound
	}
	delete(r.jobs, jobID)
	return nil
}

func (r *MemoryRegistry) Evict(_ context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for jobID, job := range r.jobs {
		if job.UpdatedAt.Before(cutoff) {
			delete(r.jobs, jobID)
			evicted++
		}
	}
	return evicted, nil
}

func cloneJob(job *domain.Job) *domain.Job {
	if job == nil {
		return nil
	}
	clone := *job
	clone.Segments = append([]domain.Segment(nil), job.Segments...)
	clone.Results = make(map[int]string, len(job.Results))
	for index, text := range job.Results {
		clone.Results[index] = text
	}
	return &clone
}
