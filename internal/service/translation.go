// Package service exposes the boundary operations the HTTP shell drives:
// submit, start, poll and fetch_result.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkovalev/novel-translate-back/internal/chunker"
	"github.com/dkovalev/novel-translate-back/internal/domain"
	"github.com/dkovalev/novel-translate-back/internal/registry"
	"github.com/dkovalev/novel-translate-back/internal/worker"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, only .txt is accepted")
	ErrNotReady          = errors.New("translation result is not ready")
)

type Config struct {
	MaxSegmentChars int
	MaxContextChars int
	SourceLang      string
	TargetLang      string
}

type Dependencies struct {
	Registry    registry.Registry
	Coordinator *worker.Coordinator
	// RunContext outlives individual requests; coordinators launched by
	// Start are bound to it, not to the submitting request.
	RunContext context.Context
	Logger     *log.Logger
}

type TranslationService struct {
	registry        registry.Registry
	coordinator     *worker.Coordinator
	runCtx          context.Context
	maxSegmentChars int
	maxContextChars int
	sourceLang      string
	targetLang      string
	logger          *log.Logger

	startMu sync.Mutex
}

func NewTranslationService(cfg Config, deps Dependencies) *TranslationService {
	if cfg.MaxSegmentChars <= 0 {
		cfg.MaxSegmentChars = chunker.DefaultMaxSegmentChars
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = chunker.DefaultMaxContextChars
	}
	if strings.TrimSpace(cfg.SourceLang) == "" {
		cfg.SourceLang = "auto"
	}
	if strings.TrimSpace(cfg.TargetLang) == "" {
		cfg.TargetLang = "ru"
	}
	runCtx := deps.RunContext
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &TranslationService{
		registry:        deps.Registry,
		coordinator:     deps.Coordinator,
		runCtx:          runCtx,
		maxSegmentChars: cfg.MaxSegmentChars,
		maxContextChars: cfg.MaxContextChars,
		sourceLang:      cfg.SourceLang,
		targetLang:      cfg.TargetLang,
		logger:          deps.Logger,
	}
}

type SubmitInput struct {
	Filename     string
	Text         string
	Instructions string
	SourceLang   string
	TargetLang   string
}

// Submit validates the document, chunks it, attaches per-segment context
// and registers a Queued job. Validation failures never create a job.
func (s *TranslationService) Submit(ctx context.Context, input SubmitInput) (*domain.Job, error) {
	if input.Filename != "" && !allowedFilename(input.Filename) {
		return nil, ErrUnsupportedFormat
	}

	texts, err := chunker.Chunk(input.Text, s.maxSegmentChars)
	if err != nil {
		return nil, err
	}

	segments := make([]domain.Segment, len(texts))
	for index, text := range texts {
		segments[index] = domain.Segment{
			Index:   index,
			Text:    text,
			Context: chunker.BuildContext(texts, index, s.maxContextChars),
		}
	}

	sourceLang := strings.TrimSpace(input.SourceLang)
	if sourceLang == "" {
		sourceLang = s.sourceLang
	}
	targetLang := strings.TrimSpace(input.TargetLang)
	if targetLang == "" {
		targetLang = s.targetLang
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:           uuid.NewString(),
		Filename:     strings.TrimSpace(input.Filename),
		Instructions: strings.TrimSpace(input.Instructions),
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		Segments:     segments,
		Results:      make(map[int]string, len(segments)),
		Status:       domain.JobStatusQueued,
		TotalCount:   len(segments),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.registry.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.logger != nil {
		s.logger.Printf("job submitted id=%s segments=%d chars=%d", job.ID, job.TotalCount, len(input.Text))
	}
	return job, nil
}

// Start moves a Queued job to Processing and launches its coordinator.
// Calling it on a non-Queued job is a no-op returning the current state.
func (s *TranslationService) Start(ctx context.Context, jobID string) (*domain.Job, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	job, err := s.registry.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusQueued {
		return job, nil
	}

	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = time.Now().UTC()
	if err := s.registry.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	go s.coordinator.Run(s.runCtx, job.ID)
	return job, nil
}

type PollResult struct {
	Status   domain.JobStatus
	Progress int
	Error    string
}

// Poll is a non-blocking snapshot read of job status and progress.
func (s *TranslationService) Poll(ctx context.Context, jobID string) (PollResult, error) {
	job, err := s.registry.Get(ctx, jobID)
	if err != nil {
		return PollResult{}, err
	}
	return PollResult{
		Status:   job.Status,
		Progress: job.ProgressPercent(),
		Error:    job.ErrorMessage,
	}, nil
}

type FetchedResult struct {
	Text     string
	Filename string
}

// FetchResult returns the reassembled document. Anything but Completed is
// ErrNotReady; Failed jobs never return partial text.
func (s *TranslationService) FetchResult(ctx context.Context, jobID string) (FetchedResult, error) {
	job, err := s.registry.Get(ctx, jobID)
	if err != nil {
		return FetchedResult{}, err
	}
	if job.Status != domain.JobStatusCompleted {
		return FetchedResult{}, fmt.Errorf("%w: job is %s", ErrNotReady, job.Status)
	}
	return FetchedResult{
		Text:     job.Result,
		Filename: outputFilename(job),
	}, nil
}

// Remove evicts a job. A running coordinator stops dispatching and discards
// in-flight results.
func (s *TranslationService) Remove(ctx context.Context, jobID string) error {
	if err := s.registry.Remove(ctx, jobID); err != nil {
		return err
	}
	s.coordinator.Cancel(jobID)
	return nil
}

func allowedFilename(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".txt")
}

func outputFilename(job *domain.Job) string {
	base := strings.TrimSpace(job.Filename)
	if base == "" {
		base = "document.txt"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_translated_%s.txt", stem, job.TargetLang)
}
