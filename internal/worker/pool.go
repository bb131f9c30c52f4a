// Package worker runs the translation pipeline: a bounded pool of workers
// pulling independent segments, and one coordinator per job owning that
// job's mutable state.
package worker

import (
	"context"
	"log"

	"golang.org/x/time/rate"

	"github.com/dkovalev/novel-translate-back/internal/cache"
	"github.com/dkovalev/novel-translate-back/internal/quality"
	"github.com/dkovalev/novel-translate-back/internal/translator"
)

// Outcome is one finished segment delivered back to the job coordinator.
// Completion order is unconstrained; Index ties the result to its position.
type Outcome struct {
	Index int
	Text  string
	Err   error
}

type task struct {
	jobCtx  context.Context
	index   int
	request translator.Request
	out     chan<- Outcome
}

type PoolConfig struct {
	// Size bounds concurrent backend calls across all jobs.
	Size          int
	QueueCapacity int
	// BackendRPS throttles backend calls pool-wide; zero disables the limiter.
	BackendRPS   float64
	BackendBurst int
}

type PoolDependencies struct {
	Translator translator.Translator
	Cache      cache.Cache
	Validator  *quality.Validator
	Logger     *log.Logger
}

// Pool is a shared bounded worker set. Jobs submit segments into one FIFO
// task channel, so no job can starve another beyond queue order.
type Pool struct {
	translator translator.Translator
	cache      cache.Cache
	validator  *quality.Validator
	limiter    *rate.Limiter
	tasks      chan task
	size       int
	logger     *log.Logger
}

func NewPool(cfg PoolConfig, deps PoolDependencies) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 8
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}

	var limiter *rate.Limiter
	if cfg.BackendRPS > 0 {
		burst := cfg.BackendBurst
		if burst <= 0 {
			burst = cfg.Size
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.BackendRPS), burst)
	}

	return &Pool{
		translator: deps.Translator,
		cache:      deps.Cache,
		validator:  deps.Validator,
		limiter:    limiter,
		tasks:      make(chan task, cfg.QueueCapacity),
		size:       cfg.Size,
		logger:     deps.Logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.worker(ctx)
	}
}

// Submit queues one segment for translation. Blocks only while the task
// buffer is full; a cancelled job context aborts the wait.
func (p *Pool) Submit(jobCtx context.Context, index int, request translator.Request, out chan<- Outcome) error {
	select {
	case <-jobCtx.Done():
		return jobCtx.Err()
	case p.tasks <- task{jobCtx: jobCtx, index: index, request: request, out: out}:
		return nil
	}
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.tasks:
			p.process(t)
		}
	}
}

func (p *Pool) process(t task) {
	// cancelled jobs get no further backend calls; the coordinator is gone
	if t.jobCtx.Err() != nil {
		return
	}

	signature := cache.Signature(
		p.translator.Model(),
		t.request.Instructions,
		t.request.SourceLang,
		t.request.TargetLang,
		t.request.Context,
		t.request.Text,
	)
	if p.cache != nil {
		if text, ok := p.cache.Get(t.jobCtx, signature); ok {
			t.deliver(Outcome{Index: t.index, Text: text})
			return
		}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(t.jobCtx); err != nil {
			return
		}
	}

	text, err := p.translator.Translate(t.jobCtx, t.request)
	if err == nil && p.validator != nil {
		err = p.validator.ValidateTranslation(t.request.Text, text)
	}
	if err != nil {
		if t.jobCtx.Err() != nil {
			return
		}
		if p.logger != nil {
			p.logger.Printf("segment translation failed index=%d err=%v", t.index, err)
		}
		t.deliver(Outcome{Index: t.index, Err: err})
		return
	}

	if p.cache != nil {
		p.cache.Set(t.jobCtx, signature, text)
	}
	t.deliver(Outcome{Index: t.index, Text: text})
}

// deliver never blocks: the coordinator buffers one slot per segment, so a
// full channel means the job was abandoned and the result is discarded.
func (t task) deliver(outcome Outcome) {
	select {
	case t.out <- outcome:
	default:
	}
}
