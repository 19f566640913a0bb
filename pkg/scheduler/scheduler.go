package scheduler

import (
	"context"
	"time"
)

type Job interface{ Run(ctx context.Context) }

type FuncJob func(ctx context.Context)

func (f FuncJob) Run(ctx context.Context) { f(ctx) }

// Scheduler runs background jobs until Stop.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

func (s *Scheduler) Stop() { s.cancel() }

// Every runs job every d until Stop. The first run is after d.
func (s *Scheduler) Every(d time.Duration, job Job) { go s.loopEvery(d, job) }

// OnceAfter runs job once after d unless Stop comes first.
func (s *Scheduler) OnceAfter(d time.Duration, job Job) { go s.onceAfter(d, job) }

func (s *Scheduler) loopEvery(d time.Duration, job Job) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			job.Run(s.ctx)
		}
	}
}

func (s *Scheduler) onceAfter(d time.Duration, job Job) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return
	case <-timer.C:
		job.Run(s.ctx)
	}
}
