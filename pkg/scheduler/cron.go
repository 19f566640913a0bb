package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cron runs jobs on cron expressions ("@hourly", "0 */2 * * *").
// Overlapping runs of the same job are skipped.
type Cron struct {
	c      *cron.Cron
	loc    *time.Location
	ctx    context.Context
	cancel context.CancelFunc
}

func NewCron(loc *time.Location, logger *zap.Logger) *Cron {
	if loc == nil {
		loc = time.Local
	}
	l := zapCronLogger{logger: logger}
	if logger == nil {
		l.logger = zap.NewNop()
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{c: c, loc: loc, ctx: ctx, cancel: cancel}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop cancels the jobs' context and waits for running jobs to return.
func (cr *Cron) Stop() {
	cr.cancel()
	<-cr.c.Stop().Done()
}

func (cr *Cron) Add(expr string, job Job) (cron.EntryID, error) {
	return cr.c.AddFunc(expr, func() { job.Run(cr.ctx) })
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }

// zapCronLogger adapts zap to cron.Logger.
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
