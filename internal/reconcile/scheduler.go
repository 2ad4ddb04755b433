package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs batch reconciliation on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	timeout time.Duration
	log     *zap.Logger
}

// NewScheduler parses spec ("@every 30m", "0 */2 * * *", ...). An empty spec returns
// a nil scheduler, which is safe to Start and Stop.
func NewScheduler(spec string, svc *Service, timeout time.Duration, log *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	cl := cronLogger{log: log.Named("cron")}
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		service: svc,
		timeout: timeout,
		log:     log,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	// All logs its own outcome.
	_, _ = s.service.All(ctx, "cron")
}

func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	s.log.Info("reconcile scheduler started", zap.Int("entries", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop waits for a running job to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("reconcile job still running at shutdown")
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
