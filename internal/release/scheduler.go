package release

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/imrishuroy/wishwall/internal/logging"
)

// runTimeout bounds a single scheduled release.
const runTimeout = 5 * time.Minute

// Scheduler fires the release on a cron schedule, but never before releaseAt.
type Scheduler struct {
	cron      *cron.Cron
	releaser  Releaser
	releaseAt time.Time
	runKey    string
	log       *zap.Logger
	nowFunc   func() time.Time
}

// NewScheduler parses spec (standard five field cron, CRON_TZ= prefix allowed).
func NewScheduler(releaser Releaser, spec string, releaseAt time.Time, runKey string, log *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		releaser:  releaser,
		releaseAt: releaseAt,
		runKey:    runKey,
		log:       log,
		nowFunc:   time.Now,
	}
	s.cron = cron.New(cron.WithLogger(cronLogger{log.Sugar()}))
	if _, err := s.cron.AddFunc(spec, func() { s.Tick(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse release schedule %q: %w", spec, err)
	}
	return s, nil
}

// Tick performs one scheduled attempt. It reports whether a release was attempted.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.nowFunc()
	if now.Before(s.releaseAt) {
		s.log.Debug("release time not reached", zap.Time("release_at", s.releaseAt))
		return false
	}

	ctx, cancel := context.WithTimeout(logging.NewContext(ctx, s.log), runTimeout)
	defer cancel()

	res, err := s.releaser.Release(ctx, Options{RunKey: s.runKey, Trigger: TriggerSchedule})
	if err != nil {
		s.log.Error("scheduled release failed", zap.Int("updated", res.Updated), zap.Error(err))
		return true
	}
	s.log.Info("scheduled release finished", zap.Int("updated", res.Updated), zap.Bool("skipped", res.Skipped))
	return true
}

// Run starts the cron loop and blocks until ctx is done. A process started
// after the release moment catches up immediately; the ledger keeps that from
// repeating a finished run.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Tick(ctx)
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
