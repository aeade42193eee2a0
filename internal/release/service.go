package release

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/wishwall/internal/logging"
	"github.com/imrishuroy/wishwall/internal/metrics"
	"github.com/imrishuroy/wishwall/internal/releaserun"
	"github.com/imrishuroy/wishwall/internal/wishes"
)

// Trigger names recorded on a run.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
	TriggerQueue    = "queue"
)

// Options select the run to perform.
type Options struct {
	RunKey  string // empty means the service default
	Force   bool   // run even if the ledger says the key is done
	Trigger string
}

// Result describes one call to Release.
type Result struct {
	RunKey  string `json:"runKey"`
	Updated int    `json:"updated"`
	Skipped bool   `json:"skipped"`
}

// Releaser is what handlers, the scheduler and the worker depend on.
type Releaser interface {
	Release(ctx context.Context, opts Options) (Result, error)
}

// Service releases all active wishes once per run key.
type Service struct {
	store      wishes.Store
	ledger     releaserun.Ledger
	metrics    metrics.Recorder
	defaultKey string
}

// NewService wires a release service. A nil recorder disables metrics.
func NewService(store wishes.Store, ledger releaserun.Ledger, rec metrics.Recorder, defaultKey string) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		store:      store,
		ledger:     ledger,
		metrics:    rec,
		defaultKey: defaultKey,
	}
}

// Release runs the bulk release for a run key. A key already marked DONE is
// skipped unless Force is set; IN_PROGRESS and FAILED runs are picked up again,
// which is safe because releasing is idempotent. On failure the partial count
// is returned alongside the error.
func (s *Service) Release(ctx context.Context, opts Options) (Result, error) {
	key := opts.RunKey
	if key == "" {
		key = s.defaultKey
	}
	log := logging.FromContext(ctx).With(zap.String("run_key", key), zap.String("trigger", opts.Trigger))
	res := Result{RunKey: key}

	created, err := s.ledger.Begin(ctx, key, opts.Trigger)
	if err != nil {
		return res, fmt.Errorf("begin release run: %w", err)
	}
	if !created {
		rec, err := s.ledger.Get(ctx, key)
		if err != nil {
			return res, fmt.Errorf("get release run: %w", err)
		}
		if rec != nil && rec.Status == releaserun.StatusDone && !opts.Force {
			log.Info("release run already done, skipping", zap.Int("previously_updated", rec.Updated))
			res.Skipped = true
			return res, nil
		}
		if err := s.ledger.Retry(ctx, key, opts.Trigger); err != nil {
			return res, fmt.Errorf("retry release run: %w", err)
		}
	}

	n, err := s.store.ReleaseAllActive(ctx)
	res.Updated = n
	if err != nil {
		s.metrics.ReleaseFailed(ctx)
		log.Error("release failed", zap.Int("updated", n), zap.Error(err))
		if markErr := s.ledger.MarkFailed(ctx, key, n, err.Error()); markErr != nil {
			log.Error("mark release run failed", zap.Error(markErr))
		}
		return res, fmt.Errorf("release all active: %w", err)
	}

	s.metrics.WishesReleased(ctx, n)
	if err := s.ledger.MarkDone(ctx, key, n); err != nil {
		// wishes are released; only the bookkeeping is behind
		log.Error("mark release run done", zap.Error(err))
	}
	log.Info("release completed", zap.Int("updated", n))
	return res, nil
}

var _ Releaser = (*Service)(nil)
