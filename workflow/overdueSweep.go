package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("payplanner/workflow")

const overdueSweepLockKey = "lock:overdue-sweep"

// OverdueSweeper periodically marks unpaid payments past their due date as Overdue.
type OverdueSweeper struct {
	Logger    *logrus.Logger
	Locker    *redislock.Client
	Interval  time.Duration
	BatchSize int
	LockTTL   time.Duration
	Now       func() time.Time
}

func NewOverdueSweeper(logger *logrus.Logger) *OverdueSweeper {
	return &OverdueSweeper{
		Logger:    logger,
		Locker:    config.GetRedisLock(),
		Interval:  config.OverdueSweepInterval(),
		BatchSize: models.DefaultSweepBatchSize,
		LockTTL:   5 * time.Minute,
		Now:       time.Now,
	}
}

// Run sweeps once at startup and then on every tick until ctx is cancelled.
// A non-positive Interval runs the startup sweep only.
func (s *OverdueSweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	if s.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	n, err := s.RunOnce(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) && s.Logger != nil {
			config.LogError(s.Logger, "OverdueSweeper", "Run", "sweep", nil, err)
		}
		return
	}
	if n > 0 && s.Logger != nil {
		config.LogInfo(s.Logger, "OverdueSweeper", "Run", "payments marked overdue", logrus.Fields{"count": n})
	}
}

// RunOnce performs one sweep. When another replica holds the lock it returns 0 without sweeping.
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "overdue-sweep", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if s.Locker != nil {
		lock, err := s.Locker.Obtain(ctx, overdueSweepLockKey, s.LockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			span.SetAttributes(attribute.Bool("sweep.skipped", true))
			return 0, nil
		}
		if err != nil {
			// Redis trouble should not stop the sweep; it is idempotent.
			if s.Logger != nil {
				s.Logger.WithFields(logrus.Fields{"field": "OverdueSweeper"}).
					Warn("error obtaining redis lock; sweeping without it: " + err.Error())
			}
		} else {
			defer func() {
				if releaseErr := lock.Release(context.Background()); releaseErr != nil && s.Logger != nil {
					s.Logger.WithFields(logrus.Fields{"field": "OverdueSweeper"}).
						Warn("failed to release redis lock: " + releaseErr.Error())
				}
			}()
		}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	n, err := models.SweepOverduePayments(ctx, now(), s.BatchSize)
	span.SetAttributes(attribute.Int("sweep.changed", n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return n, err
}
