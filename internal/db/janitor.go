package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/anony/internal/utils"
)

// Purger is implemented by backends that do not reclaim expired entries on
// their own.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeExpired lets the memory backend be driven by RunJanitor.
func (m *Memory) PurgeExpired(context.Context) (int64, error) {
	return int64(m.Sweep()), nil
}

// RunJanitor purges expired entries every interval until ctx is done. It
// returns at once for backends that expire keys themselves.
func RunJanitor(ctx context.Context, kv KV, interval time.Duration, logger *zap.Logger) {
	purger, ok := kv.(Purger)
	if !ok || interval <= 0 {
		return
	}
	logger = utils.NopIfNil(logger).Named("janitor")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := purger.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("purge expired histories failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("purged expired histories", zap.Int64("removed", removed))
			}
		}
	}
}
