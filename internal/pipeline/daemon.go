package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"nukefarm/internal/config"
)

// Daemon drives the indexing cursor: walk pages until the listing is
// exhausted, drain pending scores after each page, then rest and start over
// from offset zero. Errors never kill the loop; the failing offset is
// retried after the error delay.
type Daemon struct {
	Indexer *Indexer
	Scorer  *Scorer
	Config  config.IndexerConfig
	Logger  *zap.Logger
}

func (d *Daemon) Run(ctx context.Context) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		more, err := d.Indexer.RunBatch(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.Logger.Warn("indexing batch failed, retrying", zap.Int("offset", offset), zap.Error(err))
			if err := sleepCtx(ctx, d.Config.ErrorDelay); err != nil {
				return err
			}
			continue
		}
		if err := d.Scorer.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.Logger.Warn("scoring drain failed", zap.Error(err))
		}
		if more {
			offset += d.pageSize()
			if err := sleepCtx(ctx, d.Config.PageDelay); err != nil {
				return err
			}
			continue
		}
		d.Logger.Info("listing exhausted, idling", zap.Duration("idle", d.Config.IdleDelay))
		offset = 0
		if err := sleepCtx(ctx, d.Config.IdleDelay); err != nil {
			return err
		}
	}
}

func (d *Daemon) pageSize() int {
	if d.Config.PageSize > 0 {
		return d.Config.PageSize
	}
	return 100
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
