package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Source hands out unpublished records. See Repository.Drain.
type Source interface {
	Drain(ctx context.Context, limit int, send func(context.Context, Record) error) (int, error)
}

// Sink delivers one record to the broker.
type Sink interface {
	Send(ctx context.Context, rec Record) error
	Close() error
}

type Publisher struct {
	source    Source
	sink      Sink
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	PollEvery time.Duration
	BatchSize int
}

func NewPublisher(source Source, sink Sink, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		source:    source,
		sink:      sink,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if p.sink == nil {
		p.logger.Warn("outbox publisher disabled (no broker configured)")
		return
	}
	defer func() {
		if err := p.sink.Close(); err != nil {
			p.logger.Warn("outbox sink close failed", "err", err)
		}
	}()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PublishBatch(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// PublishBatch ships one batch and returns how many records were delivered.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	n, err := p.source.Drain(ctx, p.batchSize, func(ctx context.Context, rec Record) error {
		return p.sink.Send(rec.Trace.Restore(ctx), rec)
	})
	if n > 0 {
		p.logger.Debug("outbox batch published", "count", n)
	}
	return n, err
}
