package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// Handler returns nil only when the message was processed and its offset
// may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// reader is the part of *kafka.Reader the consumer drives.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       reader
	workers int
	log     *slog.Logger

	// RetryBase and RetryMax bound the backoff between attempts at a
	// failing message.
	RetryBase time.Duration
	RetryMax  time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, log.With("topic", topic, "group", group))
}

func newConsumer(r reader, workers int, log *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log, RetryBase: 200 * time.Millisecond, RetryMax: 30 * time.Second}
}

// Start fetches messages until ctx is cancelled. Each partition is pinned to
// one worker, so offsets are handled and committed in order. A failing
// message is retried with backoff and blocks its partition; its offset is
// committed only once the handler succeeds.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	g, gctx := errgroup.WithContext(ctx)
	lanes := make([]chan kafka.Message, c.workers)
	for i := range lanes {
		lane := make(chan kafka.Message, 4)
		lanes[i] = lane
		g.Go(func() error {
			for m := range lane {
				if err := c.handle(gctx, h, m); err != nil {
					// only a cancelled ctx ends the retries
					return nil
				}
				if err := c.r.CommitMessages(gctx, m); err != nil && gctx.Err() == nil {
					c.log.Error("commit offset", "partition", m.Partition, "offset", m.Offset, "err", err)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, lane := range lanes {
				close(lane)
			}
		}()
		for {
			m, err := c.r.FetchMessage(gctx)
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			select {
			case lanes[m.Partition%c.workers] <- m:
			case <-gctx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) error {
	b := retry.WithCappedDuration(c.RetryMax, retry.NewExponential(c.RetryBase))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := h(ctx, m); err != nil {
			c.log.Error("handle message", "partition", m.Partition, "offset", m.Offset, "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
