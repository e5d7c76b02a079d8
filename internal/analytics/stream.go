package analytics

import (
	"Taglink-Backend/internal/domain"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout = 5 * time.Second
	fetchBatch            = 32
	fetchWait             = 5 * time.Second
)

// StreamConfig names the JetStream stream, subject and durable consumer for click events.
type StreamConfig struct {
	Stream  string
	Subject string
	Durable string
}

// ConnectNATS opens a NATS connection with JetStream enabled.
func ConnectNATS(url string) (*nats.Conn, nats.JetStreamContext, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(defaultConnectTimeout),
		nats.Name("taglink"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}
	return conn, js, nil
}

// EnsureStream creates the click stream when it does not exist yet.
func EnsureStream(js nats.JetStreamContext, cfg StreamConfig) error {
	if _, err := js.StreamInfo(cfg.Stream); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}
	return nil
}

// StreamSink publishes enriched click events to JetStream. Geo enrichment happens before
// publishing, so the client IP never reaches the stream.
type StreamSink struct {
	js      nats.JetStreamContext
	subject string
}

func NewStreamSink(js nats.JetStreamContext, subject string) *StreamSink {
	return &StreamSink{js: js, subject: subject}
}

func (s *StreamSink) Write(ctx context.Context, ev *domain.ClickEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode click event: %w", err)
	}
	if _, err := s.js.Publish(s.subject, data, nats.MsgId(uuid.NewString()), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish click event: %w", err)
	}
	return nil
}

// Consumer drains the click stream into a Sink. A message that cannot be decoded or stored
// is terminated, not redelivered.
type Consumer struct {
	js      nats.JetStreamContext
	cfg     StreamConfig
	sink    Sink
	timeout time.Duration
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(js nats.JetStreamContext, cfg StreamConfig, sink Sink, writeTimeout time.Duration, log *zap.Logger) *Consumer {
	if writeTimeout <= 0 {
		writeTimeout = DefaultConfig().RecordTimeout
	}
	return &Consumer{
		js:      js,
		cfg:     cfg,
		sink:    sink,
		timeout: writeTimeout,
		log:     log.With(zap.String("stream", cfg.Stream), zap.String("durable", cfg.Durable)),
	}
}

// Start subscribes with the durable pull consumer and begins fetching in the background.
func (c *Consumer) Start() error {
	if _, err := c.js.ConsumerInfo(c.cfg.Stream, c.cfg.Durable); err != nil {
		_, err = c.js.AddConsumer(c.cfg.Stream, &nats.ConsumerConfig{
			Durable:       c.cfg.Durable,
			AckPolicy:     nats.AckExplicitPolicy,
			FilterSubject: c.cfg.Subject,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(c.cfg.Subject, c.cfg.Durable, nats.Bind(c.cfg.Stream, c.cfg.Durable))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go c.consume(ctx, sub)

	c.log.Info("click stream consumer started")
	return nil
}

// Stop ends the fetch loop and waits for the in-flight batch.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()
	c.log.Info("click stream consumer stopped")
}

func (c *Consumer) consume(ctx context.Context, sub *nats.Subscription) {
	defer c.wg.Done()
	defer func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.log.Warn("failed to unsubscribe", zap.Error(err))
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		fetchCtx, cancel := context.WithTimeout(ctx, fetchWait)
		msgs, err := sub.Fetch(fetchBatch, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
				c.log.Error("failed to fetch click events", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
			continue
		}

		for _, msg := range msgs {
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	var ev domain.ClickEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		c.log.Error("failed to decode click event", zap.Error(err))
		c.term(msg)
		return
	}
	ev.ID = 0

	writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.sink.Write(writeCtx, &ev); err != nil {
		c.log.Warn("click dropped", zap.Int64("link_id", ev.LinkID), zap.Error(err))
		c.term(msg)
		return
	}
	if err := msg.Ack(); err != nil {
		c.log.Warn("failed to ack click event", zap.Error(err))
	}
}

func (c *Consumer) term(msg *nats.Msg) {
	if err := msg.Term(); err != nil {
		c.log.Warn("failed to terminate click event", zap.Error(err))
	}
}
