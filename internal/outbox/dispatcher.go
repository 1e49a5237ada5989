package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"example.com/signup/internal/events"
)

const flushTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Dispatcher drains the outbox and delivers membership events to Kafka.
type Dispatcher struct {
	outbox           *Outbox
	producer         messageWriter
	topic            string
	pollInterval     time.Duration
	batchSize        int
	logger           *zap.Logger
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(outbox *Outbox, producer messageWriter, topic string, pollInterval time.Duration, batchSize int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Dispatcher{
		outbox:           outbox,
		producer:         producer,
		topic:            topic,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		logger:           logger.Named("outbox"),
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the polling loop. It should be called in a goroutine.
// On cancellation it makes one last bounded attempt to flush pending events.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("delivery failed", zap.Error(err), zap.Int("pending", d.outbox.Len()))
		}

		select {
		case <-ctx.Done():
			d.flush()
			return
		case <-ticker.C:
		}
	}
}

// Wait waits until dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	for d.outbox.Len() > 0 {
		if err := d.processBatch(ctx); err != nil {
			d.logger.Warn("final flush abandoned", zap.Error(err), zap.Int("pending", d.outbox.Len()))
			return
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	batch := d.outbox.Take(d.batchSize)
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	msgs, err := encodeBatch(batch)
	if err != nil {
		// Payloads are plain structs; an encode failure is not retryable.
		failedCounter.Add(float64(len(batch)))
		return err
	}

	if err := d.producer.WriteMessages(ctx, d.topic, msgs...); err != nil {
		failedCounter.Add(float64(len(batch)))
		d.outbox.Requeue(batch)
		return fmt.Errorf("write %d events to %s: %w", len(batch), d.topic, err)
	}

	deliveredCounter.Add(float64(len(batch)))
	d.logger.Debug("delivered batch", zap.Int("events", len(batch)), zap.String("topic", d.topic))
	return nil
}

func encodeBatch(batch []events.MembershipChanged) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(batch))
	for _, evt := range batch {
		payload, err := json.Marshal(evt)
		if err != nil {
			return nil, fmt.Errorf("encode event %s: %w", evt.EventID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(evt.Activity),
			Value: payload,
			Time:  evt.OccurredAt,
			Headers: []kafka.Header{
				{Key: events.HeaderEventType, Value: []byte(evt.EventType)},
				{Key: events.HeaderEventID, Value: []byte(evt.EventID)},
			},
		})
	}
	return msgs, nil
}
