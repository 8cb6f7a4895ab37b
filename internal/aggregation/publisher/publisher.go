// Package publisher feeds recomputed daily signals to downstream consumers
// over Kafka. Publishing is best-effort: a broker fault is logged and counted
// but never fails the aggregation that produced the signal.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"biohive/internal/aggregation/models"
	"biohive/internal/platform/metrics"
	"biohive/pkg/platform/circuit"
)

// Publisher emits one message per recomputed signal.
type Publisher interface {
	Publish(ctx context.Context, signal *models.AggregatedSignal) error
	Close()
}

// Kafka publishes signals to a single topic, keyed by date so recomputations
// of the same date land in the same partition in order.
type Kafka struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
	breaker *circuit.Breaker
}

func NewKafka(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{
		client:  client,
		topic:   topic,
		logger:  logger,
		metrics: m,
		breaker: circuit.New("signal-publisher"),
	}, nil
}

func (p *Kafka) Publish(ctx context.Context, signal *models.AggregatedSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	if p.breaker.IsOpen() {
		// Probe with one record per aggregation so the breaker can close once
		// the brokers recover. The record either way is best-effort.
		p.logger.Debug("signal publisher circuit open, probing",
			"date", signal.Date.String())
	}
	record := &kgo.Record{
		Key:   []byte(signal.Date.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.metrics.SignalPublishErrors.Inc()
			if _, change := p.breaker.RecordFailure(); change.Opened {
				p.logger.Error("signal publisher circuit opened",
					"breaker", p.breaker.Name())
			}
			p.logger.Warn("signal publish failed",
				"date", signal.Date.String(), "error", err.Error())
			return
		}
		if _, change := p.breaker.RecordSuccess(); change.Closed {
			p.logger.Info("signal publisher circuit closed",
				"breaker", p.breaker.Name())
		}
		p.metrics.SignalsPublished.Inc()
	})
	return nil
}

func (p *Kafka) Close() {
	p.client.Close()
}

// InMemory records published signals for tests and broker-less runs.
type InMemory struct {
	mu      sync.Mutex
	signals []*models.AggregatedSignal
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (p *InMemory) Publish(_ context.Context, signal *models.AggregatedSignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := *signal
	p.signals = append(p.signals, &copied)
	return nil
}

func (p *InMemory) Close() {}

// Published returns all signals published so far.
func (p *InMemory) Published() []*models.AggregatedSignal {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.AggregatedSignal, len(p.signals))
	copy(out, p.signals)
	return out
}
