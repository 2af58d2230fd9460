package repository

import (
	"context"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	pkgkafka "PriceSignal/pkg/kafka"
)

// signalMessage is the wire form of a prediction on the signals topic.
type signalMessage struct {
	Symbol        string     `json:"symbol"`
	Interval      string     `json:"interval"`
	Signal        int        `json:"signal"`
	Label         string     `json:"label"`
	Probabilities [3]float64 `json:"probabilities"`
	Volatility    float64    `json:"volatility"`
	LastClose     float64    `json:"last_close"`
	Artifact      string     `json:"artifact"`
	T             int64      `json:"t"`
	GeneratedAt   time.Time  `json:"generated_at"`
}

func newSignalMessage(p *models.Prediction) signalMessage {
	return signalMessage{
		Symbol:        p.Symbol,
		Interval:      string(p.Interval),
		Signal:        int(p.Signal),
		Label:         p.Signal.String(),
		Probabilities: p.Probabilities,
		Volatility:    p.Volatility,
		LastClose:     p.LastClose,
		Artifact:      p.ArtifactID,
		T:             p.Timestamp.Unix(),
		GeneratedAt:   p.GeneratedAt,
	}
}

// KafkaSignalPublisher implements SignalPublisher for Kafka.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates Kafka publisher keyed by symbol.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) domrepo.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, pred *models.Prediction) error {
	return p.producer.Publish(ctx, p.topic, []byte(pred.Symbol), newSignalMessage(pred))
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopSignalPublisher drops every prediction. Used when Kafka is disabled.
type NopSignalPublisher struct{}

func (NopSignalPublisher) Publish(context.Context, *models.Prediction) error { return nil }
func (NopSignalPublisher) Close() error                                      { return nil }
