package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers one payload to a named queue and returns once the
// broker has acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, queue string, key, payload []byte) error
	Close() error
}

// sendBatchTimeout bounds how long a single synchronous write waits for
// a batch to fill before it is flushed.
const sendBatchTimeout = 10 * time.Millisecond

// KafkaPublisher publishes to Kafka topics; the queue name is the topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, writeTimeout time.Duration) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           sendBatchTimeout,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: true,
	}
	log.Info().Strs("brokers", brokers).Msg("kafka publisher initialized")
	return &KafkaPublisher{writer: w}
}

// Publish writes synchronously, so a nil error means the leader acked.
func (p *KafkaPublisher) Publish(ctx context.Context, queue string, key, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: queue,
		Key:   key,
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
