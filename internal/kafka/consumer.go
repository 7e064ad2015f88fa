package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog/log"

	"groupboard/internal/config"
)

// MessageHandler processes one consumed message. A nil return commits the
// offset; an error rewinds the partition so the message is delivered again.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error
	Close()
}

// offsetController is the part of *kafka.Consumer that moves offsets.
type offsetController interface {
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, ignoredTimeoutMs int) error
}

const defaultRetryDelay = time.Second

// confluentKafkaConsumer is an implementation of MessageConsumer using confluent-kafka-go.
type confluentKafkaConsumer struct {
	consumer   *kafka.Consumer
	cfg        config.KafkaConfig
	groupID    string
	retryDelay time.Duration
}

// NewConfluentKafkaConsumer prepares a consumer; the connection is opened by Consume.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig) MessageConsumer {
	return &confluentKafkaConsumer{cfg: cfg, retryDelay: defaultRetryDelay}
}

// Consume polls until ctx is canceled or a fatal error occurs. Offsets are
// committed manually after the handler succeeds.
func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	c.groupID = groupID

	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(c.cfg.Brokers, ","),
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": false,
		"security.protocol":  c.cfg.Protocol,
	}
	if c.cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", c.cfg.ClientID)
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", groupID, err)
	}
	c.consumer = consumer

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		_ = c.consumer.Close()
		c.consumer = nil
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, groupID, err)
	}

	logger := log.With().Str("group", groupID).Strs("topics", topics).Logger()
	logger.Info().Msg("kafka consumer started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("kafka consumer stopping")
			return nil
		default:
		}

		ev := c.consumer.Poll(1000)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			c.process(ctx, c.consumer, e, handler)
		case kafka.Error:
			logger.Error().Err(e).Bool("fatal", e.IsFatal()).Msg("kafka consumer error")
			if e.IsFatal() {
				return e
			}
		}
	}
}

// process commits msg after handler succeeds. On failure it seeks the
// partition back to msg so a later poll returns it again, and waits
// retryDelay before polling resumes.
func (c *confluentKafkaConsumer) process(ctx context.Context, offsets offsetController, msg *kafka.Message, handler MessageHandler) {
	logger := log.With().Str("group", c.groupID).Str("topic", topicName(msg.TopicPartition)).
		Int32("partition", msg.TopicPartition.Partition).Str("offset", msg.TopicPartition.Offset.String()).Logger()

	if err := handler(ctx, msg); err != nil {
		if serr := offsets.Seek(msg.TopicPartition, 0); serr != nil {
			logger.Error().Err(err).AnErr("seekErr", serr).Msg("kafka handler failed and rewind failed; message may be skipped")
			return
		}
		logger.Warn().Err(err).Dur("retryIn", c.retryDelay).Msg("kafka handler failed; rewound for redelivery")
		if c.retryDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
		}
		return
	}
	if _, err := offsets.CommitMessage(msg); err != nil {
		logger.Warn().Err(err).Msg("kafka commit failed")
	}
}

func topicName(tp kafka.TopicPartition) string {
	if tp.Topic == nil {
		return ""
	}
	return *tp.Topic
}

// Close closes the Kafka consumer.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer == nil {
		return
	}
	if err := c.consumer.Close(); err != nil {
		log.Warn().Err(err).Str("group", c.groupID).Msg("closing kafka consumer")
	}
	c.consumer = nil
}
