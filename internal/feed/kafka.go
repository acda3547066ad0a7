package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const (
	DefaultKafkaTopic = "tokens.new"
	DefaultKafkaGroup = "price-tracker"
)

// KafkaSource consumes feed messages as a member of a consumer group.
type KafkaSource struct {
	group   sarama.ConsumerGroup
	topic   string
	handler claimHandler
	logger  *zap.Logger
}

// NewKafkaSource joins group on brokers and consumes topic.
func NewKafkaSource(brokers []string, topic, group string, handler *Handler, logger *zap.Logger) (*KafkaSource, error) {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	if group == "" {
		group = DefaultKafkaGroup
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true

	cg, err := sarama.NewConsumerGroup(brokers, group, cfg)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &KafkaSource{
		group:   cg,
		topic:   topic,
		handler: claimHandler{handler: handler},
		logger:  logger.Named("feed.kafka"),
	}, nil
}

// Run consumes until ctx ends and closes the group on return.
func (s *KafkaSource) Run(ctx context.Context) error {
	defer s.group.Close()
	s.logger.Info("consuming kafka feed", zap.String("topic", s.topic))

	go func() {
		for err := range s.group.Errors() {
			s.logger.Warn("consumer group error", zap.Error(err))
		}
	}()

	for {
		// Consume returns on every rebalance
		if err := s.group.Consume(ctx, []string{s.topic}, s.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

var _ sarama.ConsumerGroupHandler = claimHandler{}

type claimHandler struct {
	handler *Handler
}

func (h claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.handler.Handle(msg.Value)
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
