package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"
	"github.com/aq2208/gorder-pos/internal/logging"
	"github.com/aq2208/gorder-pos/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.OrderCompletedMsg) error

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
	}
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &cgHandler{handle: c.Handle}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return nil
		}
	}
}

type cgHandler struct {
	handle HandlerFunc
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log := logging.FromCtx(sess.Context()).With("topic", claim.Topic(), "partition", claim.Partition())
	for msg := range claim.Messages() {
		if ch := channelOf(msg); ch != "" && ch != usecase.ChannelOrderCompleted {
			sess.MarkMessage(msg, "")
			continue
		}
		var ev usecase.OrderCompletedMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Error("kafka decode error", "err", err, "offset", msg.Offset)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}
		if err := h.handle(sess.Context(), ev); err != nil {
			log.Warn("handler error", "err", err, "key", string(msg.Key), "offset", msg.Offset)
			// stop the claim without marking; the group resumes from the last
			// marked offset
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

// channelOf returns the logical channel stamped by Publisher; other
// producers on the topic may leave it empty.
func channelOf(msg *sarama.ConsumerMessage) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == headerChannel {
			return string(h.Value)
		}
	}
	return ""
}
