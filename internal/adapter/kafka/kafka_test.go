package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SendsPayload(t *testing.T) {
	sp := mocks.NewSyncProducer(t, ProducerConfig("test"))
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"orderId":"o1"}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisher(sp, map[string]string{usecase.ChannelOrderCompleted: "pos.orders.completed"})
	require.NoError(t, p.Publish(context.Background(), usecase.ChannelOrderCompleted, "o1", []byte(`{"orderId":"o1"}`)))

	err := p.Publish(context.Background(), usecase.ChannelOrderCompleted, "o2", []byte(`{}`))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublisher_TopicMapping(t *testing.T) {
	p := NewPublisher(nil, map[string]string{"a": "topic-a"})
	assert.Equal(t, "topic-a", p.topic("a"))
	assert.Equal(t, "b", p.topic("b"))
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                             { return "pos.orders.completed" }
func (c *fakeClaim) Partition() int32                          { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

type fakeEnsurer struct {
	ids []string
	err error
}

func (f *fakeEnsurer) EnsureGenerated(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	return f.err
}

func TestConsumeClaim_MarksHandledAndPoison(t *testing.T) {
	ens := &fakeEnsurer{}
	h := &cgHandler{handle: NewOrderCompletedHandler(ens).Handle}
	sess := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 2)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"orderId":"o1"}`)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`nope`)}
	close(claim.msgs)

	require.NoError(t, h.ConsumeClaim(sess, claim))
	assert.Equal(t, []string{"o1"}, ens.ids)
	assert.Equal(t, []int64{1, 2}, sess.marked)
}

func TestConsumeClaim_StopsOnHandlerError(t *testing.T) {
	ens := &fakeEnsurer{err: errors.New("storage down")}
	h := &cgHandler{handle: NewOrderCompletedHandler(ens).Handle}
	sess := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 2)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 5, Value: []byte(`{"orderId":"o5"}`)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 6, Value: []byte(`{"orderId":"o6"}`)}
	close(claim.msgs)

	assert.Error(t, h.ConsumeClaim(sess, claim))
	assert.Empty(t, sess.marked)
	assert.Equal(t, []string{"o5"}, ens.ids)
}

func TestConsumeClaim_SkipsOtherChannels(t *testing.T) {
	ens := &fakeEnsurer{}
	h := &cgHandler{handle: NewOrderCompletedHandler(ens).Handle}
	sess := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 2)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"orderId":"o1"}`),
		Headers: []*sarama.RecordHeader{{Key: []byte("channel"), Value: []byte("orders.refunded.v1")}}}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`{"orderId":"o2"}`),
		Headers: []*sarama.RecordHeader{{Key: []byte("channel"), Value: []byte(usecase.ChannelOrderCompleted)}}}
	close(claim.msgs)

	require.NoError(t, h.ConsumeClaim(sess, claim))
	assert.Equal(t, []string{"o2"}, ens.ids)
	assert.Equal(t, []int64{1, 2}, sess.marked)
}
