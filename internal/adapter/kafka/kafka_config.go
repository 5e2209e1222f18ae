package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

func baseConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_6_0_0
	cfg.Net.DialTimeout = 5 * time.Second
	return cfg
}

func NewGroup(brokers []string, clientID, groupID string) (sarama.ConsumerGroup, error) {
	cfg := baseConfig(clientID)
	cfg.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRange()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	return sarama.NewConsumerGroup(brokers, groupID, cfg)
}

// ProducerConfig waits for all in-sync replicas, which the outbox relay
// relies on before marking a record sent.
func ProducerConfig(clientID string) *sarama.Config {
	cfg := baseConfig(clientID)
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func NewSyncProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	return sarama.NewSyncProducer(brokers, ProducerConfig(clientID))
}
