package notify

import (
	"context"
	"sync"
	"sync/atomic"

	sarama "github.com/IBM/sarama"
)

type kafkaSubscription struct {
	pc      sarama.PartitionConsumer
	waiters []*subscription
}

// KafkaBus implements Bus using a Kafka backend. Each key maps to a topic;
// wakeups are consumed from the newest offset only, matching the bus
// contract that signals are transient.
type KafkaBus struct {
	producer sarama.SyncProducer
	consumer sarama.Consumer

	mu        sync.Mutex
	subs      map[string]*kafkaSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewKafkaBus creates a new KafkaBus connecting to the given brokers.
func NewKafkaBus(brokers []string, cfg *sarama.Config) (*KafkaBus, error) {
	if !cfg.Producer.Return.Successes {
		cfg.Producer.Return.Successes = true
	}
	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = producer.Close()
		_ = client.Close()
		return nil, err
	}
	return &KafkaBus{
		producer: producer,
		consumer: consumer,
		subs:     make(map[string]*kafkaSubscription),
	}, nil
}

// Publish implements Bus.Publish.
func (b *KafkaBus) Publish(ctx context.Context, key string) error {
	msg := &sarama.ProducerMessage{Topic: key, Value: sarama.StringEncoder("1")}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Subscribe implements Bus.Subscribe. One partition consumer per topic is
// shared by all local waiters.
func (b *KafkaBus) Subscribe(ctx context.Context, key string) (chan struct{}, error) {
	w := newSubscription()
	b.mu.Lock()
	sub := b.subs[key]
	if sub == nil {
		pc, err := b.consumer.ConsumePartition(key, 0, sarama.OffsetNewest)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		sub = &kafkaSubscription{pc: pc}
		b.subs[key] = sub
		go b.dispatch(key, pc)
	}
	sub.waiters = append(sub.waiters, w)
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = b.Unsubscribe(context.Background(), key, w.ch)
		case <-w.done:
		}
	}()
	return w.ch, nil
}

// dispatch fans Kafka messages out to local waiters. It sends while holding
// the bus mutex so Unsubscribe cannot close a channel mid-send.
func (b *KafkaBus) dispatch(key string, pc sarama.PartitionConsumer) {
	for range pc.Messages() {
		b.mu.Lock()
		sub := b.subs[key]
		if sub == nil {
			b.mu.Unlock()
			return
		}
		for _, w := range sub.waiters {
			select {
			case w.ch <- struct{}{}:
				b.delivered.Add(1)
			default:
			}
		}
		b.mu.Unlock()
	}
}

// Unsubscribe implements Bus.Unsubscribe. The partition consumer is closed
// when the last local waiter leaves.
func (b *KafkaBus) Unsubscribe(ctx context.Context, key string, ch chan struct{}) error {
	b.mu.Lock()
	sub := b.subs[key]
	if sub == nil {
		b.mu.Unlock()
		return nil
	}
	for i, w := range sub.waiters {
		if w.ch == ch {
			sub.waiters[i] = sub.waiters[len(sub.waiters)-1]
			sub.waiters = sub.waiters[:len(sub.waiters)-1]
			close(w.done)
			close(w.ch)
			break
		}
	}
	if len(sub.waiters) == 0 {
		delete(b.subs, key)
		b.mu.Unlock()
		return sub.pc.Close()
	}
	b.mu.Unlock()
	return nil
}

// Stats returns the published and delivered counts.
func (b *KafkaBus) Stats() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}

// Close releases resources used by the KafkaBus.
func (b *KafkaBus) Close() {
	_ = b.producer.Close()
	_ = b.consumer.Close()
}
