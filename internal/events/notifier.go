package events

import (
	"context"
	"log"

	kafkax "github.com/ariefcatur/go-commerce-core.git/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
)

// Notifier di-inject ke komponen yang perlu emit event; jangan singleton global.
// Delivery ke subscriber urusan broker, bukan urusan core.
type Notifier interface {
	Publish(ctx context.Context, topic string, key []byte, env Envelope)
}

// KafkaNotifier: satu producer per topic, gaya async buffered.
type KafkaNotifier struct {
	producers map[string]*kafkax.Producer
}

func NewKafkaNotifier(brokers []string, buf int, topics ...string) *KafkaNotifier {
	ps := make(map[string]*kafkax.Producer, len(topics))
	for _, t := range topics {
		ps[t] = kafkax.NewProducer(brokers, t, buf)
	}
	return &KafkaNotifier{producers: ps}
}

func (n *KafkaNotifier) Start(ctx context.Context) {
	for _, p := range n.producers {
		p.Start(ctx)
	}
}

func (n *KafkaNotifier) Publish(ctx context.Context, topic string, key []byte, env Envelope) {
	p, ok := n.producers[topic]
	if !ok {
		log.Printf("notifier: topic tidak terdaftar: %s", topic)
		return
	}
	p.Publish(key, kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (n *KafkaNotifier) Close() {
	for _, p := range n.producers {
		p.Close()
	}
}

func (n *KafkaNotifier) WaitClosed() {
	for _, p := range n.producers {
		p.WaitClosed()
	}
}

// NopNotifier buat test / wiring tanpa broker.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, string, []byte, Envelope) {}
