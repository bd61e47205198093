package kafkax

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/go-marketplace.git/internal/fanout"
	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Bridge mirrors every event published on the in-process fanout bus to the
// external order-events topic, partitioned by order id. Losing a mirrored
// event is acceptable; the ledger remains the source of truth.
type Bridge struct {
	prod *Producer
	tap  *fanout.Tap
	log  *zap.Logger
}

func NewBridge(prod *Producer, bus *fanout.Bus, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{prod: prod, tap: bus.Tap(), log: log}
}

// Run pumps the firehose tap into the producer until ctx is cancelled or
// the bus closes.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.tap.Cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-b.tap.Events():
			if !ok {
				return nil
			}
			value, err := json.Marshal(ev.Envelope)
			if err != nil {
				b.log.Error("encode envelope", zap.Error(err))
				continue
			}
			b.prod.Publish(market.PartitionKey(ev.Envelope.OrderID), value,
				kafka.Header{Key: "x-topic", Value: []byte(ev.Topic)},
				kafka.Header{Key: "x-event-type", Value: []byte(ev.Envelope.EventType)},
				kafka.Header{Key: "x-event-version", Value: []byte("1")},
			)
		}
	}
}
