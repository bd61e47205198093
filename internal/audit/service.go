// Package audit consumes the mirrored order-events topic and writes a
// structured audit trail. Replayed deliveries are filtered by event id.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
	"github.com/ariefcatur/go-marketplace.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Service struct {
	Redis       *redis.Client
	Log         *zap.Logger
	ServiceName string
}

// HandleEvent is wired as the consumer handler. Unknown event types are
// committed and skipped; a decode failure is surfaced so the offset stays
// uncommitted.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env market.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	fields := []zap.Field{
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType),
		zap.String("order_id", env.OrderID),
		zap.String("producer", env.Producer),
		zap.Time("occurred_at", env.OccurredAt),
		zap.String("topic", headerValue(m, "x-topic")),
	}

	switch env.EventType {
	case market.EventOrderStatusAudit:
		var p market.OrderStatusAuditPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		fields = append(fields,
			zap.String("actor_id", p.ActorID),
			zap.String("actor_role", string(p.ActorRole)),
			zap.String("from", string(p.From)),
			zap.String("to", string(p.To)),
		)
		s.Log.Info("admin status change", fields...)
	case market.EventNewOrder, market.EventOrderStatusChanged:
		s.Log.Info("order event", fields...)
	default:
		s.Log.Debug("unknown event type skipped", fields...)
	}
	return nil
}

func headerValue(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
