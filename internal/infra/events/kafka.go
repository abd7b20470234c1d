package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"shopcore/internal/domain/model"

	kafkaGo "github.com/segmentio/kafka-go"
)

// messageWriter は kafka.Writer のうち使う部分だけ
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// KafkaPublisher はインタラクションイベントを kafka に送る。
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafkaGo.Writer{
		Addr:         kafkaGo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkaGo.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafkaGo.RequireOne,
	}
	return &KafkaPublisher{w: w, topic: topic}
}

// 商品IDをキーにして同じ商品のイベントを同じパーティションへ
func (p *KafkaPublisher) Publish(ctx context.Context, ev model.InteractionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.w.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(strconv.FormatInt(ev.ProductID, 10)),
		Value: payload,
		Headers: []kafkaGo.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// LogPublisher はブローカー未設定のときに使う（ログに出すだけ）
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev model.InteractionEvent) error {
	p.logger.InfoContext(ctx, "interaction",
		"type", ev.Type,
		"actor_id", ev.ActorID,
		"actor_kind", ev.ActorKind,
		"product_id", ev.ProductID,
		"quantity", ev.Quantity,
		"order_id", ev.OrderID,
	)
	return nil
}
