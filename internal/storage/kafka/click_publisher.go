package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/rajibhasenraju/modern-url-shortener/internal/events"
	"github.com/rajibhasenraju/modern-url-shortener/internal/processing/links"
)

// ClickPublisher publishes click events to a Kafka topic instead of writing
// them to the store directly. A consumer drains the topic into the click log,
// keeping the redirect path off the storage write.
type ClickPublisher struct {
	writer *kafka.Writer
	topic  string
}

func NewClickPublisher(brokers []string, topic string) *ClickPublisher {
	return &ClickPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func (p *ClickPublisher) Append(ctx context.Context, code string, event links.ClickEvent) error {
	payload := events.ClickRecorded{
		EventID:    uuid.NewString(),
		Code:       code,
		OccurredAt: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Country:    event.Country,
		Device:     event.Device,
		Browser:    event.Browser,
		Referrer:   event.Referrer,
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	tracer := otel.Tracer("click-publisher")
	ctx, span := tracer.Start(
		ctx,
		"kafka.publish.click_recorded",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.message.id", payload.EventID),
			attribute.String("messaging.kafka.message_key", code),
		),
	)
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(code),
		Value:   value,
		Time:    event.Timestamp.UTC(),
		Headers: carrierToHeaders(carrier),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		return err
	}
	return nil
}

func (p *ClickPublisher) Close() error {
	return p.writer.Close()
}

func carrierToHeaders(carrier propagation.MapCarrier) []kafka.Header {
	headers := make([]kafka.Header, 0, len(carrier))
	for _, key := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(carrier.Get(key))})
	}
	return headers
}
