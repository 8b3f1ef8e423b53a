package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/anon-inbox/internal/core/domain"
	"github.com/arklim/anon-inbox/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()
	producer := NewProducerFrom(asyncProducer, "inbox", zaptest.NewLogger(t))
	t.Cleanup(func() { _ = producer.Close() })

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "anon-inbox",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func receiveEnvelope(t *testing.T, asyncProducer *fakeAsyncProducer) (*sarama.ProducerMessage, map[string]any) {
	t.Helper()

	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
	return nil, nil
}

func TestPublishMessageReceived(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	receivedAt := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)
	event := domain.MessageReceivedEvent{
		EventID:    "event-123",
		UserID:     "user-789",
		MessageID:  "msg-456",
		ReceivedAt: receivedAt,
	}

	if err := publisher.PublishMessageReceived(context.Background(), event); err != nil {
		t.Fatalf("PublishMessageReceived returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)

	if msg.Topic != "inbox.message.received" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}

	key, err := msg.Key.Encode()
	if err != nil {
		t.Fatalf("Key.Encode returned error: %v", err)
	}
	if string(key) != event.UserID {
		t.Fatalf("expected record keyed by user id, got %s", key)
	}

	if got := envelope["event_type"]; got != EventMessageReceived {
		t.Fatalf("unexpected event_type: %v", got)
	}
	if got := envelope["event_id"]; got != event.EventID {
		t.Fatalf("unexpected event_id: %v", got)
	}

	timestamp, ok := envelope["timestamp"].(string)
	if !ok {
		t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
	}
	if timestamp != receivedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %s", timestamp)
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if got := payload["message_id"]; got != event.MessageID {
		t.Fatalf("unexpected message_id: %v", got)
	}
	if _, leaked := payload["content"]; leaked {
		t.Fatalf("message content must not be published")
	}

	envelopeMetadata, ok := envelope["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
	}
	if envelopeMetadata["service"] != "anon-inbox" {
		t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
	}
	if envelopeMetadata["environment"] != "test" {
		t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
	}
}

func TestPublishUserRegisteredCarriesMaskedEmailOnly(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	event := domain.UserRegisteredEvent{
		UserID:       "user-1",
		Username:     "alice",
		MaskedEmail:  "ali***@example.com",
		RegisteredAt: time.Now().UTC(),
		CodeExpires:  time.Now().UTC().Add(time.Hour),
	}

	if err := publisher.PublishUserRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishUserRegistered returned error: %v", err)
	}

	msg, envelope := receiveEnvelope(t, asyncProducer)
	if msg.Topic != "inbox.user.registered" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatalf("expected generated event id")
	}

	payload := envelope["payload"].(map[string]any)
	if payload["masked_email"] != "ali***@example.com" {
		t.Fatalf("unexpected masked_email: %v", payload["masked_email"])
	}
	if _, ok := payload["email"]; ok {
		t.Fatalf("raw email must not be published")
	}
}

func TestPublishRespectsContextCancellation(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	// fill the single-slot buffer so the next publish blocks
	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishAcceptanceChanged(ctx, domain.AcceptanceChangedEvent{UserID: "user-1"})
	if err == nil {
		t.Fatal("expected context error when producer input is blocked")
	}
}

func TestTopicName(t *testing.T) {
	producer := &Producer{prefix: "inbox"}

	if got := producer.TopicName(EventUserVerified); got != "inbox.user.verified" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := producer.TopicName("inbox.user.verified"); got != "inbox.user.verified" {
		t.Fatalf("prefix should not be doubled: %s", got)
	}

	bare := &Producer{}
	if got := bare.TopicName(EventMessageDeleted); got != EventMessageDeleted {
		t.Fatalf("unexpected topic without prefix: %s", got)
	}
}
