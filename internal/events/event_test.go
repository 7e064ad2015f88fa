package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type recordingProducer struct {
	topic   string
	key     []byte
	payload []byte
	err     error
}

func (r *recordingProducer) SendMessage(_ context.Context, topic string, key []byte, payload []byte) error {
	r.topic, r.key, r.payload = topic, key, payload
	return r.err
}

func (r *recordingProducer) Close() {}

func TestKafkaPublisherKeysByGroup(t *testing.T) {
	prod := &recordingProducer{}
	pub := NewKafkaPublisher(prod, "events")

	err := pub.Publish(context.Background(), Event{Type: PostCreated, GroupID: 9, ActorID: 3, SubjectID: 11})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if prod.topic != "events" || string(prod.key) != "9" {
		t.Fatalf("topic = %q key = %q", prod.topic, prod.key)
	}

	got, err := Decode(prod.payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Type != PostCreated || got.SubjectID != 11 || got.OccurredAt.IsZero() {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestKafkaPublisherPropagatesErrors(t *testing.T) {
	prod := &recordingProducer{err: errors.New("broker down")}
	if err := NewKafkaPublisher(prod, "events").Publish(context.Background(), Event{Type: MemberRemoved, GroupID: 1}); err == nil {
		t.Fatal("Publish() error = nil, want producer error")
	}
}

func TestDecodeRejectsIncompleteEvents(t *testing.T) {
	for _, payload := range []string{`not json`, `{"type":"post.created"}`, `{"groupId":3}`} {
		if _, err := Decode([]byte(payload)); err == nil {
			t.Errorf("Decode(%s) error = nil", payload)
		}
	}
	b, _ := json.Marshal(Event{Type: InvitationCreated, GroupID: 2, TargetUserID: 5})
	if _, err := Decode(b); err != nil {
		t.Errorf("Decode(valid) error = %v", err)
	}
}
