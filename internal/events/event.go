// Package events defines the domain events published after successful
// workflows and the publishers that carry them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"groupboard/internal/kafka"
)

// Type names a domain event.
type Type string

const (
	PostCreated        Type = "post.created"
	InvitationCreated  Type = "invitation.created"
	InvitationAccepted Type = "invitation.accepted"
	MemberRemoved      Type = "member.removed"
)

// Event is the payload written to the events topic and pushed to clients.
type Event struct {
	Type    Type `json:"type"`
	GroupID uint `json:"groupId"`
	ActorID uint `json:"actorId"`
	// SubjectID is the post or invitation id, when the event has one.
	SubjectID    uint      `json:"subjectId,omitempty"`
	TargetUserID uint      `json:"targetUserId,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Decode parses an event payload.
func Decode(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" || e.GroupID == 0 {
		return Event{}, fmt.Errorf("decode event: missing type or group")
	}
	return e, nil
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// KafkaPublisher writes events to one topic keyed by group, so events of a
// group stay ordered within a partition.
type KafkaPublisher struct {
	producer kafka.MessageProducer
	topic    string
}

func NewKafkaPublisher(producer kafka.MessageProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	key := []byte(strconv.FormatUint(uint64(e.GroupID), 10))
	return p.producer.SendMessage(ctx, p.topic, key, payload)
}
