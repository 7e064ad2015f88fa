// Package kafkahandlers turns consumed domain events into websocket notifications.
package kafkahandlers

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog/log"

	"groupboard/internal/events"
	"groupboard/internal/metrics"
)

// Deliverer pushes a payload to every live connection of a user.
type Deliverer interface {
	Deliver(userID uint, payload []byte) bool
}

// MemberLister resolves the current members of a group.
type MemberLister interface {
	ListMemberUserIDs(ctx context.Context, groupID uint) ([]uint, error)
}

// EventHandler fans events out to the users they concern.
type EventHandler struct {
	hub     Deliverer
	members MemberLister
}

func NewEventHandler(hub Deliverer, members MemberLister) *EventHandler {
	return &EventHandler{hub: hub, members: members}
}

// HandleMessage is a kafka.MessageHandler. Undecodable messages are logged
// and skipped so they do not block the partition.
func (h *EventHandler) HandleMessage(ctx context.Context, msg *kafka.Message) error {
	e, err := events.Decode(msg.Value)
	if err != nil {
		log.Warn().Err(err).Str("offset", msg.TopicPartition.Offset.String()).Msg("skipping malformed event")
		return nil
	}
	return h.Handle(ctx, e, msg.Value)
}

// Handle delivers payload to the recipients of e.
func (h *EventHandler) Handle(ctx context.Context, e events.Event, payload []byte) error {
	recipients, err := h.recipients(ctx, e)
	if err != nil {
		return err
	}
	delivered := 0
	for _, userID := range recipients {
		if h.hub.Deliver(userID, payload) {
			delivered++
		}
	}
	metrics.EventsDelivered.WithLabelValues(string(e.Type)).Add(float64(delivered))
	log.Debug().Str("type", string(e.Type)).Uint("group_id", e.GroupID).Int("recipients", delivered).Msg("event fanned out")
	return nil
}

func (h *EventHandler) recipients(ctx context.Context, e events.Event) ([]uint, error) {
	switch e.Type {
	case events.InvitationCreated, events.MemberRemoved:
		if e.TargetUserID == 0 {
			return nil, nil
		}
		return []uint{e.TargetUserID}, nil
	case events.PostCreated, events.InvitationAccepted:
		ids, err := h.members.ListMemberUserIDs(ctx, e.GroupID)
		if err != nil {
			return nil, fmt.Errorf("list members of group %d: %w", e.GroupID, err)
		}
		out := ids[:0]
		for _, id := range ids {
			if id != e.ActorID {
				out = append(out, id)
			}
		}
		return out, nil
	default:
		log.Warn().Str("type", string(e.Type)).Msg("ignoring unknown event type")
		return nil, nil
	}
}
