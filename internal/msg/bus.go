// Package msg is the topic-based pub/sub bus carrying backend events to
// stream subscribers. No persistence, no replay, at-most-once per
// subscriber.
package msg

import (
	"context"

	"github.com/google/uuid"
)

// Bus publishes JSON payloads to every current subscriber of a topic.
// Topics are implicit, no registration before publish.
type Bus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription is a lazy stream of payloads arriving after the subscribe.
// The owner must Close it to free resources.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

func UserTopic(userID uuid.UUID) string   { return "user:" + userID.String() }
func GroupTopic(groupID uuid.UUID) string { return "group:" + groupID.String() }
func PartyTopic(partyID uuid.UUID) string { return "party:" + partyID.String() }
