package store

import (
	"context"

	"DMChat/module/message/model"
)

// Store persists direct messages. Implementations must be safe for concurrent use.
type Store interface {
	// CreateMessage assigns id and timestamps; the message is unread.
	CreateMessage(ctx context.Context, senderID, receiverID, content string, attachments []model.Attachment) (*model.Message, error)
	// FindMessagesBetween returns both directions, oldest first.
	FindMessagesBetween(ctx context.Context, a, b string) ([]*model.Message, error)
	// MarkRead flips every unread sender -> receiver message and returns how many changed.
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	CountUnread(ctx context.Context, senderID, receiverID string) (int64, error)
	// UnreadBySender counts unread messages addressed to receiver, keyed by sender.
	UnreadBySender(ctx context.Context, receiverID string) (map[string]int64, error)
}
