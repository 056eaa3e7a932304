package model

import "time"

const MessageTableName = "messages"

// Attachment types accepted by the uploader; anything else is stored as a file.
const (
	AttachmentImage = "image"
	AttachmentVideo = "video"
	AttachmentFile  = "file"
)

// Attachment is an uploaded file referenced by a message.
type Attachment struct {
	URL  string `bson:"url" json:"url"`
	Type string `bson:"type" json:"type"`
}

// Message 一条单聊消息。
// Immutable after creation except IsRead, which only goes false -> true.
type Message struct {
	ID          string       `bson:"_id" json:"_id"`
	SenderID    string       `bson:"sender" json:"sender"`
	ReceiverID  string       `bson:"receiver" json:"receiver"`
	Content     string       `bson:"content" json:"content"`
	Attachments []Attachment `bson:"attachments" json:"attachments"`
	IsRead      bool         `bson:"isRead" json:"isRead"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updatedAt"`
}

func (m *Message) GetTableName() string { return MessageTableName }

// Between reports whether m belongs to the conversation of a and b.
func (m *Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// PartitionKey is the conversation key, identical for both directions, so
// downstream partitions keep a conversation in order.
func (m *Message) PartitionKey() string {
	a, b := m.SenderID, m.ReceiverID
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
