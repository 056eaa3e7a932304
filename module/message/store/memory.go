package store

import (
	"context"
	"sync"
	"time"

	"DMChat/module/message/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps messages in insertion order. Used when no MongoDB is configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	msgs []*model.Message
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) CreateMessage(ctx context.Context, senderID, receiverID, content string, attachments []model.Attachment) (*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.now()
	m := &model.Message{
		ID:          primitive.NewObjectIDFromTimestamp(now).Hex(),
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     content,
		Attachments: append([]model.Attachment{}, attachments...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
	return clone(m), nil
}

func (s *MemoryStore) FindMessagesBetween(ctx context.Context, a, b string) ([]*model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Message, 0)
	for _, m := range s.msgs {
		if m.Between(a, b) {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.msgs {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.IsRead {
			m.IsRead = true
			m.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountUnread(ctx context.Context, senderID, receiverID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.msgs {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UnreadBySender(ctx context.Context, receiverID string) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64)
	for _, m := range s.msgs {
		if m.ReceiverID == receiverID && !m.IsRead {
			out[m.SenderID]++
		}
	}
	return out, nil
}

func clone(m *model.Message) *model.Message {
	c := *m
	c.Attachments = append([]model.Attachment{}, m.Attachments...)
	return &c
}
