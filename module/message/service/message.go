package service

import (
	"context"
	"time"

	"DMChat/logger"
	"DMChat/module/message/model"
	"DMChat/module/message/store"
	"DMChat/module/upload"
	usermodel "DMChat/module/user/model"
	"DMChat/service/chat"
	"DMChat/tools/errs"
	"DMChat/tools/safe"

	"go.uber.org/zap"
)

var ErrNoReceiver = errs.NewCodeError(errs.ArgsError, "Receiver is required.")

// Dispatcher pushes a committed message to its receiver.
type Dispatcher interface {
	Dispatch(msg *model.Message) <-chan chat.DispatchResult
}

// EventPublisher announces created messages to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, v any, msgID string) error
}

// UserLister lists sidebar users.
type UserLister interface {
	Others(ctx context.Context, id string) ([]*usermodel.User, error)
}

// AttachmentInput is a raw payload as sent by the client.
type AttachmentInput struct {
	Data string `json:"data"`
	Type string `json:"type"`
}

type Service struct {
	store      store.Store
	uploader   upload.Uploader
	dispatcher Dispatcher
	users      UserLister
	events     EventPublisher // optional
}

func NewService(st store.Store, up upload.Uploader, d Dispatcher, users UserLister, events EventPublisher) *Service {
	safe.MustNotNil(st, "message store")
	safe.MustNotNil(up, "uploader")
	safe.MustNotNil(d, "dispatcher")
	safe.MustNotNil(users, "user lister")
	return &Service{store: st, uploader: up, dispatcher: d, users: users, events: events}
}

// Send uploads every attachment, persists the message and only then pushes it.
// Any upload failure aborts the send before anything is stored, and files
// already written for it are removed. Attachments missing data or type are
// skipped; an empty text is stored as "".
func (s *Service) Send(ctx context.Context, senderID, receiverID, text string, in []AttachmentInput) (*model.Message, error) {
	if receiverID == "" {
		return nil, ErrNoReceiver.Wrap()
	}
	atts := make([]model.Attachment, 0, len(in))
	for i, a := range in {
		if a.Data == "" || a.Type == "" {
			continue
		}
		att, err := s.uploader.Upload(ctx, a.Data, a.Type)
		if err != nil {
			s.discard(atts)
			return nil, errs.ErrUploadFailed.WrapMsg(err.Error(), "index", i)
		}
		atts = append(atts, att)
	}

	msg, err := s.store.CreateMessage(ctx, senderID, receiverID, text, atts)
	if err != nil {
		s.discard(atts)
		return nil, err
	}

	res := <-s.dispatcher.Dispatch(msg)
	logger.Debug("message sent", zap.String("msg", msg.ID), zap.String("from", senderID), zap.String("to", receiverID), zap.Bool("pushed", res.Delivered))

	if s.events != nil {
		s.publish(msg)
	}
	return msg, nil
}

// discard removes attachments of a send that did not commit.
func (s *Service) discard(atts []model.Attachment) {
	if len(atts) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, a := range atts {
		if err := s.uploader.Remove(ctx, a); err != nil {
			logger.Warn("remove orphaned upload", zap.String("url", a.URL), zap.Error(err))
		}
	}
}

func (s *Service) publish(msg *model.Message) {
	safe.SafeGo("publish message.created", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, msg, msg.ID); err != nil {
			logger.Warn("publish message event failed", zap.String("msg", msg.ID), zap.Error(err))
		}
	})
}

// History returns the conversation with peer, then marks peer's messages to me as read.
func (s *Service) History(ctx context.Context, me, peer string) ([]*model.Message, error) {
	msgs, err := s.store.FindMessagesBetween(ctx, me, peer)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.MarkRead(ctx, peer, me); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead marks every unread message from peer to me as read.
func (s *Service) MarkRead(ctx context.Context, me, peer string) (int64, error) {
	return s.store.MarkRead(ctx, peer, me)
}

// UsersWithUnread lists the other users plus the unread count from each
// sender that has at least one unread message.
func (s *Service) UsersWithUnread(ctx context.Context, me string) ([]*usermodel.User, map[string]int64, error) {
	users, err := s.users.Others(ctx, me)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.store.UnreadBySender(ctx, me)
	if err != nil {
		return nil, nil, err
	}
	unread := make(map[string]int64)
	for _, u := range users {
		if n := counts[u.ID]; n > 0 {
			unread[u.ID] = n
		}
	}
	return users, unread, nil
}
