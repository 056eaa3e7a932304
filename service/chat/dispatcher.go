package chat

import (
	"DMChat/logger"
	"DMChat/module/message/model"
	"DMChat/tools/safe"

	"go.uber.org/zap"
)

// DispatchResult tells whether the receiver had a live socket when the
// message was pushed.
type DispatchResult struct {
	MessageID string
	Delivered bool
}

// Dispatcher pushes freshly persisted messages to their receiver.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(reg *Registry) *Dispatcher {
	safe.MustNotNil(reg, "registry")
	return &Dispatcher{registry: reg}
}

// Dispatch must be called once per message, after it was committed. An
// offline receiver is not an error. Queuing never blocks, so the result is
// ready on return; callers may ignore the channel.
func (d *Dispatcher) Dispatch(msg *model.Message) <-chan DispatchResult {
	out := make(chan DispatchResult, 1)
	defer close(out)

	res := DispatchResult{MessageID: msg.ID}
	if c, ok := d.registry.Lookup(msg.ReceiverID); ok {
		res.Delivered = c.Emit(EventNewMessage, msg)
		if !res.Delivered {
			logger.Warn("newMessage not queued", zap.String("msg", msg.ID), zap.String("receiver", msg.ReceiverID))
		}
	}
	out <- res
	return out
}
