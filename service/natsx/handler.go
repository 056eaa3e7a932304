package natsx

import (
	"context"
	"encoding/json"

	"DMChat/tools/errs"

	"github.com/pkg/errors"
)

// NatsxMessage is one delivery: subject, body and flattened headers.
type NatsxMessage struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

// MsgID returns the dedup id the producer stamped, or "".
func (m NatsxMessage) MsgID() string { return m.Header[MsgIDHeader] }

type NatsxHandler func(ctx context.Context, msg NatsxMessage) error

// NatsxMiddleware wraps a handler (dedup, recovery).
type NatsxMiddleware func(NatsxHandler) NatsxHandler

// NatsxChain applies mws so that mws[0] runs outermost.
func NatsxChain(h NatsxHandler, mws ...NatsxMiddleware) NatsxHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NatsxRecover turns a handler panic into an error so the subscription survives.
func NatsxRecover() NatsxMiddleware {
	return func(next NatsxHandler) NatsxHandler {
		return func(ctx context.Context, msg NatsxMessage) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errs.ErrPanic(r)
				}
			}()
			return next(ctx, msg)
		}
	}
}

// JSONHandler decodes the body into T before calling fn.
func JSONHandler[T any](fn func(ctx context.Context, v *T, msg NatsxMessage) error) NatsxHandler {
	return func(ctx context.Context, msg NatsxMessage) error {
		v := new(T)
		if err := json.Unmarshal(msg.Data, v); err != nil {
			return errors.Wrapf(err, "decode %s", msg.Subject)
		}
		return fn(ctx, v, msg)
	}
}
