package specialerror

import (
	"sync"

	"DMChat/tools/errs"
)

var (
	mu       sync.RWMutex
	handlers []func(err error) (errs.CodeError, bool)
)

// AddErrHandler registers a translator from a driver/library error into a
// CodeError. Handlers run in registration order after errs.As.
func AddErrHandler(h func(err error) (errs.CodeError, bool)) error {
	if h == nil {
		return errs.New("nil handler")
	}
	mu.Lock()
	handlers = append(handlers, h)
	mu.Unlock()
	return nil
}

// ErrCode resolves the CodeError behind err.
func ErrCode(err error) (errs.CodeError, bool) {
	if err == nil {
		return errs.CodeError{}, false
	}
	if ce, ok := errs.As(err); ok {
		return ce, true
	}
	mu.RLock()
	defer mu.RUnlock()
	for _, h := range handlers {
		if ce, ok := h(err); ok {
			return ce, true
		}
	}
	return errs.CodeError{}, false
}

func reset() {
	mu.Lock()
	handlers = nil
	mu.Unlock()
}
