package specialerror

import (
	"errors"
	"testing"

	"DMChat/tools/errs"
)

var errDup = errors.New("E11000 duplicate key")

func TestErrCode(t *testing.T) {
	t.Cleanup(reset)

	if _, ok := ErrCode(errDup); ok {
		t.Fatal("no handler registered yet")
	}
	if err := AddErrHandler(nil); err == nil {
		t.Error("nil handler must be rejected")
	}
	_ = AddErrHandler(func(err error) (errs.CodeError, bool) {
		if errors.Is(err, errDup) {
			return errs.ErrRecordExist, true
		}
		return errs.CodeError{}, false
	})

	ce, ok := ErrCode(errDup)
	if !ok || ce.Code != errs.RecordExistError {
		t.Errorf("ErrCode(dup) = %v, %v", ce, ok)
	}

	ce, ok = ErrCode(errs.ErrUserNotFound.WrapMsg("lookup", "id", "x"))
	if !ok || ce.Code != errs.RecordNotFoundError {
		t.Errorf("wrapped code error not resolved: %v, %v", ce, ok)
	}
	if _, ok := ErrCode(nil); ok {
		t.Error("nil must not resolve")
	}
}
