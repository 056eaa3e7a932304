package mongoutil

import (
	"context"
	"errors"

	"DMChat/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
)

// server error codes that no retry can fix
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// shouldRetry reports whether a connect error is worth another attempt.
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code != codeUnauthorized && cmdErr.Code != codeAuthenticationFailed
	}
	return true
}

func IsNotFound(err error) bool { return errors.Is(err, mongo.ErrNoDocuments) }

func IsDuplicateKey(err error) bool { return mongo.IsDuplicateKeyError(err) }

// CodeErrorOf maps driver errors that carry business meaning onto CodeErrors.
// Register it with specialerror.AddErrHandler.
func CodeErrorOf(err error) (errs.CodeError, bool) {
	switch {
	case IsNotFound(err):
		return errs.ErrRecordNotFound, true
	case IsDuplicateKey(err):
		return errs.ErrRecordExist, true
	}
	return errs.CodeError{}, false
}
