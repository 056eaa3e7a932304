package errs

import "net/http"

// Codes double as HTTP status codes so handlers can answer with e.Code directly.
const (
	ArgsError           = http.StatusBadRequest
	TokenInvalidError   = http.StatusUnauthorized
	PasswordError       = http.StatusUnauthorized
	RecordNotFoundError = http.StatusNotFound
	RecordExistError    = http.StatusConflict
	ServerInternalError = http.StatusInternalServerError
)

var (
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrTokenMissing   = NewCodeError(TokenInvalidError, "Authorization header missing or malformed.")
	ErrTokenInvalid   = NewCodeError(TokenInvalidError, "Token is not valid.")
	ErrPassword       = NewCodeError(PasswordError, "Invalid password.")
	ErrUserNotFound   = NewCodeError(RecordNotFoundError, "User not found.")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFound")
	ErrRecordExist    = NewCodeError(RecordExistError, "RecordExist")
	ErrUsernameTaken  = NewCodeError(RecordExistError, "Username already taken.")
	ErrUploadFailed   = NewCodeError(ServerInternalError, "upload failed")
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
)

// Status resolves the HTTP status for err; anything that is not a CodeError is a 500.
func Status(err error) int {
	if ce, ok := As(err); ok && ce.Code >= 400 && ce.Code < 600 {
		return ce.Code
	}
	return http.StatusInternalServerError
}
