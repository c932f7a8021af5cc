package errors

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrTaskNotFound = errors.New("task not found")
	ErrNameInUse    = errors.New("user name already in use")
	ErrEmailInUse   = errors.New("user email already in use")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrStaleToken         = errors.New("token does not match the stored user")

	ErrMissingJWTSecret     = errors.New("jwt secret is not configured")
	ErrConfigFileReadFailed = errors.New("failed to read config file")
	ErrConfigParseFailed    = errors.New("failed to parse config file")
	ErrConfigInvalidFormat  = errors.New("invalid config value")

	ErrDatabaseConnection = errors.New("database connection failed")
	ErrInternalServer     = errors.New("internal server error")
)
