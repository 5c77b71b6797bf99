package gate

import "errors"

type Kind string

const (
	KindValidation   Kind = "validation"
	KindAuth         Kind = "auth"
	KindConnectivity Kind = "connectivity"
	KindBackend      Kind = "backend"
)

const (
	ErrMissingCredentials = "missing_credentials"
	ErrInvalidCredentials = "invalid_credentials"
	ErrMaintenanceActive  = "maintenance_active"
	ErrOffline            = "offline"
	ErrConnectionError    = "connection_error"
	ErrInvalidPin         = "invalid_pin"
	ErrNoPendingUpdate    = "no_pending_update"
	ErrAdminLocked        = "admin_locked"
	ErrForbidden          = "forbidden"
	ErrUnknownFeature     = "unknown_feature"
	ErrInvalidRequest     = "invalid_request"
	ErrNotFound           = "not_found"
	ErrUserExists         = "user_exists"
	ErrBackend            = "backend_error"
	ErrRefreshFailed      = "refresh_failed"
)

// Error is a user-facing failure. Message is the inline text shown to the
// user; Err keeps the underlying cause for logging.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Auth(code, message string) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: message}
}

func Offline(message string) *Error {
	return &Error{Kind: KindConnectivity, Code: ErrOffline, Message: message}
}

func Backend(code, message string, err error) *Error {
	return &Error{Kind: KindBackend, Code: code, Message: message, Err: err}
}

// As extracts a *Error from err.
func As(err error) (*Error, bool) {
	var gateErr *Error
	if errors.As(err, &gateErr) {
		return gateErr, true
	}
	return nil, false
}

// IsCode reports whether err is a gate error carrying code.
func IsCode(err error, code string) bool {
	gateErr, ok := As(err)
	return ok && gateErr.Code == code
}
