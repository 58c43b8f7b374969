package apperr

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Kind 封闭的业务错误分类
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidCredentials
	KindAccountDisabled
	KindEmailNotVerified
	KindDuplicateIdentifier
	KindInvalidToken
	KindExpiredToken
	KindInvalidRole
	KindLastAdminProtection
	KindNotFound
	KindHashing
	KindTransientDependency
	KindBadRequest
	KindForbidden
)

// Error 对外暴露 user-safe 的 message，内部 err 只进日志。
// CorrelationID + At 供排障串联。
type Error struct {
	Kind          Kind
	Msg           string
	Err           error
	CorrelationID string
	At            time.Time
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, CorrelationID: uuid.NewString(), At: time.Now()}
}

func Wrap(kind Kind, msg string, err error) *Error {
	e := New(kind, msg)
	e.Err = err
	return e
}

func InvalidCredentials() *Error {
	return New(KindInvalidCredentials, "invalid credentials")
}

func AccountDisabled() *Error {
	return New(KindAccountDisabled, "account is disabled, contact an administrator")
}

func EmailNotVerified() *Error {
	return New(KindEmailNotVerified, "email must be verified before logging in")
}

func DuplicateIdentifier(msg string) *Error {
	return New(KindDuplicateIdentifier, msg)
}

func Forbidden(msg string) *Error     { return New(KindForbidden, msg) }
func InvalidToken(msg string) *Error  { return New(KindInvalidToken, msg) }
func ExpiredToken(msg string) *Error  { return New(KindExpiredToken, msg) }
func InvalidRole(msg string) *Error   { return New(KindInvalidRole, msg) }
func NotFound(msg string) *Error      { return New(KindNotFound, msg) }
func BadRequest(msg string) *Error    { return New(KindBadRequest, msg) }
func Internal(err error) *Error       { return Wrap(KindInternal, "internal error", err) }
func Hashing(err error) *Error        { return Wrap(KindHashing, "could not process password", err) }

func LastAdminProtection() *Error {
	return New(KindLastAdminProtection, "cannot remove the last administrator")
}

func Transient(msg string, err error) *Error {
	return Wrap(KindTransientDependency, msg, err)
}

// KindOf 非 *Error 一律归为 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus Kind → HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindBadRequest, KindInvalidRole:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindInvalidToken, KindExpiredToken:
		return http.StatusUnauthorized
	case KindEmailNotVerified, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateIdentifier, KindLastAdminProtection:
		return http.StatusConflict
	case KindAccountDisabled:
		return http.StatusLocked
	case KindTransientDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
