package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind - класс ошибки сессии. Только KindSessionExpired меняет состояние сессии.
type Kind int

// Классы ошибок.
const (
	KindUnknown Kind = iota
	KindTransient
	KindAuthRejected
	KindSessionExpired
	KindClientError
	KindMalformedResponse
	KindNotAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient failure"
	case KindAuthRejected:
		return "access token rejected"
	case KindSessionExpired:
		return "session expired"
	case KindClientError:
		return "client error"
	case KindMalformedResponse:
		return "malformed response"
	case KindNotAuthenticated:
		return "not authenticated"
	default:
		return "unknown error"
	}
}

// Сентинелы для сопоставления через errors.Is.
var (
	ErrTransient         = errors.New(KindTransient.String())
	ErrAuthRejected      = errors.New(KindAuthRejected.String())
	ErrSessionExpired    = errors.New(KindSessionExpired.String())
	ErrClientError       = errors.New(KindClientError.String())
	ErrMalformedResponse = errors.New(KindMalformedResponse.String())
	ErrNotAuthenticated  = errors.New(KindNotAuthenticated.String())

	// ErrTimeout - причина Transient-ошибки, когда истек таймаут запроса.
	ErrTimeout = errors.New("request timed out")
)

var kindSentinels = map[Kind]error{
	KindTransient:         ErrTransient,
	KindAuthRejected:      ErrAuthRejected,
	KindSessionExpired:    ErrSessionExpired,
	KindClientError:       ErrClientError,
	KindMalformedResponse: ErrMalformedResponse,
	KindNotAuthenticated:  ErrNotAuthenticated,
}

// Error - классифицированная ошибка сессии или запроса.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Body       []byte
	Err        error
}

// NewError создает ошибку заданного класса.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с сентинелом ее класса.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf возвращает класс ошибки или KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FromStatus классифицирует ответ обернутого вызова по статусу.
// Для успешных статусов возвращает nil.
func FromStatus(op string, status int, body []byte) *Error {
	var kind Kind
	switch {
	case status < http.StatusBadRequest:
		return nil
	case status == http.StatusUnauthorized:
		kind = KindAuthRejected
	case status >= http.StatusInternalServerError:
		kind = KindTransient
	default:
		kind = KindClientError
	}
	return &Error{Kind: kind, Op: op, StatusCode: status, Body: body}
}

// FromTransport классифицирует сбой транспорта. Таймауты получают причину ErrTimeout.
// Уже классифицированная ошибка возвращается как есть.
func FromTransport(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) && classified.Kind != KindUnknown {
		return classified
	}
	if isTimeout(err) {
		return &Error{Kind: KindTransient, Op: op, Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
	}
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// FromContext классифицирует отмену или истечение контекста вызывающего.
func FromContext(op string, err error) *Error {
	return FromTransport(op, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
