// Package apperr описывает таксономию ошибок бизнес-логики биллинга.
//
// Каждая ошибка несёт вид (Kind), по которому HTTP-слой выбирает код ответа,
// имя операции, сообщение для клиента и исходную причину.
package apperr

import (
	"errors"
	"fmt"
)

// Kind вид ошибки бизнес-логики.
type Kind string

const (
	Unauthenticated Kind = "unauthenticated"
	Forbidden       Kind = "forbidden"
	NotFound        Kind = "not_found"
	Conflict        Kind = "conflict"
	InvalidInput    Kind = "invalid_input"
	InvalidState    Kind = "invalid_state"
	Internal        Kind = "internal"
)

// Error ошибка с видом, операцией и сообщением для клиента.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// New создаёт ошибку заданного вида без исходной причины.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap создаёт ошибку заданного вида поверх исходной причины.
func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибки по виду: errors.Is(err, apperr.New(apperr.NotFound, "", "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf возвращает вид ошибки. Ошибки вне таксономии считаются Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message возвращает сообщение, безопасное для отправки клиенту.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Msg
	}
	return "internal error"
}

// IsKind сообщает, относится ли ошибка к указанному виду.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
