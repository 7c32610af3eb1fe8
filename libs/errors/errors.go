package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// 错误码
const (
	CodeOK                = 0
	CodeInvalidRequest    = 1000
	CodeBudgetExceeded    = 1001
	CodeDispatch          = 1002
	CodeMalformedResponse = 1003
	CodeExecution         = 1004
	CodeBusy              = 1005
	CodeTaskNotFound      = 1006
	CodeUnauthorized      = 1007
	CodeInternal          = 1099
)

// 预定义错误，配合 errors.Is 使用
var (
	ErrInvalidRequest    = New(CodeInvalidRequest, "invalid request")
	ErrBudgetExceeded    = New(CodeBudgetExceeded, "input is too long, please shorten it")
	ErrDispatch          = New(CodeDispatch, "chat request failed")
	ErrMalformedResponse = New(CodeMalformedResponse, "malformed chat response")
	ErrExecution         = New(CodeExecution, "error executing script")
	ErrBusy              = New(CodeBusy, "a request is already in flight")
	ErrTaskNotFound      = New(CodeTaskNotFound, "task not found")
	ErrUnauthorized      = New(CodeUnauthorized, "unauthorized")
	ErrInternal          = New(CodeInternal, "internal error")
)

// StackError carries an error code, a user-facing message and an optional
// cause annotated with the stack at the point it was wrapped.
type StackError struct {
	code  int
	msg   string
	cause error
}

func New(code int, msg string) *StackError {
	return &StackError{code: code, msg: msg}
}

// Wrap returns a copy of kind that wraps cause.
func Wrap(kind *StackError, cause error) *StackError {
	if cause == nil {
		return kind
	}
	return &StackError{code: kind.code, msg: kind.msg, cause: pkgerrors.WithStack(cause)}
}

// Wrapf is like Wrap but replaces the message.
func Wrapf(kind *StackError, cause error, format string, args ...any) *StackError {
	e := &StackError{code: kind.code, msg: fmt.Sprintf(format, args...)}
	if cause != nil {
		e.cause = pkgerrors.WithStack(cause)
	}
	return e
}

// WithMsg returns a copy of kind with a different message and no cause.
func WithMsg(kind *StackError, msg string) *StackError {
	return &StackError{code: kind.code, msg: msg}
}

func (e *StackError) Code() int { return e.code }

func (e *StackError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *StackError) Unwrap() error { return e.cause }

// Is matches on the error code so wrapped copies compare equal to the
// sentinel they were built from.
func (e *StackError) Is(target error) bool {
	t, ok := target.(*StackError)
	if !ok {
		return false
	}
	return t.code == e.code
}

// Format prints the cause's stack trace with %+v.
func (e *StackError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') && e.cause != nil {
			fmt.Fprintf(s, "[%d] %s: %+v", e.code, e.msg, e.cause)
			return
		}
		fallthrough
	case 's':
		fmt.Fprint(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// From converts any error into a StackError, defaulting to ErrInternal.
func From(err error) *StackError {
	if err == nil {
		return nil
	}
	var se *StackError
	if pkgerrors.As(err, &se) {
		return se
	}
	return Wrap(ErrInternal, err)
}
