package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
)

const detailPanic = "panic"

// RecoverPanic turns a recovered value into an ErrInternal that carries the
// stack of the panicking goroutine. It returns nil for a nil value.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	case string:
		cause = errors.New(v)
	default:
		cause = fmt.Errorf("%v", v)
	}

	return ErrInternal.
		WithMessage("panic while handling message").
		WithCause(cause).
		WithDetail(detailPanic, true).
		WithDetail("stack_trace", string(debug.Stack()))
}

// IsPanic reports whether err was produced by RecoverPanic.
func IsPanic(err error) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	recovered, _ := appErr.Details[detailPanic].(bool)
	return recovered
}
