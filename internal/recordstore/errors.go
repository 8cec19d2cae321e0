package recordstore

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyViolation = errors.New("new row violates row-level security policy")
	ErrBrokerClosed    = errors.New("change broker closed")
)

// Error describes a failed table operation.
type Error struct {
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
