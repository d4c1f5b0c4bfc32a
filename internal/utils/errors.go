package utils

import (
	"errors"
	"fmt"
)

// AppError wraps an operation, the warehouse table it touched, a human-facing message, and the underlying error.
type AppError struct {
	Op    string
	Table string
	Msg   string
	Err   error
}

func (e *AppError) Error() string {
	op := e.Op
	if e.Table != "" {
		op = fmt.Sprintf("%s %s", e.Op, e.Table)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NewTableError constructs an AppError scoped to a warehouse table.
func NewTableError(op, table, msg string, err error) error {
	return &AppError{Op: op, Table: table, Msg: msg, Err: err}
}

// TableOf returns the table recorded on the first AppError in err's chain.
func TableOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Table
	}
	return ""
}
