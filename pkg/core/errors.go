package core

import (
	"errors"
	"fmt"
)

// ErrCorrupt marks storage errors caused by a damaged or foreign file.
var ErrCorrupt = errors.New("database file is damaged")

// SyntaxError is returned when a statement cannot be parsed.
type SyntaxError struct {
	Text    string // offending input fragment
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error at line %d, column %d: %s near %q", e.Line, e.Column, e.Message, e.Text)
	}
	if e.Text != "" {
		return fmt.Sprintf("syntax error: %s near %q", e.Message, e.Text)
	}
	return "syntax error: " + e.Message
}

// ExecutionError is a well-formed statement the backend rejected.
type ExecutionError struct {
	Op      string
	Message string
	Locked  bool // lock contention persisted through every retry
	Err     error
}

func (e *ExecutionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s failed: %s", e.Op, msg)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ConstraintKind names the violated constraint.
type ConstraintKind string

// Constraint violation kinds.
const (
	ViolationUnique     ConstraintKind = "unique"
	ViolationPrimaryKey ConstraintKind = "primary_key"
	ViolationForeignKey ConstraintKind = "foreign_key"
	ViolationNotNull    ConstraintKind = "not_null"
	ViolationCheck      ConstraintKind = "check"
)

// ConstraintViolationError is a uniqueness, key or nullability violation.
type ConstraintViolationError struct {
	Kind    ConstraintKind
	Table   string
	Column  string
	Message string
	Err     error
}

func (e *ConstraintViolationError) Error() string {
	switch e.Kind {
	case ViolationUnique, ViolationPrimaryKey:
		return fmt.Sprintf("duplicate entry: %s", e.Message)
	case ViolationForeignKey:
		return fmt.Sprintf("foreign key violation: %s", e.Message)
	default:
		return fmt.Sprintf("%s constraint violation: %s", e.Kind, e.Message)
	}
}

func (e *ConstraintViolationError) Unwrap() error { return e.Err }

// TransactionError covers invalid ids, timeouts, missing savepoints and
// commit/rollback failures.
type TransactionError struct {
	TID       int64
	Message   string
	Timeout   bool
	Corrupted bool // a rollback failed; the transaction is unrecoverable
	Err       error
}

func (e *TransactionError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.TID > 0 {
		return fmt.Sprintf("transaction %d: %s", e.TID, msg)
	}
	return "transaction: " + msg
}

func (e *TransactionError) Unwrap() error { return e.Err }

// FunctionError covers unknown functions, bad arity and body failures.
type FunctionError struct {
	Name    string
	Message string
	Err     error
}

func (e *FunctionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("function %s: %s: %v", e.Name, e.Message, e.Err)
	}
	return fmt.Sprintf("function %s: %s", e.Name, e.Message)
}

func (e *FunctionError) Unwrap() error { return e.Err }

// StorageError is a connection, file or recovery failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
