// Package core wires the clause model, grammars, scopes and relations into
// the fluent builder surface, and provides the database/sql-backed adapter
// the compiled output executes through.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors returned by eloq operations.
var (
	// ErrNoRows is returned when a query that expects a row returns none.
	ErrNoRows = errors.New("no rows in result set")
	// ErrUnknownModel is returned when a model name is not registered.
	ErrUnknownModel = errors.New("model not registered")
	// ErrUnknownRelation is returned when a relation name is not declared on a model.
	ErrUnknownRelation = errors.New("relation not declared")
)

// InvalidClauseError reports a clause built from an unsafe or ambiguous
// identifier that should have used the raw-clause entry point instead.
type InvalidClauseError struct {
	Identifier string
	Hint       string
}

func (e *InvalidClauseError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Identifier, e.Hint)
}

// UnresolvedPolymorphicTypeError reports a polymorphic discriminator value
// with no registered model. It is surfaced to the caller, never coerced to an
// empty relation.
type UnresolvedPolymorphicTypeError struct {
	Discriminator string
}

func (e *UnresolvedPolymorphicTypeError) Error() string {
	return fmt.Sprintf("no model registered for polymorphic type %q", e.Discriminator)
}

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
