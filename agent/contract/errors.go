package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrPromptMissing     = errors.New("required prompt is missing")
	ErrValidation        = errors.New("validation failed")
	ErrRouting           = errors.New("routing failed")
	ErrUnknownSpecialist = errors.New("unknown specialist")
	ErrToolArgument      = errors.New("invalid tool arguments")
	ErrToolExecution     = errors.New("tool execution failed")
	ErrRetrievalDegraded = errors.New("retrieval degraded to lexical match")

	// ErrBackendsUnavailable means no model backend could serve the query.
	ErrBackendsUnavailable = errors.New("all model backends unavailable")
)

// Kinds carried by ModelError.
var (
	ErrModelAuth        = errors.New("model auth rejected")
	ErrModelRateLimit   = errors.New("model rate limited")
	ErrModelTimeout     = errors.New("model call timed out")
	ErrModelMalformed   = errors.New("model output malformed")
	ErrModelUnavailable = errors.New("model backend unavailable")
)

type ModelError struct {
	Backend BackendID
	Kind    error
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: backend=%s", e.Kind, e.Backend)
	}
	return fmt.Sprintf("%v: backend=%s: %v", e.Kind, e.Backend, e.Err)
}

func (e *ModelError) Unwrap() []error {
	errs := []error{ErrModelInvoke}
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
