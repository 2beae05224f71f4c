package term

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction is wrapped by every error that stops a term from being
	// built. Such terms never reach the registry.
	ErrConstruction      = errors.New("term construction failed")
	ErrUnknownLogic      = errors.New("unknown term logic")
	ErrUnsupportedDomain = errors.New("unsupported domain")
	ErrTypeMismatch      = errors.New("term output type mismatch")
	ErrNotImplemented    = errors.New("not implemented")
)

// TypeMismatchError reports an output that cannot be coerced to the term's
// declared type.
type TypeMismatchError struct {
	Term string
	Want OutputType
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: output of %s is %s, cannot coerce to %s", ErrTypeMismatch, e.Term, e.Got, e.Want)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

func constructionErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstruction, fmt.Sprintf(format, args...))
}

func wrapConstruction(logic string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConstruction, logic, err)
}
