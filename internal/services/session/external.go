package session

import (
	"errors"
	"fmt"

	"smartsession/internal/domain"
)

// externalError marks a failure reported by the relay, the node or the
// signer. Its message is the underlying one, unchanged.
type externalError struct {
	err error
}

func (e *externalError) Error() string { return e.err.Error() }

func (e *externalError) Unwrap() []error {
	return []error{domain.ErrExternalCallFailed, e.err}
}

var classified = []error{
	domain.ErrPreconditionMissing,
	domain.ErrExternalCallFailed,
	domain.ErrEntropyUnavailable,
	domain.ErrDecodeFailure,
	domain.ErrPhaseInFlight,
}

// guard runs an external call. Panics and unclassified errors become
// external failures.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &externalError{err: fmt.Errorf("%v", r)}
		}
	}()
	if err = fn(); err == nil {
		return nil
	}
	for _, known := range classified {
		if errors.Is(err, known) {
			return err
		}
	}
	return &externalError{err: err}
}
