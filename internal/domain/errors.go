package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPreconditionMissing is returned when a phase is entered before the
	// artifact or context it depends on exists.
	ErrPreconditionMissing = errors.New("precondition missing")

	// ErrSignerUnavailable is returned when no wallet signer is connected.
	ErrSignerUnavailable = fmt.Errorf("%w: connect a wallet signer first", ErrPreconditionMissing)

	// ErrExternalCallFailed wraps failures reported by the relay, the RPC
	// node or the signer.
	ErrExternalCallFailed = errors.New("external call failed")

	// ErrEntropyUnavailable is returned when secure randomness cannot be read.
	ErrEntropyUnavailable = errors.New("secure randomness unavailable")

	// ErrDecodeFailure is returned when a persisted record cannot be parsed.
	ErrDecodeFailure = errors.New("persisted record could not be decoded")

	// ErrPhaseInFlight is returned when a phase is entered while another
	// one is still running.
	ErrPhaseInFlight = errors.New("another phase is still in progress")
)
