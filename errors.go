package meshadapt

import (
	"errors"
	"fmt"

	"github.com/hupe1980/meshadapt/hilbert"
	"github.com/hupe1980/meshadapt/internal/dedup"
)

var (
	// ErrInvalidState is returned when an operation is called in the wrong
	// adaptor state, e.g. AddElement before Prepare.
	ErrInvalidState = errors.New("meshadapt: invalid state")

	// ErrInvariant is returned when a structural precondition is violated.
	// The distributed mesh must be considered corrupt afterwards.
	ErrInvariant = errors.New("meshadapt: invariant violation")

	// ErrNotImplemented is returned for configurations the engine refuses to
	// handle partially, such as renumbering a discontinuous dictionary.
	ErrNotImplemented = errors.New("meshadapt: not implemented")

	// ErrRenumberingRequired is returned when global ids disagree across ranks
	// and automatic renumbering is disabled. It matches ErrNotImplemented.
	ErrRenumberingRequired = fmt.Errorf("%w: renumbering required", ErrNotImplemented)
)

// InvariantError describes a violated invariant on one entity.
//
// It matches ErrInvariant. The original underlying error (if any) can be
// accessed via errors.Unwrap.
type InvariantError struct {
	Entity   string
	Index    int
	Reason   string
	Expected int
	Actual   int
	cause    error
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("%s: %s[%d]: %s", ErrInvariant, e.Entity, e.Index, e.Reason)
	if e.Expected != e.Actual {
		msg += fmt.Sprintf(" (expected %d, got %d)", e.Expected, e.Actual)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }

func (e *InvariantError) Unwrap() error { return e.cause }

func outOfRange(entity string, index, size int) error {
	return &InvariantError{Entity: entity, Index: index, Reason: "index out of range", Expected: size, Actual: index}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, dedup.ErrDiscontinuous) {
		return fmt.Errorf("%w: %w", ErrNotImplemented, err)
	}
	if errors.Is(err, hilbert.ErrUnresolved) {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	if errors.Is(err, dedup.ErrKeyCollision) {
		return fmt.Errorf("%w: %w", ErrRenumberingRequired, err)
	}
	return err
}
