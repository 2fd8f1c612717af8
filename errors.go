package region

import (
	"errors"
	"fmt"

	"github.com/hupe1980/region/internal/osmem"
	"github.com/hupe1980/region/internal/registry"
	"github.com/hupe1980/region/internal/resource"
)

var (
	// ErrInvalidParameter is returned when a size, address or protection is rejected.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrUnmappedRegion is returned when an address is not mapped or not owned.
	ErrUnmappedRegion = errors.New("unmapped region")
	// ErrOutOfMemory is returned when a reservation cannot be satisfied.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrSystemCall is returned for any other operating-system failure.
	ErrSystemCall = errors.New("system call failed")
)

// InvalidParameterError names the parameter the OS or a precondition rejected.
//
// It matches ErrInvalidParameter via errors.Is; the original underlying error
// (if any) can be accessed via errors.Unwrap.
type InvalidParameterError struct {
	Reason string
	cause  error
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter: %s", e.Reason)
}

// Is reports whether target is ErrInvalidParameter.
func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

func (e *InvalidParameterError) Unwrap() error { return e.cause }

// SystemCallError carries the native error of a failed OS operation.
//
// It matches ErrSystemCall via errors.Is and unwraps to the native error.
type SystemCallError struct {
	Op  string
	Err error
}

func (e *SystemCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Is reports whether target is ErrSystemCall.
func (e *SystemCallError) Is(target error) bool { return target == ErrSystemCall }

func (e *SystemCallError) Unwrap() error { return e.Err }

func invalidParameter(reason string) error {
	return &InvalidParameterError{Reason: reason}
}

// translateError classifies internal and OS errors into the package's kinds.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, osmem.ErrNotFound), errors.Is(err, registry.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrUnmappedRegion, err)
	case errors.Is(err, osmem.ErrNoMemory), errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	case errors.Is(err, osmem.ErrBadAddress):
		return &InvalidParameterError{Reason: "bad address", cause: err}
	case errors.Is(err, osmem.ErrInUse):
		return &InvalidParameterError{Reason: "address in use", cause: err}
	case errors.Is(err, osmem.ErrBadValue):
		return &InvalidParameterError{Reason: "bad value", cause: err}
	}

	return &SystemCallError{Op: op, Err: err}
}
