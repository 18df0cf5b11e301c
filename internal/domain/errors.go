package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNeuronNotFound is returned when an ID does not resolve in the resident network
	ErrNeuronNotFound = errors.New("neuron not found")

	// ErrEmptyNetwork is returned when a random pick is requested from an empty network
	ErrEmptyNetwork = errors.New("no neurons in network")

	// ErrSelfConnection is returned when a neuron is connected to itself
	ErrSelfConnection = errors.New("neuron cannot connect to itself")

	// ErrInvalidParams is returned when auto-connect parameters are out of range
	ErrInvalidParams = errors.New("invalid auto-connect parameters")

	// ErrNoOwner is returned when a persistent operation runs on an unbound network
	ErrNoOwner = errors.New("network is not bound to an owner")
)

// PersistenceError wraps a storage failure with the operation that caused it.
// The underlying error is preserved for errors.Is and errors.As.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence reports whether err came from the storage collaborator
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
