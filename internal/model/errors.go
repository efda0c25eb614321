package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasible marks an instance proven to have no valid layout.
	ErrInfeasible = errors.New("instance is infeasible")
	// ErrTimedOut marks a solve whose budget ran out without any layout.
	ErrTimedOut = errors.New("time limit reached without a feasible layout")
	// ErrFormulationReleased is returned when a model is solved twice.
	ErrFormulationReleased = errors.New("formulation already consumed by a solve")
)

// InvalidInstanceError reports malformed or impossible input detected before
// any oracle call.
type InvalidInstanceError struct {
	Field  string
	Room   string
	Reason string
}

func (e *InvalidInstanceError) Error() string {
	switch {
	case e.Room != "" && e.Field != "":
		return fmt.Sprintf("invalid instance: room %q %s: %s", e.Room, e.Field, e.Reason)
	case e.Room != "":
		return fmt.Sprintf("invalid instance: room %q: %s", e.Room, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid instance: %s: %s", e.Field, e.Reason)
	}
	return "invalid instance: " + e.Reason
}

// OracleUnavailableError reports that the solving engine cannot be reached,
// was never opened, or has been closed.
type OracleUnavailableError struct {
	Driver string
	Err    error
}

func (e *OracleUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("oracle %q unavailable", e.Driver)
	}
	return fmt.Sprintf("oracle %q unavailable: %v", e.Driver, e.Err)
}

func (e *OracleUnavailableError) Unwrap() error {
	return e.Err
}

// IsInvalidInstance reports whether err carries an InvalidInstanceError.
func IsInvalidInstance(err error) bool {
	var target *InvalidInstanceError
	return errors.As(err, &target)
}

// IsOracleUnavailable reports whether err carries an OracleUnavailableError.
func IsOracleUnavailable(err error) bool {
	var target *OracleUnavailableError
	return errors.As(err, &target)
}
