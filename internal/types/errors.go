package types

import (
	"fmt"

	"github.com/juju/errors"
)

// Stage errors. Returned wrapped with errors.Trace, recover with errors.Cause.

// InitError peripheral unavailable, fatal for the cycle.
type InitError struct {
	Peripheral string
	E          error
}

func (e InitError) Error() string { return fmt.Sprintf("init %s: %v", e.Peripheral, e.E) }

// JoinError Status is classification: timeout when budget exhausted,
// otherwise terminal failure reported by radio. Observed is last polled status.
type JoinError struct {
	Status   RadioStatus
	Observed RadioStatus
	E        error
}

func (e JoinError) Error() string {
	s := fmt.Sprintf("join %s last=%s", e.Status, e.Observed)
	if e.E != nil {
		s += ": " + e.E.Error()
	}
	return s
}

type SensorErrorKind uint8

const (
	SensorNotFound SensorErrorKind = iota + 1
	SensorReadFailed
)

func (k SensorErrorKind) String() string {
	switch k {
	case SensorNotFound:
		return "not-found"
	case SensorReadFailed:
		return "read-failed"
	}
	return "invalid"
}

type SensorError struct {
	Kind SensorErrorKind
	E    error
}

func (e SensorError) Error() string {
	if e.E == nil {
		return "sensor " + e.Kind.String()
	}
	return fmt.Sprintf("sensor %s: %v", e.Kind, e.E)
}

// TransportError never aborts the cycle, only ends up in DeliveryOutcome.Detail.
type TransportError struct {
	Op string
	E  error
}

func (e TransportError) Error() string { return fmt.Sprintf("transport %s: %v", e.Op, e.E) }

func AsJoinError(err error) (JoinError, bool) {
	je, ok := errors.Cause(err).(JoinError)
	return je, ok
}

func AsSensorError(err error) (SensorError, bool) {
	se, ok := errors.Cause(err).(SensorError)
	return se, ok
}

func IsInitError(err error) bool {
	_, ok := errors.Cause(err).(InitError)
	return ok
}
