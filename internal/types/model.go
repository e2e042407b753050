package types

import (
	"fmt"
	"strconv"
	"time"
)

type RadioStatus int8

const (
	StatusIdle RadioStatus = iota
	StatusConnecting
	StatusJoined
	StatusNoAP
	StatusAuthFailed
	StatusLinkFailed
	StatusTimeout
)

func (s RadioStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusJoined:
		return "joined"
	case StatusNoAP:
		return "failed-no-ap"
	case StatusAuthFailed:
		return "failed-auth"
	case StatusLinkFailed:
		return "failed-link"
	case StatusTimeout:
		return "failed-timeout"
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// Terminal means polling may stop, either joined or definitive failure.
func (s RadioStatus) Terminal() bool {
	switch s {
	case StatusJoined, StatusNoAP, StatusAuthFailed, StatusLinkFailed, StatusTimeout:
		return true
	}
	return false
}

type RadioSession struct {
	Status       RadioStatus
	LocalAddress string
}

// DeviceAddress is 1-wire ROM code, family code in the lowest byte.
type DeviceAddress uint64

func (a DeviceAddress) Family() byte   { return byte(a) }
func (a DeviceAddress) String() string { return fmt.Sprintf("%016x", uint64(a)) }

type SensorDevice struct {
	Address DeviceAddress
	Raw     float64
}

type TemperatureReading struct {
	Celsius float64
	// Elapsed since cycle start, wall clock is not reliable after deep sleep.
	Elapsed time.Duration
	Device  DeviceAddress
}

// StateString is decimal form sent as sensor state, "21.5" not "21.500000".
func (r TemperatureReading) StateString() string {
	return strconv.FormatFloat(r.Celsius, 'f', -1, 64)
}

func (r TemperatureReading) String() string {
	return fmt.Sprintf("%sC device=%s at=%s", r.StateString(), r.Device, r.Elapsed)
}

type OutcomeKind uint8

const (
	OutcomeDelivered OutcomeKind = iota + 1
	// OutcomeAmbiguous request was sent, confirmation failed, probably delivered.
	OutcomeAmbiguous
	// OutcomeRejected receiver responded with error status.
	OutcomeRejected
	// OutcomeFailed payload definitely did not leave the device.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	}
	return "invalid"
}

type DeliveryOutcome struct {
	Delivered  bool
	Kind       OutcomeKind
	StatusCode int
	Detail     string
}

func (o DeliveryOutcome) String() string {
	s := "outcome=" + o.Kind.String()
	if o.StatusCode != 0 {
		s += " status=" + strconv.Itoa(o.StatusCode)
	}
	if o.Detail != "" {
		s += " detail=" + o.Detail
	}
	return s
}
