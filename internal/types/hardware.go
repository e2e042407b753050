package types

import (
	"context"
	"io"
	"time"
)

// Collaborators the cycle talks to. Real implementations live in hardware/*.

type RadioMode uint8

const (
	RadioStation RadioMode = iota + 1
	RadioAccessPoint
)

func (m RadioMode) String() string {
	switch m {
	case RadioStation:
		return "station"
	case RadioAccessPoint:
		return "access-point"
	}
	return "invalid"
}

type Radio interface {
	// SetRegion applies regulatory country code, e.g. "NL".
	SetRegion(code string) error
	Activate(mode RadioMode) error
	Connect(ssid, secret string) error
	Status() RadioStatus
	LocalAddress() (string, bool)
	Disconnect() error
}

type SensorBus interface {
	Scan() ([]DeviceAddress, error)
	// BeginConversion starts conversion on all devices, result is ready after settle delay.
	BeginConversion() error
	// ReadValue returns last converted temperature in degrees Celsius.
	ReadValue(addr DeviceAddress) (float64, error)
}

type Indicator interface {
	On() error
	Off() error
}

// Suspender does not return in production, resume is a fresh process start.
// Development drivers may return after d, caller must treat it as restart.
type Suspender interface {
	SuspendFor(ctx context.Context, d time.Duration) error
}

// Board opens peripherals. Every call acquires a fresh handle.
type Board interface {
	Indicator() (Indicator, error)
	Radio() (Radio, error)
	SensorBus() (SensorBus, error)
}

// CloseIfCloser is for handles that may or may not own OS resources.
func CloseIfCloser(x interface{}) error {
	if c, ok := x.(io.Closer); ok && c != nil {
		return c.Close()
	}
	return nil
}
