package agent

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

// DS18B20 conversion is asynchronous on device, value is not ready before settle.
const DefaultSettle = 250 * time.Millisecond

type Reader struct {
	Bus    types.SensorBus
	Settle time.Duration

	log   *log2.Log
	sleep func(time.Duration)
	since func() time.Duration
}

// NewReader since returns cycle-relative time for reading timestamp.
func NewReader(bus types.SensorBus, since func() time.Duration, log *log2.Log) *Reader {
	return &Reader{
		Bus:    bus,
		Settle: DefaultSettle,
		log:    log,
		sleep:  time.Sleep,
		since:  since,
	}
}

// Read uses first discovered device, others are ignored.
func (self *Reader) Read() (types.TemperatureReading, error) {
	addrs, err := self.Bus.Scan()
	if err != nil {
		return types.TemperatureReading{}, errors.Trace(types.SensorError{Kind: types.SensorReadFailed, E: err})
	}
	if len(addrs) == 0 {
		return types.TemperatureReading{}, errors.Trace(types.SensorError{Kind: types.SensorNotFound})
	}
	dev := types.SensorDevice{Address: addrs[0]}
	if len(addrs) > 1 {
		self.log.Debugf("sensor found=%d using=%s", len(addrs), dev.Address)
	}

	if err = self.Bus.BeginConversion(); err != nil {
		return types.TemperatureReading{}, errors.Trace(types.SensorError{Kind: types.SensorReadFailed, E: err})
	}
	self.sleep(self.Settle)
	if dev.Raw, err = self.Bus.ReadValue(dev.Address); err != nil {
		return types.TemperatureReading{}, errors.Trace(types.SensorError{Kind: types.SensorReadFailed, E: err})
	}
	return types.TemperatureReading{
		Celsius: dev.Raw,
		Elapsed: self.since(),
		Device:  dev.Address,
	}, nil
}
