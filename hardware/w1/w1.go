// Package w1 is DS18B20 family thermometer access on 1-wire bus via periph.
package w1

import (
	"io"

	"github.com/juju/errors"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
	"periph.io/x/periph/conn/onewire"
	"periph.io/x/periph/conn/onewire/onewirereg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/devices/ds18b20"
	"periph.io/x/periph/host"
)

const (
	cmdSkipROM  byte = 0xcc
	cmdConvertT byte = 0x44

	familyDS1822   byte = 0x22
	familyDS18B20  byte = 0x28
	familyMAX31850 byte = 0x3b
)

type Bus struct {
	bus     onewire.Bus
	closer  io.Closer
	resBits int
	log     *log2.Log
	devs    map[types.DeviceAddress]*ds18b20.Dev
}

var _ types.SensorBus = &Bus{}

// Open initializes periph host drivers and opens 1-wire bus by registry name,
// empty name means first registered bus.
func Open(name string, resolutionBits int, log *log2.Log) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	bc, err := onewirereg.Open(name)
	if err != nil {
		return nil, errors.Annotatef(err, "onewire open bus=%q", name)
	}
	self := New(bc, resolutionBits, log)
	self.closer = bc
	return self, nil
}

func New(bus onewire.Bus, resolutionBits int, log *log2.Log) *Bus {
	return &Bus{
		bus:     bus,
		resBits: resolutionBits,
		log:     log,
		devs:    make(map[types.DeviceAddress]*ds18b20.Dev),
	}
}

func (self *Bus) Close() error {
	if self.closer == nil {
		return nil
	}
	return self.closer.Close()
}

// Scan searches bus and configures resolution on each thermometer,
// so next conversion completes within settle delay.
func (self *Bus) Scan() ([]types.DeviceAddress, error) {
	found, err := self.bus.Search(false)
	if err != nil {
		return nil, errors.Annotatef(err, "onewire search bus=%s", self.bus)
	}
	result := make([]types.DeviceAddress, 0, len(found))
	for _, a := range found {
		addr := types.DeviceAddress(a)
		if !isThermometer(addr.Family()) {
			self.log.Debugf("w1 skip device=%s family=%02x", addr, addr.Family())
			continue
		}
		dev, err := ds18b20.New(self.bus, a, self.resBits)
		if err != nil {
			return nil, errors.Annotatef(err, "ds18b20 device=%s resolution=%d", addr, self.resBits)
		}
		self.devs[addr] = dev
		result = append(result, addr)
	}
	return result, nil
}

// BeginConversion addresses all devices at once, strong pullup feeds parasite powered sensors.
func (self *Bus) BeginConversion() error {
	err := self.bus.Tx([]byte{cmdSkipROM, cmdConvertT}, nil, onewire.StrongPullup)
	return errors.Annotate(err, "onewire convert")
}

func (self *Bus) ReadValue(addr types.DeviceAddress) (float64, error) {
	dev, ok := self.devs[addr]
	if !ok {
		var err error
		if dev, err = ds18b20.New(self.bus, onewire.Address(addr), self.resBits); err != nil {
			return 0, errors.Annotatef(err, "ds18b20 device=%s", addr)
		}
		self.devs[addr] = dev
	}
	t, err := dev.LastTemp()
	if err != nil {
		return 0, errors.Annotatef(err, "ds18b20 read device=%s", addr)
	}
	return Celsius(t), nil
}

func Celsius(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Kelvin)
}

func isThermometer(family byte) bool {
	switch family {
	case familyDS1822, familyDS18B20, familyMAX31850:
		return true
	}
	return false
}
