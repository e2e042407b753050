// Package hardware opens board peripherals described by config.
package hardware

import (
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/tempagent/hardware/led"
	"github.com/temoto/tempagent/hardware/power"
	"github.com/temoto/tempagent/hardware/w1"
	"github.com/temoto/tempagent/hardware/wifi"
	"github.com/temoto/tempagent/internal/config"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

// Board does not cache, every call acquires fresh handle.
type Board struct {
	Config *config.Config
	Log    *log2.Log
	// nil runs real wpa_cli
	WpaRunner wifi.Runner
}

var _ types.Board = &Board{}

func NewBoard(cfg *config.Config, log *log2.Log) *Board {
	return &Board{Config: cfg, Log: log}
}

func (b *Board) Indicator() (types.Indicator, error) {
	cfg := &b.Config.Hardware.LED
	if cfg.Pin == "" {
		return led.Nop{}, nil
	}
	l, err := led.Open(cfg.PinChip, cfg.Pin, cfg.ActiveLow)
	if err != nil {
		return nil, errors.Annotatef(err, "config: hardware.led pin_chip=%s pin=%s", cfg.PinChip, cfg.Pin)
	}
	return l, nil
}

func (b *Board) Radio() (types.Radio, error) {
	cfg := &b.Config.Network
	log := b.Log
	if cfg.LogDebug {
		log = log.Clone(log2.LDebug)
	}
	switch cfg.Driver {
	case config.NetworkWpa:
		return wifi.NewWpa(cfg.Interface, log, b.WpaRunner), nil
	}
	return nil, errors.NotSupportedf("config: network.driver=%s", cfg.Driver)
}

func (b *Board) SensorBus() (types.SensorBus, error) {
	cfg := &b.Config.Sensor
	bus, err := w1.Open(cfg.Bus, cfg.ResolutionBits, b.Log)
	if err != nil {
		return nil, errors.Annotatef(err, "config: sensor.bus=%s", cfg.Bus)
	}
	return bus, nil
}

// Suspender a is used by sleep driver to wake on process stop.
func (b *Board) Suspender(a *alive.Alive) (types.Suspender, error) {
	cfg := &b.Config.Hardware.Power
	switch cfg.Driver {
	case config.PowerSleep:
		return power.NewSleep(a), nil
	case config.PowerRTC:
		return power.NewRTC(cfg.RtcDevice, cfg.SleepState, b.Log), nil
	}
	return nil, errors.NotSupportedf("config: hardware.power.driver=%s", cfg.Driver)
}
