package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"
	"github.com/temoto/tempagent/internal/config"
	"github.com/temoto/tempagent/internal/report"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

const testConfig = `
network { ssid = "shed-ap" secret = "hunter2" region = "nl" }
sensor { id = "temp_shed" name = "Shed Thermometer" }
report { host = "192.168.178.248:8123" token = "long-lived" }
`

// tenv is one cycle worth of fake hardware sharing event log and clock.
type tenv struct {
	t      testing.TB
	log    *log2.Log
	clock  time.Time
	events []string
	errs   []error

	board     *fakeBoard
	led       *fakeIndicator
	radio     *fakeRadio
	bus       *fakeBus
	suspender *fakeSuspender
}

func newTestEnv(t testing.TB) *tenv {
	env := &tenv{
		t:     t,
		clock: time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	env.log = log2.NewTest(t, log2.LDebug)
	env.log.SetErrorFunc(func(e error) { env.errs = append(env.errs, e) })
	env.led = &fakeIndicator{env: env}
	env.radio = &fakeRadio{env: env, addr: "192.168.178.31"}
	env.bus = &fakeBus{env: env}
	env.board = &fakeBoard{env: env}
	env.suspender = &fakeSuspender{env: env}
	return env
}

func (e *tenv) ev(format string, args ...interface{}) {
	e.events = append(e.events, fmt.Sprintf(format, args...))
}
func (e *tenv) now() time.Time { return e.clock }
func (e *tenv) sleep(d time.Duration) {
	e.ev("sleep %v", d)
	e.clock = e.clock.Add(d)
}
func (e *tenv) count(event string) int {
	n := 0
	for _, s := range e.events {
		if s == event {
			n++
		}
	}
	return n
}

func (e *tenv) config() *config.Config {
	cfg, err := config.ReadConfig(e.log, config.NewMockFullReader(map[string]string{"test": testConfig}), "test")
	require.NoError(e.t, err, errors.ErrorStack(err))
	return cfg
}

func (e *tenv) controller(reporter report.Reporter) *Controller {
	c := NewController(e.config(), e.board, reporter, e.suspender, e.log)
	c.sleep = e.sleep
	c.now = e.now
	return c
}

type fakeBoard struct {
	env      *tenv
	errLed   error
	errRadio error
	errBus   error
}

func (b *fakeBoard) Indicator() (types.Indicator, error) {
	b.env.ev("board.indicator")
	if b.errLed != nil {
		return nil, b.errLed
	}
	return b.env.led, nil
}
func (b *fakeBoard) Radio() (types.Radio, error) {
	b.env.ev("board.radio")
	if b.errRadio != nil {
		return nil, b.errRadio
	}
	return b.env.radio, nil
}
func (b *fakeBoard) SensorBus() (types.SensorBus, error) {
	b.env.ev("board.bus")
	if b.errBus != nil {
		return nil, b.errBus
	}
	return b.env.bus, nil
}

type fakeIndicator struct {
	env   *tenv
	on    bool
	errOn error
}

func (l *fakeIndicator) On() error {
	l.env.ev("led.on")
	if l.errOn != nil {
		return l.errOn
	}
	l.on = true
	return nil
}
func (l *fakeIndicator) Off() error {
	l.env.ev("led.off")
	l.on = false
	return nil
}
func (l *fakeIndicator) Close() error {
	l.env.ev("led.close")
	return nil
}

// fakeRadio returns statuses in order, last one repeats.
type fakeRadio struct {
	env       *tenv
	statuses  []types.RadioStatus
	addr      string
	errActive error
	connected bool
}

func (r *fakeRadio) SetRegion(code string) error {
	r.env.ev("radio.region %s", code)
	return nil
}
func (r *fakeRadio) Activate(mode types.RadioMode) error {
	r.env.ev("radio.activate %s", mode)
	return r.errActive
}
func (r *fakeRadio) Connect(ssid, secret string) error {
	r.env.ev("radio.connect %s", ssid)
	r.connected = true
	return nil
}
func (r *fakeRadio) Status() types.RadioStatus {
	r.env.ev("radio.status")
	if len(r.statuses) == 0 {
		return types.StatusIdle
	}
	s := r.statuses[0]
	if len(r.statuses) > 1 {
		r.statuses = r.statuses[1:]
	}
	return s
}
func (r *fakeRadio) LocalAddress() (string, bool) { return r.addr, r.addr != "" }
func (r *fakeRadio) Disconnect() error {
	r.env.ev("radio.disconnect")
	r.connected = false
	return nil
}
func (r *fakeRadio) Close() error {
	r.env.ev("radio.close")
	return nil
}

type fakeBus struct {
	env     *tenv
	addrs   []types.DeviceAddress
	value   float64
	scanErr error
	convErr error
	readErr error
}

func (b *fakeBus) Scan() ([]types.DeviceAddress, error) {
	b.env.ev("bus.scan")
	return b.addrs, b.scanErr
}
func (b *fakeBus) BeginConversion() error {
	b.env.ev("bus.convert")
	return b.convErr
}
func (b *fakeBus) ReadValue(addr types.DeviceAddress) (float64, error) {
	b.env.ev("bus.read %s", addr)
	return b.value, b.readErr
}
func (b *fakeBus) Close() error {
	b.env.ev("bus.close")
	return nil
}

type fakeSuspender struct {
	env   *tenv
	asked []time.Duration
}

func (s *fakeSuspender) SuspendFor(ctx context.Context, d time.Duration) error {
	s.env.ev("suspend %v", d)
	s.asked = append(s.asked, d)
	return nil
}
