// Package power puts the board to sleep until the next cycle.
package power

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

var ErrInterrupted = errors.New("power: sleep interrupted")

// Sleep keeps the process running for the interval and returns.
// For development machines and boards without RTC wake.
type Sleep struct {
	stop  <-chan struct{}
	after func(time.Duration) <-chan time.Time
}

var _ types.Suspender = &Sleep{}

// NewSleep a may be nil, then only ctx interrupts.
func NewSleep(a *alive.Alive) *Sleep {
	self := &Sleep{after: time.After}
	if a != nil {
		self.stop = a.StopChan()
	}
	return self
}

func (self *Sleep) SuspendFor(ctx context.Context, d time.Duration) error {
	select {
	case <-self.after(d):
		return nil
	case <-ctx.Done():
		return errors.Annotate(ctx.Err(), "power sleep")
	case <-self.stop:
		return ErrInterrupted
	}
}

// RTC arms hardware wake alarm and suspends the whole system.
// SuspendFor returns after resume.
type RTC struct {
	Device    string
	State     string
	StatePath string
	log       *log2.Log

	arm   func(device string, d time.Duration) error
	write func(path string, state string) error
}

var _ types.Suspender = &RTC{}

const DefaultStatePath = "/sys/power/state"

// Shorter alarm may fire before suspend completes and leave the board asleep forever.
const MinRtcSleep = 2 * time.Second

func NewRTC(device, state string, log *log2.Log) *RTC {
	return &RTC{
		Device:    device,
		State:     state,
		StatePath: DefaultStatePath,
		log:       log,
		arm:       armWakeAlarm,
		write:     writeState,
	}
}

func (self *RTC) SuspendFor(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.Annotate(err, "power rtc")
	}
	if d < MinRtcSleep {
		d = MinRtcSleep
	}
	if err := self.arm(self.Device, d); err != nil {
		return errors.Annotatef(err, "power rtc arm device=%s", self.Device)
	}
	self.log.Debugf("power rtc suspend state=%s for=%v", self.State, d)
	if err := self.write(self.StatePath, self.State); err != nil {
		return errors.Annotatef(err, "power rtc suspend state=%s", self.State)
	}
	return nil
}

// wakeTime truncates to whole seconds, RTC has no finer resolution.
func wakeTime(now time.Time, d time.Duration) time.Time {
	return now.Add(d).Truncate(time.Second).UTC()
}
