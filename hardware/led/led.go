// Package led drives single status LED on GPIO character device.
package led

import (
	"strconv"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
	"github.com/temoto/tempagent/helpers"
)

const consumer = "tempagent-led"

type LED struct {
	chip  gpio.Chiper
	lines gpio.Lineser
	set   gpio.LineSetFunc
}

// Open requests output line. pinName is line offset number, names are not supported.
func Open(chipPath, pinName string, activeLow bool) (*LED, error) {
	line, err := strconv.ParseUint(pinName, 10, 16)
	if err != nil {
		return nil, errors.Annotatef(err, "led pin=%s must be line number", pinName)
	}
	chip, err := gpio.Open(chipPath, consumer)
	if err != nil {
		return nil, errors.Annotatef(err, "led open chip=%s", chipPath)
	}
	self, err := New(chip, uint32(line), activeLow)
	if err != nil {
		chip.Close()
		return nil, err
	}
	return self, nil
}

// New takes ownership of chip, Close() will close it.
func New(chip gpio.Chiper, line uint32, activeLow bool) (*LED, error) {
	flag := gpio.GPIOHANDLE_REQUEST_OUTPUT
	if activeLow {
		flag |= gpio.GPIOHANDLE_REQUEST_ACTIVE_LOW
	}
	lines, err := chip.OpenLines(flag, consumer, line)
	if err != nil {
		return nil, errors.Annotatef(err, "led open line=%d", line)
	}
	return &LED{
		chip:  chip,
		lines: lines,
		set:   lines.SetFunc(line),
	}, nil
}

func (self *LED) On() error  { return self.write(1) }
func (self *LED) Off() error { return self.write(0) }

func (self *LED) write(v byte) error {
	self.set(v)
	return errors.Annotate(self.lines.Flush(), "led flush")
}

func (self *LED) Close() error {
	var errs [2]error
	if self.lines != nil {
		errs[0] = self.lines.Close()
	}
	if self.chip != nil {
		errs[1] = self.chip.Close()
	}
	return helpers.FoldErrors(errs[:])
}

// Nop is used when board has no LED configured.
type Nop struct{}

func (Nop) On() error  { return nil }
func (Nop) Off() error { return nil }
