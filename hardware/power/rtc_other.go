//go:build !linux
// +build !linux

package power

import (
	"time"

	"github.com/juju/errors"
)

func armWakeAlarm(device string, d time.Duration) error {
	return errors.NotSupportedf("rtc wake alarm on this OS")
}

func writeState(path string, state string) error {
	return errors.NotSupportedf("system suspend on this OS")
}
