package power

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

// armWakeAlarm assumes RTC keeps UTC.
func armWakeAlarm(device string, d time.Duration) error {
	f, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	fd := int(f.Fd())

	rt, err := unix.IoctlGetRTCTime(fd)
	if err != nil {
		return errors.Annotate(err, "RTC_RD_TIME")
	}
	at := wakeTime(fromRtcTime(rt), d)
	alarm := unix.RTCWkAlrm{Enabled: 1, Time: toRtcTime(at)}
	return errors.Annotate(unix.IoctlSetRTCWkAlrm(fd, &alarm), "RTC_WKALM_SET")
}

func fromRtcTime(rt *unix.RTCTime) time.Time {
	return time.Date(int(rt.Year)+1900, time.Month(rt.Mon+1), int(rt.Mday),
		int(rt.Hour), int(rt.Min), int(rt.Sec), 0, time.UTC)
}

func toRtcTime(t time.Time) unix.RTCTime {
	return unix.RTCTime{
		Sec:   int32(t.Second()),
		Min:   int32(t.Minute()),
		Hour:  int32(t.Hour()),
		Mday:  int32(t.Day()),
		Mon:   int32(t.Month()) - 1,
		Year:  int32(t.Year()) - 1900,
		Wday:  int32(t.Weekday()),
		Yday:  int32(t.YearDay()) - 1,
		Isdst: 0,
	}
}

// writeState blocks until system resumes.
func writeState(path string, state string) error {
	return errors.Trace(ioutil.WriteFile(path, []byte(state), 0200))
}
