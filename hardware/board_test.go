package hardware

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/temoto/tempagent/hardware/led"
	"github.com/temoto/tempagent/hardware/power"
	"github.com/temoto/tempagent/hardware/wifi"
	"github.com/temoto/tempagent/internal/config"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

const testBase = `
network { ssid = "shed-ap" secret = "hunter2" region = "NL" interface = "wlp2s0" }
sensor { id = "temp_shed" name = "Shed" }
report { host = "ha.lan:8123" token = "t" }
`

func newTestBoard(t testing.TB, extra string) *Board {
	log := log2.NewTest(t, log2.LDebug)
	cfg, err := config.ReadConfig(log, config.NewMockFullReader(map[string]string{"test": testBase + extra}), "test")
	require.NoError(t, err, errors.ErrorStack(err))
	return NewBoard(cfg, log)
}

func TestBoardIndicatorNop(t *testing.T) {
	t.Parallel()

	b := newTestBoard(t, "")
	ind, err := b.Indicator()
	require.NoError(t, err)
	assert.Equal(t, led.Nop{}, ind)
	assert.NoError(t, ind.On())
}

func TestBoardIndicatorBadPin(t *testing.T) {
	t.Parallel()

	b := newTestBoard(t, `hardware { led { pin_chip = "/dev/gpiochip0" pin = "GPIO25" } }`)
	ind, err := b.Indicator()
	require.Error(t, err)
	assert.Nil(t, ind)
	assert.Contains(t, err.Error(), "config: hardware.led")
}

func TestBoardRadio(t *testing.T) {
	t.Parallel()

	b := newTestBoard(t, `network { log_debug = true }`)
	var calls []string
	b.WpaRunner = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, name+" "+args[len(args)-1])
		return []byte("OK\n"), nil
	}
	r, err := b.Radio()
	require.NoError(t, err)
	w, ok := r.(*wifi.Wpa)
	require.True(t, ok)
	assert.Equal(t, "wlp2s0", w.Iface)
	require.NoError(t, r.SetRegion("NL"))
	assert.Equal(t, []string{"wpa_cli NL"}, calls)
	assert.Equal(t, types.StatusIdle, r.Status())
}

func TestBoardSuspender(t *testing.T) {
	t.Parallel()

	s, err := newTestBoard(t, "").Suspender(alive.NewAlive())
	require.NoError(t, err)
	assert.IsType(t, &power.Sleep{}, s)

	s, err = newTestBoard(t, `hardware { power { driver = "rtc" } }`).Suspender(nil)
	require.NoError(t, err)
	rtc, ok := s.(*power.RTC)
	require.True(t, ok)
	assert.Equal(t, "/dev/rtc0", rtc.Device)
	assert.Equal(t, "mem", rtc.State)
}
