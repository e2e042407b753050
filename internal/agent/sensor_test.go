package agent

import (
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/tempagent/helpers"
	"github.com/temoto/tempagent/internal/types"
)

func newTestReader(env *tenv) *Reader {
	r := NewReader(env.bus, helpers.NewElapsed(env.now).Get, env.log)
	r.sleep = env.sleep
	return r
}

func TestReadNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := newTestReader(env).Read()
	se, ok := types.AsSensorError(err)
	require.True(t, ok)
	assert.Equal(t, types.SensorNotFound, se.Kind)
	assert.Equal(t, []string{"bus.scan"}, env.events, "no conversion without device")
}

func TestReadSettleBeforeReadback(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.bus.addrs = []types.DeviceAddress{0x3c01d607e3f1a128, 0x5a01d607e3f1a128}
	env.bus.value = 21.5
	r := newTestReader(env)
	reading, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, 21.5, reading.Celsius)
	assert.Equal(t, types.DeviceAddress(0x3c01d607e3f1a128), reading.Device)
	assert.Equal(t, 250*time.Millisecond, reading.Elapsed)
	assert.Equal(t, []string{
		"bus.scan",
		"bus.convert",
		"sleep 250ms",
		"bus.read 3c01d607e3f1a128",
	}, env.events)
}

func TestReadFailed(t *testing.T) {
	t.Parallel()

	type Case struct {
		name  string
		setup func(*fakeBus)
	}
	cases := []Case{
		{"scan", func(b *fakeBus) { b.scanErr = errors.New("no presence") }},
		{"convert", func(b *fakeBus) { b.convErr = errors.New("bus short") }},
		{"read", func(b *fakeBus) { b.readErr = errors.New("crc mismatch") }},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			env.bus.addrs = []types.DeviceAddress{0x3c01d607e3f1a128}
			c.setup(env.bus)
			_, err := newTestReader(env).Read()
			se, ok := types.AsSensorError(err)
			require.True(t, ok)
			assert.Equal(t, types.SensorReadFailed, se.Kind)
			assert.LessOrEqual(t, env.count("bus.convert"), 1)
		})
	}
}
