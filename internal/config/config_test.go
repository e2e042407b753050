package config

import (
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/tempagent/log2"
)

const testBase = `
network { ssid = "shed-ap" secret = "hunter2" region = "nl" }
sensor { id = "temp_shed" name = "Shed Thermometer" }
report { host = "192.168.178.248:8123" token = "long-lived" }
`

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Config)
		expectErr string
	}
	cases := []Case{
		{"defaults", testBase, func(t testing.TB, c *Config) {
			assert.Equal(t, 15*time.Minute, c.Interval())
			assert.Equal(t, 10*time.Second, c.JoinTimeout())
			assert.Equal(t, 10*time.Second, c.ReportTimeout())
			assert.Equal(t, "NL", c.Network.Region)
			assert.Equal(t, "wlan0", c.Network.Interface)
			assert.Equal(t, NetworkWpa, c.Network.Driver)
			assert.Equal(t, TransportHTTP, c.Report.Transport)
			assert.Equal(t, DefaultResolutionBits, c.Sensor.ResolutionBits)
			assert.Equal(t, PowerSleep, c.Hardware.Power.Driver)
			assert.Equal(t, log2.LInfo, c.LogLevel())
		}, ""},

		{"full", testBase + `
log_debug = true
interval_min = 5
network { join_timeout_sec = 20 interface = "wlp2s0" }
sensor { resolution_bits = 12 bus = "netlink-onewire" }
hardware {
	led { pin_chip = "/dev/gpiochip0" pin = "25" }
	power { driver = "rtc" rtc_device = "/dev/rtc1" }
}`, func(t testing.TB, c *Config) {
			assert.Equal(t, 5*time.Minute, c.Interval())
			assert.Equal(t, 20*time.Second, c.JoinTimeout())
			assert.Equal(t, "wlp2s0", c.Network.Interface)
			assert.Equal(t, "shed-ap", c.Network.SSID)
			assert.Equal(t, 12, c.Sensor.ResolutionBits)
			assert.Equal(t, "netlink-onewire", c.Sensor.Bus)
			assert.Equal(t, "/dev/gpiochip0", c.Hardware.LED.PinChip)
			assert.Equal(t, "25", c.Hardware.LED.Pin)
			assert.Equal(t, PowerRTC, c.Hardware.Power.Driver)
			assert.Equal(t, "/dev/rtc1", c.Hardware.Power.RtcDevice)
			assert.Equal(t, "mem", c.Hardware.Power.SleepState)
			assert.Equal(t, log2.LDebug, c.LogLevel())
		}, ""},

		{"mqtt", `
network { ssid = "shed-ap" secret = "hunter2" region = "GB" }
sensor { id = "temp_shed" name = "Shed" }
report { transport = "mqtt" mqtt_broker = "tcp://10.0.0.2:1883" }`, func(t testing.TB, c *Config) {
			assert.Equal(t, TransportMQTT, c.Report.Transport)
			assert.Equal(t, DefaultMqttPrefix, c.Report.MqttPrefix)
		}, ""},

		{"include-optional", `
include "secrets" {}
include "non-exist" { optional = true }`, func(t testing.TB, c *Config) {
			assert.Equal(t, "from-include", c.Report.Token)
		}, ""},

		{"include-overwrites", testBase + `
interval_min = 30
include "interval-5" {}`, func(t testing.TB, c *Config) {
			assert.Equal(t, 5*time.Minute, c.Interval())
			assert.Equal(t, "shed-ap", c.Network.SSID)
		}, ""},

		{"error-required", `sensor { id = "temp_shed" }`, nil, "network.ssid required"},
		{"error-include-missing", testBase + `include "non-exist" {}`, nil, "config required name=non-exist"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-sensor-id", strings.Replace(testBase, "temp_shed", "Temp Shed", 1), nil, `sensor.id="Temp Shed"`},
		{"error-region", strings.Replace(testBase, `"nl"`, `"nld"`, 1), nil, `network.region="NLD"`},
		{"error-transport", testBase + `report { transport = "coap" }`, nil, `unknown report.transport="coap"`},
		{"error-interval", testBase + `interval_min = 2000`, nil, "interval_min=2000"},
		{"error-led-half", testBase + `hardware { led { pin = "25" } }`, nil, "hardware.led needs both"},
		{"error-resolution", testBase + `sensor { resolution_bits = 16 }`, nil, "sensor.resolution_bits=16"},
		{"error-power", testBase + `hardware { power { driver = "hibernate" } }`, nil, `hardware.power.driver="hibernate"`},
		{"error-syntax", `network {`, nil, "config unmarshal source=test-inline"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			t.Parallel()
			log := log2.NewTest(t, log2.LDebug)
			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"secrets":      testBase + `report { token = "from-include" }`,
				"interval-5":   `interval_min = 5`,
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if c.expectErr == "" {
				require.NoError(t, err, errors.ErrorStack(err))
				require.NotNil(t, cfg)
				if c.check != nil {
					c.check(t, cfg)
				}
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), c.expectErr)
			}
		}
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, mkCheck(c))
	}
}

func TestValidateCollectsAll(t *testing.T) {
	t.Parallel()

	c := &Config{}
	c.applyDefaults()
	err := c.Validate()
	require.Error(t, err)
	for _, key := range []string{"network.ssid", "network.secret", "network.region", "sensor.id", "sensor.name", "report.host", "report.token"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestReadConfigNoNames(t *testing.T) {
	t.Parallel()

	_, err := ReadConfig(log2.NewTest(t, log2.LDebug), NewMockFullReader(nil))
	assert.Error(t, err)
}
