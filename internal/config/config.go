package config

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/tempagent/helpers"
	"github.com/temoto/tempagent/log2"
)

const (
	DefaultInterval       = 15 * time.Minute
	DefaultJoinTimeout    = 10 * time.Second
	DefaultReportTimeout  = 10 * time.Second
	DefaultResolutionBits = 10
	DefaultMqttPrefix     = "homeassistant"

	TransportHTTP = "http"
	TransportMQTT = "mqtt"

	PowerSleep = "sleep"
	PowerRTC   = "rtc"

	NetworkWpa = "wpa"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	LogDebug    bool `hcl:"log_debug"`
	IntervalMin int  `hcl:"interval_min"`

	Network struct {
		Driver         string `hcl:"driver"`
		Interface      string `hcl:"interface"`
		SSID           string `hcl:"ssid"`
		Secret         string `hcl:"secret"` // secret
		Region         string `hcl:"region"`
		JoinTimeoutSec int    `hcl:"join_timeout_sec"`
		LogDebug       bool   `hcl:"log_debug"`
	} `hcl:"network"`

	Sensor struct {
		Id             string `hcl:"id"`
		Name           string `hcl:"name"`
		Bus            string `hcl:"bus"`
		ResolutionBits int    `hcl:"resolution_bits"`
	} `hcl:"sensor"`

	Report struct {
		Transport    string `hcl:"transport"`
		Host         string `hcl:"host"`
		Token        string `hcl:"token"` // secret
		TimeoutSec   int    `hcl:"timeout_sec"`
		Verify       bool   `hcl:"verify"`
		MqttBroker   string `hcl:"mqtt_broker"`
		MqttUser     string `hcl:"mqtt_user"`
		MqttPassword string `hcl:"mqtt_password"` // secret
		MqttPrefix   string `hcl:"mqtt_prefix"`
		LogDebug     bool   `hcl:"log_debug"`
	} `hcl:"report"`

	Hardware struct {
		LED struct {
			PinChip   string `hcl:"pin_chip"`
			Pin       string `hcl:"pin"`
			ActiveLow bool   `hcl:"active_low"`
		} `hcl:"led"`
		Power struct {
			Driver     string `hcl:"driver"`
			RtcDevice  string `hcl:"rtc_device"`
			SleepState string `hcl:"sleep_state"`
		} `hcl:"power"`
	} `hcl:"hardware"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) Interval() time.Duration {
	return helpers.IntMinuteDefault(c.IntervalMin, DefaultInterval)
}

func (c *Config) JoinTimeout() time.Duration {
	return helpers.IntSecondDefault(c.Network.JoinTimeoutSec, DefaultJoinTimeout)
}

func (c *Config) ReportTimeout() time.Duration {
	return helpers.IntSecondDefault(c.Report.TimeoutSec, DefaultReportTimeout)
}

func (c *Config) LogLevel() log2.Level {
	if c.LogDebug {
		return log2.LDebug
	}
	return log2.LInfo
}

func (c *Config) applyDefaults() {
	if c.Network.Driver == "" {
		c.Network.Driver = NetworkWpa
	}
	if c.Network.Interface == "" {
		c.Network.Interface = "wlan0"
	}
	c.Network.Region = strings.ToUpper(c.Network.Region)
	if c.Sensor.ResolutionBits == 0 {
		c.Sensor.ResolutionBits = DefaultResolutionBits
	}
	if c.Report.Transport == "" {
		c.Report.Transport = TransportHTTP
	}
	if c.Report.MqttPrefix == "" {
		c.Report.MqttPrefix = DefaultMqttPrefix
	}
	if c.Hardware.Power.Driver == "" {
		c.Hardware.Power.Driver = PowerSleep
	}
	if c.Hardware.Power.RtcDevice == "" {
		c.Hardware.Power.RtcDevice = "/dev/rtc0"
	}
	if c.Hardware.Power.SleepState == "" {
		c.Hardware.Power.SleepState = "mem"
	}
}

var (
	reSensorId = regexp.MustCompile(`^[a-z0-9_]+$`)
	reRegion   = regexp.MustCompile(`^[A-Z]{2}$`)
)

// Validate reports all problems at once.
func (c *Config) Validate() error {
	errs := make([]error, 0, 8)
	required := func(value, key string) {
		if value == "" {
			errs = append(errs, errors.NotValidf("config: %s required", key))
		}
	}

	required(c.Network.SSID, "network.ssid")
	required(c.Network.Secret, "network.secret")
	required(c.Network.Region, "network.region")
	if c.Network.Region != "" && !reRegion.MatchString(c.Network.Region) {
		errs = append(errs, errors.NotValidf("config: network.region=%q must be ISO 3166 alpha-2", c.Network.Region))
	}
	if c.Network.Driver != NetworkWpa {
		errs = append(errs, errors.NotValidf("config: unknown network.driver=%q valid: %s", c.Network.Driver, NetworkWpa))
	}
	if c.Network.JoinTimeoutSec < 0 {
		errs = append(errs, errors.NotValidf("config: network.join_timeout_sec < 0"))
	}

	required(c.Sensor.Id, "sensor.id")
	required(c.Sensor.Name, "sensor.name")
	if c.Sensor.Id != "" && !reSensorId.MatchString(c.Sensor.Id) {
		errs = append(errs, errors.NotValidf("config: sensor.id=%q allowed characters: a-z 0-9 _", c.Sensor.Id))
	}
	if c.Sensor.ResolutionBits < 9 || c.Sensor.ResolutionBits > 12 {
		errs = append(errs, errors.NotValidf("config: sensor.resolution_bits=%d valid: 9-12", c.Sensor.ResolutionBits))
	}

	switch c.Report.Transport {
	case TransportHTTP:
		required(c.Report.Host, "report.host")
		required(c.Report.Token, "report.token")
	case TransportMQTT:
		required(c.Report.MqttBroker, "report.mqtt_broker")
	default:
		errs = append(errs, errors.NotValidf("config: unknown report.transport=%q valid: %s, %s", c.Report.Transport, TransportHTTP, TransportMQTT))
	}
	if c.Report.TimeoutSec < 0 {
		errs = append(errs, errors.NotValidf("config: report.timeout_sec < 0"))
	}

	if c.IntervalMin < 0 || c.IntervalMin > 24*60 {
		errs = append(errs, errors.NotValidf("config: interval_min=%d valid: 1-1440", c.IntervalMin))
	}

	switch c.Hardware.Power.Driver {
	case PowerSleep, PowerRTC:
	default:
		errs = append(errs, errors.NotValidf("config: unknown hardware.power.driver=%q valid: %s, %s", c.Hardware.Power.Driver, PowerSleep, PowerRTC))
	}
	if (c.Hardware.LED.PinChip == "") != (c.Hardware.LED.Pin == "") {
		errs = append(errs, errors.NotValidf("config: hardware.led needs both pin_chip and pin"))
	}

	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		// content is not logged, it contains secrets
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig parses all sources in order, later values override earlier,
// then applies defaults and validates.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if err := helpers.FoldErrors(errs); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
