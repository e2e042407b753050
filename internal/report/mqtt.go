package report

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

const mqttQos = 1

// MQTT connects for one report and disconnects, no session survives the cycle.
type MQTT struct {
	Broker   string
	User     string
	Password string
	Prefix   string
	SensorId string
	Name     string
	Timeout  time.Duration

	log       *log2.Log
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func NewMQTT(broker, user, password, prefix, sensorId, name string, timeout time.Duration, log *log2.Log) *MQTT {
	return &MQTT{
		Broker:    broker,
		User:      user,
		Password:  password,
		Prefix:    prefix,
		SensorId:  sensorId,
		Name:      name,
		Timeout:   timeout,
		log:       log,
		newClient: mqtt.NewClient,
	}
}

func (self *MQTT) ConfigTopic() string { return self.Prefix + "/sensor/" + self.SensorId + "/config" }
func (self *MQTT) StateTopic() string  { return self.Prefix + "/sensor/" + self.SensorId + "/state" }

func (self *MQTT) options() *mqtt.ClientOptions {
	opt := mqtt.NewClientOptions().
		AddBroker(self.Broker).
		SetClientID("tempagent-" + self.SensorId).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(self.Timeout).
		SetWriteTimeout(self.Timeout)
	if self.User != "" {
		opt.SetUsername(self.User).SetPassword(self.Password)
	}
	return opt
}

// Report publishes retained discovery config and state.
// Connect failure is definite, publish without ack is ambiguous.
func (self *MQTT) Report(ctx context.Context, r types.TemperatureReading) types.DeliveryOutcome {
	discovery, err := json.Marshal(Discovery{
		Name:              self.Name,
		UniqueId:          self.SensorId,
		StateTopic:        self.StateTopic(),
		UnitOfMeasurement: UnitCelsius,
	})
	if err != nil {
		return failed(errors.Annotate(err, "json").Error())
	}

	m := self.newClient(self.options())
	tok := m.Connect()
	if !tok.WaitTimeout(self.Timeout) {
		m.Disconnect(0)
		return failed(types.TransportError{Op: "mqtt connect", E: errors.Timeoutf("broker=%s", self.Broker)}.Error())
	}
	if err = tok.Error(); err != nil {
		return failed(types.TransportError{Op: "mqtt connect", E: err}.Error())
	}
	defer m.Disconnect(250)

	cfgTok := m.Publish(self.ConfigTopic(), mqttQos, true, discovery)
	self.log.Debugf("report mqtt topic=%s state=%s", self.StateTopic(), r.StateString())
	stateTok := m.Publish(self.StateTopic(), mqttQos, true, r.StateString())
	if !stateTok.WaitTimeout(self.Timeout) {
		return ambiguous(types.TransportError{Op: "mqtt publish", E: errors.Timeoutf("puback")}.Error())
	}
	if err = stateTok.Error(); err != nil {
		return ambiguous(types.TransportError{Op: "mqtt publish", E: err}.Error())
	}
	// config is only for discovery, state is already acked
	if cfgTok.WaitTimeout(self.Timeout) && cfgTok.Error() != nil {
		self.log.Errorf("report mqtt discovery: %v", cfgTok.Error())
	}
	return types.DeliveryOutcome{Delivered: true, Kind: types.OutcomeDelivered}
}
