package report

import (
	"context"
	"net/http"

	"github.com/juju/errors"
	"github.com/temoto/tempagent/internal/config"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

// Reporter never fails the cycle, any problem is described by outcome.
type Reporter interface {
	Report(ctx context.Context, r types.TemperatureReading) types.DeliveryOutcome
}

var (
	_ Reporter = &HTTP{}
	_ Reporter = &MQTT{}
)

// New transport nil means http.DefaultTransport, ignored for mqtt.
func New(cfg *config.Config, transport http.RoundTripper, log *log2.Log) (Reporter, error) {
	rc := &cfg.Report
	if rc.LogDebug {
		log = log.Clone(log2.LDebug)
	}
	switch rc.Transport {
	case config.TransportHTTP:
		r := NewHTTP(rc.Host, rc.Token, cfg.Sensor.Id, cfg.Sensor.Name, cfg.ReportTimeout(), transport, log)
		r.Verify = rc.Verify
		return r, nil
	case config.TransportMQTT:
		return NewMQTT(rc.MqttBroker, rc.MqttUser, rc.MqttPassword, rc.MqttPrefix, cfg.Sensor.Id, cfg.Sensor.Name, cfg.ReportTimeout(), log), nil
	}
	return nil, errors.NotSupportedf("report.transport=%s", rc.Transport)
}
