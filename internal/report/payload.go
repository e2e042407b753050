// Package report delivers a reading to Home Assistant over HTTP REST or MQTT.
package report

import (
	"github.com/temoto/tempagent/internal/types"
)

const UnitCelsius = "C"

type Payload struct {
	State      string     `json:"state"`
	Attributes Attributes `json:"attributes"`
}

type Attributes struct {
	FriendlyName      string `json:"friendly_name"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
}

func NewPayload(r types.TemperatureReading, name string) Payload {
	return Payload{
		State: r.StateString(),
		Attributes: Attributes{
			FriendlyName:      name,
			UnitOfMeasurement: UnitCelsius,
		},
	}
}

// Discovery is Home Assistant MQTT discovery config for one sensor.
type Discovery struct {
	Name              string `json:"name"`
	UniqueId          string `json:"unique_id"`
	StateTopic        string `json:"state_topic"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
}

func failed(detail string) types.DeliveryOutcome {
	return types.DeliveryOutcome{Kind: types.OutcomeFailed, Detail: detail}
}

func ambiguous(detail string) types.DeliveryOutcome {
	return types.DeliveryOutcome{Kind: types.OutcomeAmbiguous, Detail: detail}
}
