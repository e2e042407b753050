package agent

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

const DefaultPollInterval = 1 * time.Second

// Joiner owns at most one RadioSession.
type Joiner struct {
	Radio        types.Radio
	PollInterval time.Duration

	log     *log2.Log
	sleep   func(time.Duration)
	session *types.RadioSession
}

func NewJoiner(radio types.Radio, log *log2.Log) *Joiner {
	return &Joiner{
		Radio:        radio,
		PollInterval: DefaultPollInterval,
		log:          log,
		sleep:        time.Sleep,
	}
}

func (self *Joiner) Session() *types.RadioSession { return self.session }

// Join polls status once per PollInterval until terminal status or maxWait is spent.
// Only StatusJoined is success, anything else is JoinError with last observed status.
func (self *Joiner) Join(ssid, secret string, maxWait time.Duration) (types.RadioSession, error) {
	if self.session != nil {
		return types.RadioSession{}, errors.Errorf("code error Join() with active session")
	}
	if err := self.Radio.Activate(types.RadioStation); err != nil {
		return types.RadioSession{}, errors.Trace(types.JoinError{Status: types.StatusLinkFailed, Observed: types.StatusIdle, E: err})
	}
	if err := self.Radio.Connect(ssid, secret); err != nil {
		return types.RadioSession{}, errors.Trace(types.JoinError{Status: types.StatusLinkFailed, Observed: types.StatusIdle, E: err})
	}

	var status types.RadioStatus
	for left := int(maxWait / self.PollInterval); ; left-- {
		status = self.Radio.Status()
		self.log.Debugf("join ssid=%s status=%s", ssid, status)
		if status.Terminal() || left <= 0 {
			break
		}
		self.sleep(self.PollInterval)
	}

	if status != types.StatusJoined {
		je := types.JoinError{Status: status, Observed: status}
		if !status.Terminal() {
			je.Status = types.StatusTimeout
		}
		return types.RadioSession{}, errors.Trace(je)
	}
	addr, _ := self.Radio.LocalAddress()
	self.session = &types.RadioSession{Status: status, LocalAddress: addr}
	return *self.session, nil
}

// Disconnect tears down association or connection attempt.
// Radio drivers treat it as no-op without one.
func (self *Joiner) Disconnect() error {
	self.session = nil
	if self.Radio == nil {
		return nil
	}
	return errors.Annotate(self.Radio.Disconnect(), "join disconnect")
}
