package agent

import (
	"github.com/juju/errors"
	"github.com/temoto/tempagent/helpers"
	"github.com/temoto/tempagent/internal/types"
)

// BoardHandles are acquired at cycle start and released in teardown.
// Fields may be nil after partial Initialize failure.
type BoardHandles struct {
	Indicator types.Indicator
	Radio     types.Radio
	Bus       types.SensorBus
}

// Initialize acquires fresh handles, indicator off and radio region set.
// On error returned handles hold what was acquired so far, caller must Close.
func Initialize(board types.Board, region string) (*BoardHandles, error) {
	h := &BoardHandles{}
	var err error

	if h.Indicator, err = board.Indicator(); err != nil {
		return h, errors.Trace(types.InitError{Peripheral: "indicator", E: err})
	}
	if err = h.Indicator.Off(); err != nil {
		return h, errors.Trace(types.InitError{Peripheral: "indicator", E: err})
	}

	if h.Radio, err = board.Radio(); err != nil {
		return h, errors.Trace(types.InitError{Peripheral: "radio", E: err})
	}
	if err = h.Radio.SetRegion(region); err != nil {
		return h, errors.Trace(types.InitError{Peripheral: "radio", E: err})
	}

	if h.Bus, err = board.SensorBus(); err != nil {
		return h, errors.Trace(types.InitError{Peripheral: "sensor bus", E: err})
	}
	return h, nil
}

// Close is safe on partial and repeated use.
func (self *BoardHandles) Close() error {
	if self == nil {
		return nil
	}
	errs := make([]error, 0, 3)
	for _, x := range []interface{}{self.Bus, self.Radio, self.Indicator} {
		if x == nil {
			continue
		}
		if err := types.CloseIfCloser(x); err != nil {
			errs = append(errs, err)
		}
	}
	self.Bus, self.Radio, self.Indicator = nil, nil, nil
	return errors.Annotate(helpers.FoldErrors(errs), "board close")
}
