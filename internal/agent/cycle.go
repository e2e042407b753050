// Package agent runs one telemetry cycle: init, join, read, report, teardown, suspend.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/tempagent/helpers"
	"github.com/temoto/tempagent/internal/config"
	"github.com/temoto/tempagent/internal/report"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

// Radio stack needs this after join before application traffic.
const DefaultJoinSettle = 1 * time.Second

type State uint8

const (
	StateInvalid State = iota
	StateInit
	StateJoining
	StateReading
	StateReporting
	StateCleanup
	StateErrorRecovery
	StateSleeping
	StateDone
)

var stateNames = [...]string{"invalid", "init", "joining", "reading", "reporting", "cleanup", "error-recovery", "sleeping", "done"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

type Controller struct {
	Config     *config.Config
	Board      types.Board
	Reporter   report.Reporter
	Suspender  types.Suspender // nil = return after cycle without suspend
	JoinSettle time.Duration

	log          *log2.Log
	sleep        func(time.Duration)
	now          func() time.Time
	XXX_testHook func(State)
}

func NewController(cfg *config.Config, board types.Board, reporter report.Reporter, suspender types.Suspender, log *log2.Log) *Controller {
	return &Controller{
		Config:     cfg,
		Board:      board,
		Reporter:   reporter,
		Suspender:  suspender,
		JoinSettle: DefaultJoinSettle,
		log:        log,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Summary is the only thing that leaves a cycle.
type Summary struct {
	Trace   []State
	Stage   State // where Err happened
	Err     error
	Address string
	Reading *types.TemperatureReading
	Outcome *types.DeliveryOutcome
	Active  time.Duration // wake to suspend
	Suspend error
}

func (s *Summary) String() string {
	b := strings.Builder{}
	if s.Err != nil {
		fmt.Fprintf(&b, "error stage=%s %v", s.Stage, s.Err)
	} else {
		b.WriteString("ok")
	}
	if s.Reading != nil {
		fmt.Fprintf(&b, " reading=%s", s.Reading.StateString())
	}
	if s.Outcome != nil {
		fmt.Fprintf(&b, " %s", s.Outcome.String())
	}
	fmt.Fprintf(&b, " active=%v", s.Active.Round(time.Millisecond))
	return b.String()
}

type cycle struct {
	elapsed  helpers.Elapsed
	h        *BoardHandles
	joiner   *Joiner
	summary  Summary
	tornDown bool
}

func (c *cycle) fail(stage State, err error) {
	c.summary.Stage = stage
	c.summary.Err = err
}

// Run never returns error, every failure routes through teardown into Sleeping.
func (self *Controller) Run(ctx context.Context) Summary {
	cy := &cycle{elapsed: helpers.NewElapsed(self.now)}
	for next := StateInit; next != StateDone; {
		cy.summary.Trace = append(cy.summary.Trace, next)
		current := next
		next = self.enter(ctx, cy, current)
		if next == StateInvalid {
			self.log.Fatalf("code error cycle state=%s next=invalid", current)
		}
		if self.XXX_testHook != nil {
			self.XXX_testHook(next)
		}
	}
	return cy.summary
}

func (self *Controller) enter(ctx context.Context, cy *cycle, s State) State {
	self.log.Debugf("cycle enter %s at=%v", s, cy.elapsed.Get())
	switch s {
	case StateInit:
		h, err := Initialize(self.Board, self.Config.Network.Region)
		cy.h = h
		if err == nil {
			if err = h.Indicator.On(); err != nil {
				err = errors.Trace(types.InitError{Peripheral: "indicator", E: err})
			}
		}
		if err != nil {
			cy.fail(s, err)
			return StateErrorRecovery
		}
		cy.joiner = NewJoiner(h.Radio, self.log)
		cy.joiner.sleep = self.sleep
		return StateJoining

	case StateJoining:
		session, err := cy.joiner.Join(self.Config.Network.SSID, self.Config.Network.Secret, self.Config.JoinTimeout())
		if err != nil {
			cy.fail(s, err)
			return StateErrorRecovery
		}
		cy.summary.Address = session.LocalAddress
		self.log.Infof("cycle joined ssid=%s address=%s at=%v", self.Config.Network.SSID, session.LocalAddress, cy.elapsed.Get())
		self.sleep(self.JoinSettle)
		return StateReading

	case StateReading:
		r := NewReader(cy.h.Bus, cy.elapsed.Get, self.log)
		r.sleep = self.sleep
		reading, err := r.Read()
		if err != nil {
			// session is established, skip reporting but disconnect normally
			cy.fail(s, err)
			self.log.Errorf("cycle stage=%s %v", s, err)
			return StateCleanup
		}
		cy.summary.Reading = &reading
		self.log.Infof("cycle reading %s", reading.String())
		return StateReporting

	case StateReporting:
		outcome := self.Reporter.Report(ctx, *cy.summary.Reading)
		cy.summary.Outcome = &outcome
		switch outcome.Kind {
		case types.OutcomeDelivered:
			self.log.Infof("cycle report %s", outcome.String())
		case types.OutcomeAmbiguous:
			self.log.Infof("cycle report probably delivered %s", outcome.String())
		default:
			self.log.Errorf("cycle report %s", outcome.String())
		}
		return StateCleanup

	case StateErrorRecovery:
		self.log.Errorf("cycle stage=%s %s", cy.summary.Stage, errors.ErrorStack(cy.summary.Err))
		self.teardown(cy)
		return StateSleeping

	case StateCleanup:
		self.teardown(cy)
		return StateSleeping

	case StateSleeping:
		cy.summary.Active = cy.elapsed.Get()
		if self.Suspender == nil {
			return StateDone
		}
		interval := self.Config.Interval()
		self.log.Debugf("cycle suspend for=%v", interval)
		if err := self.Suspender.SuspendFor(ctx, interval); err != nil {
			cy.summary.Suspend = err
			self.log.Errorf("cycle suspend: %v", err)
		}
		return StateDone
	}
	return StateInvalid
}

// teardown runs once per cycle: disconnect, indicator off, release handles.
// Missing session or handles are skipped silently.
func (self *Controller) teardown(cy *cycle) {
	if cy.tornDown {
		return
	}
	cy.tornDown = true
	h := cy.h
	if h == nil {
		return
	}
	errs := make([]error, 0, 3)
	if h.Radio != nil {
		j := cy.joiner
		if j == nil {
			j = NewJoiner(h.Radio, self.log)
		}
		errs = append(errs, j.Disconnect())
	}
	if h.Indicator != nil {
		errs = append(errs, errors.Annotate(h.Indicator.Off(), "indicator off"))
	}
	errs = append(errs, h.Close())
	if err := helpers.FoldErrors(errs); err != nil {
		self.log.Errorf("cycle teardown: %v", err)
	}
}
