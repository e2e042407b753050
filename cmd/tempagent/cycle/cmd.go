// Telemetry cycle commands: run forever with suspend or once for bench testing.
package cycle

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/tempagent/cmd/tempagent/subcmd"
	"github.com/temoto/tempagent/hardware"
	"github.com/temoto/tempagent/hardware/power"
	"github.com/temoto/tempagent/internal/agent"
	"github.com/temoto/tempagent/internal/config"
	"github.com/temoto/tempagent/internal/report"
	"github.com/temoto/tempagent/internal/types"
)

var RunMod = subcmd.Mod{Name: "run", Usage: "cycle, suspend, repeat", Main: Run}
var OnceMod = subcmd.Mod{Name: "once", Usage: "single cycle without suspend", Main: Once}

func Run(ctx context.Context, env *subcmd.Env) error {
	var errCount uint32
	env.Log.SetErrorFunc(func(error) { atomic.AddUint32(&errCount, 1) })
	subcmd.SdNotify(daemon.SdNotifyReady)
	defer subcmd.SdNotify(daemon.SdNotifyStopping)

	for n := 1; env.Alive.IsRunning(); n++ {
		// nothing survives suspend, not even config
		cfg, board, err := prepare(env)
		if err != nil {
			return err
		}
		suspender, err := board.Suspender(env.Alive)
		if err != nil {
			return err
		}
		c, err := newController(env, board, suspender)
		if err != nil {
			return err
		}
		sum := c.Run(ctx)
		env.Log.Infof("cycle=%d %s", n, sum.String())
		subcmd.SdNotify(fmt.Sprintf("STATUS=cycle=%d errors=%d %s", n, atomic.LoadUint32(&errCount), sum.String()))

		if sum.Suspend != nil && errors.Cause(sum.Suspend) != power.ErrInterrupted && env.Alive.IsRunning() {
			// broken suspend must not turn into busy loop
			env.Log.Errorf("suspend failed, fallback to sleep")
			_ = power.NewSleep(env.Alive).SuspendFor(ctx, cfg.Interval())
		}
	}
	return nil
}

func Once(ctx context.Context, env *subcmd.Env) error {
	_, board, err := prepare(env)
	if err != nil {
		return err
	}
	c, err := newController(env, board, nil)
	if err != nil {
		return err
	}
	sum := c.Run(ctx)
	env.Log.Infof("%s", sum.String())
	if sum.Err != nil {
		return errors.Annotatef(sum.Err, "stage=%s", sum.Stage)
	}
	return nil
}

func prepare(env *subcmd.Env) (*config.Config, *hardware.Board, error) {
	cfg, err := env.ReadConfig()
	if err != nil {
		return nil, nil, errors.Annotate(err, "config")
	}
	env.Log.SetLevel(cfg.LogLevel())
	return cfg, hardware.NewBoard(cfg, env.Log), nil
}

func newController(env *subcmd.Env, board *hardware.Board, suspender types.Suspender) (*agent.Controller, error) {
	reporter, err := report.New(board.Config, nil, env.Log)
	if err != nil {
		return nil, err
	}
	return agent.NewController(board.Config, board, reporter, suspender, env.Log), nil
}
