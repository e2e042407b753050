// Bench commands to check one stage against real hardware.
package probe

import (
	"context"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/temoto/tempagent/cmd/tempagent/subcmd"
	"github.com/temoto/tempagent/hardware"
	"github.com/temoto/tempagent/helpers"
	"github.com/temoto/tempagent/internal/agent"
	"github.com/temoto/tempagent/internal/config"
)

var SensorMod = subcmd.Mod{Name: "sensor", Usage: "read temperature and print", Main: Sensor}
var JoinMod = subcmd.Mod{Name: "join", Usage: "join network, print address, disconnect", Main: Join}

func Sensor(ctx context.Context, env *subcmd.Env) error {
	_, h, err := initialize(env)
	defer h.Close()
	if err != nil {
		return err
	}
	r := agent.NewReader(h.Bus, helpers.NewElapsed(nil).Get, env.Log)
	reading, err := r.Read()
	if err != nil {
		return errors.Annotate(err, "sensor")
	}
	fmt.Fprintln(os.Stdout, reading.String())
	return nil
}

func Join(ctx context.Context, env *subcmd.Env) error {
	cfg, h, err := initialize(env)
	defer h.Close()
	if err != nil {
		return err
	}
	j := agent.NewJoiner(h.Radio, env.Log)
	session, err := j.Join(cfg.Network.SSID, cfg.Network.Secret, cfg.JoinTimeout())
	defer func() {
		if err := j.Disconnect(); err != nil {
			env.Log.Error(err)
		}
	}()
	if err != nil {
		return errors.Annotatef(err, "ssid=%s", cfg.Network.SSID)
	}
	fmt.Fprintf(os.Stdout, "ssid=%s status=%s address=%s\n", cfg.Network.SSID, session.Status, session.LocalAddress)
	return nil
}

// initialize returned handles are nil-safe to Close on error.
func initialize(env *subcmd.Env) (*config.Config, *agent.BoardHandles, error) {
	cfg, err := env.ReadConfig()
	if err != nil {
		return nil, nil, errors.Annotate(err, "config")
	}
	env.Log.SetLevel(cfg.LogLevel())
	h, err := agent.Initialize(hardware.NewBoard(cfg, env.Log), cfg.Network.Region)
	return cfg, h, err
}
