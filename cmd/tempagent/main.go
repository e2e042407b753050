package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
	"github.com/temoto/alive/v2"
	"github.com/temoto/tempagent/cmd/tempagent/cycle"
	"github.com/temoto/tempagent/cmd/tempagent/probe"
	"github.com/temoto/tempagent/cmd/tempagent/subcmd"
	"github.com/temoto/tempagent/log2"
)

var modules = []subcmd.Mod{
	cycle.RunMod,
	cycle.OnceMod,
	probe.SensorMod,
	probe.JoinMod,
}

func main() {
	flagConfig := flag.String("config", "tempagent.hcl", "")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [option...] [command]\n\nCommands:\n", os.Args[0])
		for _, m := range modules {
			fmt.Fprintf(flag.CommandLine.Output(), "  %-8s %s\n", m.Name, m.Usage)
		}
		fmt.Fprintf(flag.CommandLine.Output(), "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log := log2.NewStderr(log2.LDebug)
	if subcmd.SdNotify("start") || !isatty.IsTerminal(os.Stderr.Fd()) {
		// we're under systemd or journal, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	mqtt.ERROR = log
	mqtt.CRITICAL = log
	mqtt.WARN = log

	command := flag.Arg(0)
	if command == "" {
		command = cycle.RunMod.Name
	}
	mod, err := subcmd.Parse(command, modules)
	if err != nil {
		flag.Usage()
		log.Fatal(err)
	}

	a := alive.NewAlive()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		log.Infof("signal=%v stopping after current cycle", sig)
		a.Stop()
	}()

	ctx := context.WithValue(context.Background(), log2.ContextKey, log)
	env := &subcmd.Env{Log: log, Alive: a, ConfigPath: *flagConfig}
	if err := mod.Main(ctx, env); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
