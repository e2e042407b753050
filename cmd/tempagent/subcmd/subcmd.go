// Support sub-commands in tempagent application.
package subcmd

import (
	"context"
	"fmt"
	"log"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/tempagent/internal/config"
	"github.com/temoto/tempagent/log2"
)

// Env is shared by all commands. Config is not here, cycle must read it fresh.
type Env struct {
	Log        *log2.Log
	Alive      *alive.Alive
	ConfigPath string
}

func (e *Env) ReadConfig() (*config.Config, error) {
	return config.ReadConfig(e.Log, config.NewOsFullReader(), e.ConfigPath)
}

type Mod struct {
	Name  string
	Usage string
	Main  func(context.Context, *Env) error
}

func Parse(command string, modules []Mod) (*Mod, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}

	var found *Mod
	for i := range modules {
		m := &modules[i]
		if m.Name == "" {
			panic(fmt.Sprintf("code error Name='' module=%#v", m))
		}
		if command == m.Name {
			found = m
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("unknown command='%s'", command)
	}
	return found, nil
}

func SdNotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
