// Package wifi joins wireless network in station mode through wpa_supplicant control interface.
package wifi

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/tempagent/helpers"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

const DefaultCommandTimeout = 3 * time.Second

// Runner executes external command and returns combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Wpa struct {
	Iface   string
	Timeout time.Duration
	log     *log2.Log
	run     Runner

	netId  string
	status map[string]string
}

var _ types.Radio = &Wpa{}

func NewWpa(iface string, log *log2.Log, run Runner) *Wpa {
	if run == nil {
		run = ExecRunner
	}
	return &Wpa{
		Iface:   iface,
		Timeout: DefaultCommandTimeout,
		log:     log,
		run:     run,
	}
}

func (self *Wpa) SetRegion(code string) error {
	_, err := self.cli("set", "country", code)
	return errors.Annotatef(err, "wifi region=%s", code)
}

func (self *Wpa) Activate(mode types.RadioMode) error {
	if mode != types.RadioStation {
		return errors.NotSupportedf("wifi mode=%s", mode)
	}
	ctx, cancel := context.WithTimeout(context.Background(), self.Timeout)
	defer cancel()
	if out, err := self.run(ctx, "ip", "link", "set", "dev", self.Iface, "up"); err != nil {
		return errors.Annotatef(err, "wifi link up iface=%s output=%s", self.Iface, strings.TrimSpace(string(out)))
	}
	pong, err := self.cli("ping")
	if err != nil {
		return errors.Annotate(err, "wifi activate")
	}
	if pong != "PONG" {
		return errors.Errorf("wifi activate: wpa_supplicant ping response=%q", pong)
	}
	return nil
}

var reNetId = regexp.MustCompile(`^\d+$`)

// Connect replaces all configured networks with one and selects it, returns without waiting.
func (self *Wpa) Connect(ssid, secret string) error {
	if _, err := self.cli("remove_network", "all"); err != nil {
		return errors.Annotate(err, "wifi connect")
	}
	id, err := self.cli("add_network")
	if err != nil {
		return errors.Annotate(err, "wifi connect")
	}
	if !reNetId.MatchString(id) {
		return errors.Errorf("wifi connect: add_network unexpected response=%q", id)
	}
	steps := [][]string{
		{"set_network", id, "ssid", quote(ssid)},
		{"set_network", id, "psk", quote(secret)},
		{"select_network", id},
	}
	for _, args := range steps {
		if _, err = self.cli(args...); err != nil {
			return errors.Annotatef(err, "wifi connect ssid=%s", ssid)
		}
	}
	self.netId = id
	self.status = nil
	return nil
}

func (self *Wpa) Status() types.RadioStatus {
	if self.netId == "" {
		return types.StatusIdle
	}
	out, err := self.cli("status")
	if err != nil {
		self.log.Errorf("wifi status: %v", err)
		return types.StatusLinkFailed
	}
	self.status = parseKV(out)
	switch state := self.status["wpa_state"]; state {
	case "COMPLETED":
		if self.status["ip_address"] != "" {
			return types.StatusJoined
		}
		return types.StatusConnecting
	case "INTERFACE_DISABLED":
		return types.StatusLinkFailed
	case "DISCONNECTED", "SCANNING", "INACTIVE":
		if self.tempDisabled() {
			return types.StatusAuthFailed
		}
		return types.StatusConnecting
	default:
		self.log.Debugf("wifi wpa_state=%s", state)
		return types.StatusConnecting
	}
}

func (self *Wpa) LocalAddress() (string, bool) {
	addr := self.status["ip_address"]
	return addr, addr != ""
}

func (self *Wpa) Disconnect() error {
	if self.netId == "" {
		return nil
	}
	errs := make([]error, 0, 2)
	if _, err := self.cli("disconnect"); err != nil {
		errs = append(errs, err)
	}
	if _, err := self.cli("remove_network", self.netId); err != nil {
		errs = append(errs, err)
	}
	self.netId = ""
	self.status = nil
	return errors.Annotate(helpers.FoldErrors(errs), "wifi disconnect")
}

// wpa_supplicant marks network TEMP-DISABLED after handshake failures, most often wrong key.
func (self *Wpa) tempDisabled() bool {
	out, err := self.cli("list_networks")
	if err != nil {
		self.log.Debugf("wifi list_networks: %v", err)
		return false
	}
	s := bufio.NewScanner(strings.NewReader(out))
	for s.Scan() {
		fields := strings.Split(s.Text(), "\t")
		if len(fields) >= 4 && fields[0] == self.netId {
			return strings.Contains(fields[3], "[TEMP-DISABLED]")
		}
	}
	return false
}

// cli does not include arguments in errors, they may contain secret.
func (self *Wpa) cli(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), self.Timeout)
	defer cancel()
	full := append([]string{"-i", self.Iface}, args...)
	out, err := self.run(ctx, "wpa_cli", full...)
	s := strings.TrimSpace(string(out))
	if err != nil {
		return s, errors.Annotatef(err, "wpa_cli %s", args[0])
	}
	if s == "FAIL" || strings.HasPrefix(s, "FAIL-") || s == "UNKNOWN COMMAND" {
		return s, errors.Errorf("wpa_cli %s response=%s", args[0], s)
	}
	return s, nil
}

func quote(s string) string {
	return `"` + s + `"`
}

func parseKV(s string) map[string]string {
	m := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '='); i > 0 {
			m[line[:i]] = line[i+1:]
		}
	}
	return m
}
