package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/tempagent/internal/types"
	"github.com/temoto/tempagent/log2"
)

const maxResponseBody = 4 << 10

type HTTP struct {
	Host     string
	Token    string
	SensorId string
	Name     string
	// Verify re-reads state after ambiguous post.
	Verify bool

	client *http.Client
	log    *log2.Log
}

// NewHTTP transport nil means http.DefaultTransport.
func NewHTTP(host, token, sensorId, name string, timeout time.Duration, transport http.RoundTripper, log *log2.Log) *HTTP {
	return &HTTP{
		Host:     host,
		Token:    token,
		SensorId: sensorId,
		Name:     name,
		client:   &http.Client{Timeout: timeout, Transport: transport},
		log:      log,
	}
}

func (self *HTTP) URL() string {
	return "http://" + self.Host + "/api/states/sensor." + self.SensorId
}

// Report posts once, never retries.
// Transport error after connect is ambiguous, body could be already accepted.
func (self *HTTP) Report(ctx context.Context, r types.TemperatureReading) types.DeliveryOutcome {
	p := NewPayload(r, self.Name)
	body, err := json.Marshal(p)
	if err != nil {
		return failed(errors.Annotate(err, "json").Error())
	}
	req, err := self.newRequest(ctx, http.MethodPost, bytes.NewReader(body))
	if err != nil {
		return failed(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	self.log.Debugf("report http POST %s body=%s", req.URL, body)
	resp, err := self.client.Do(req)
	if err != nil {
		terr := types.TransportError{Op: "post", E: err}
		if isDialError(err) {
			return failed(terr.Error())
		}
		outcome := ambiguous(terr.Error())
		if self.Verify {
			outcome = self.verify(ctx, p, outcome)
		}
		return outcome
	}
	defer resp.Body.Close()
	respBody, _ := ioutil.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return types.DeliveryOutcome{Delivered: true, Kind: types.OutcomeDelivered, StatusCode: resp.StatusCode}
	}
	return types.DeliveryOutcome{
		Kind:       types.OutcomeRejected,
		StatusCode: resp.StatusCode,
		Detail:     firstLine(respBody),
	}
}

// verify may only upgrade ambiguous to delivered.
func (self *HTTP) verify(ctx context.Context, sent Payload, outcome types.DeliveryOutcome) types.DeliveryOutcome {
	keep := func(reason string) types.DeliveryOutcome {
		self.log.Debugf("report verify %s", reason)
		outcome.Detail += " verify: " + reason
		return outcome
	}
	req, err := self.newRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return keep(err.Error())
	}
	resp, err := self.client.Do(req)
	if err != nil {
		return keep(types.TransportError{Op: "verify", E: err}.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return keep("status=" + resp.Status)
	}
	var got Payload
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&got); err != nil {
		return keep(errors.Annotate(err, "json").Error())
	}
	if got.State != sent.State {
		return keep("state=" + got.State)
	}
	return types.DeliveryOutcome{
		Delivered:  true,
		Kind:       types.OutcomeDelivered,
		StatusCode: resp.StatusCode,
		Detail:     "confirmed by re-check after " + outcome.Detail,
	}
}

func (self *HTTP) newRequest(ctx context.Context, method string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, self.URL(), body)
	if err != nil {
		return nil, errors.Annotate(err, "report request")
	}
	req.Header.Set("Authorization", "Bearer "+self.Token)
	return req, nil
}

// Failed dial means request never left the device.
func isDialError(err error) bool {
	if ue, ok := err.(*url.Error); ok {
		err = ue.Err
	}
	oe, ok := err.(*net.OpError)
	return ok && oe.Op == "dial"
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
