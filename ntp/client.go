/*
Copyright (c) The clockprobe authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ntp probes NTP servers. One probe is one client/server exchange;
// retries and repeated sampling are the caller's business.
package ntp

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	beevik "github.com/beevik/ntp"
	log "github.com/sirupsen/logrus"

	"github.com/clocktools/clockprobe/probe"
)

// DefaultPort is the well-known NTP port.
const DefaultPort uint16 = 123

// Prober performs plain (unauthenticated) NTPv4 exchanges.
type Prober struct {
	// Version of the protocol to speak. Zero means NTPv4.
	Version int
}

// Probe sends a single NTP request to the resolved endpoint and converts the
// response into a raw measurement. The timeout covers the whole exchange.
func (p *Prober) Probe(ctx context.Context, ep probe.Endpoint, timeout time.Duration) (*probe.RawMeasurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, probe.WrapError(probe.KindOther, err, "probe aborted")
	}
	addr := net.JoinHostPort(ep.IP.String(), strconv.Itoa(int(ep.Port)))
	opts := beevik.QueryOptions{Timeout: timeout}
	if p.Version != 0 {
		opts.Version = p.Version
	}
	log.Debugf("ntp query %s", addr)
	r, err := beevik.QueryWithOptions(addr, opts)
	if err != nil {
		return nil, classify(err)
	}
	if err := r.Validate(); err != nil {
		return nil, probe.WrapError(probe.KindProtocol, err, "invalid response from %s", addr)
	}
	return Convert(r), nil
}

// Convert turns a validated NTP response into the protocol-agnostic
// measurement shape.
func Convert(r *beevik.Response) *probe.RawMeasurement {
	return &probe.RawMeasurement{
		OffsetMS: float64(r.ClockOffset) / float64(time.Millisecond),
		RTTMS:    float64(r.RTT) / float64(time.Millisecond),
		UTC:      r.Time.UTC(),
		NTP: &probe.NTPData{
			Stratum:        r.Stratum,
			ReferenceID:    RefIDToString(r.ReferenceID),
			Time:           r.ReferenceTime,
			RootDelay:      r.RootDelay,
			RootDispersion: r.RootDispersion,
			Precision:      r.Precision,
			Poll:           r.Poll,
			Leap:           uint8(r.Leap),
			KissCode:       r.KissCode,
		},
	}
}

// classify maps transport and protocol errors into the probe taxonomy.
// Network-level failures keep their transient flavor; everything the server
// said that we couldn't make sense of is a protocol violation.
func classify(err error) *probe.Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return probe.WrapError(probe.KindTimeout, err, "request timed out")
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return probe.WrapError(probe.KindNetwork, err, "network error")
	}
	return probe.WrapError(probe.KindProtocol, err, "ntp exchange failed")
}

// RefIDToString renders a reference ID the way ntpq does: printable ASCII
// for reference clocks (stratum 1), hex for anything that doesn't decode.
func RefIDToString(refID uint32) string {
	result := make([]rune, 0, 4)
	for i := 0; i < 4; i++ {
		c := rune((refID >> (24 - uint(i)*8)) & 0xff)
		if c == 0 {
			continue
		}
		if !strconv.IsPrint(c) {
			return "0x" + strconv.FormatUint(uint64(refID), 16)
		}
		result = append(result, c)
	}
	return string(result)
}
