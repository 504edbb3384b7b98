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

// Package nts probes NTS-enabled NTP servers: an NTS-KE handshake over TLS
// followed by an AEAD-authenticated NTP exchange. Every probe establishes a
// fresh session, so each measurement is independently authenticated.
package nts

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	beevikntp "github.com/beevik/ntp"
	beeviknts "github.com/beevik/nts"
	log "github.com/sirupsen/logrus"

	ntpprobe "github.com/clocktools/clockprobe/ntp"
	"github.com/clocktools/clockprobe/probe"
)

// DefaultKEPort is the well-known NTS-KE port.
const DefaultKEPort uint16 = 4460

// Prober performs authenticated NTP exchanges via NTS.
type Prober struct {
	// KEPort is the NTS-KE port on the target host.
	KEPort uint16
}

func (p *Prober) kePort() uint16 {
	if p.KEPort == 0 {
		return DefaultKEPort
	}
	return p.KEPort
}

// Probe runs NTS-KE against the target host name (the TLS handshake needs
// the name, not the resolved address) and then queries the negotiated NTP
// server. The timeout bounds the NTP exchange; the key exchange is bounded
// by the TLS dial defaults.
func (p *Prober) Probe(ctx context.Context, ep probe.Endpoint, timeout time.Duration) (*probe.RawMeasurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, probe.WrapError(probe.KindOther, err, "probe aborted")
	}
	keAddr := net.JoinHostPort(ep.Host, strconv.Itoa(int(p.kePort())))
	log.Debugf("nts-ke handshake with %s", keAddr)

	session, err := beeviknts.NewSession(keAddr)
	if err != nil {
		return nil, classifyKE(err)
	}

	r, err := session.QueryWithOptions(&beevikntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return nil, classifyQuery(err)
	}
	if err := r.Validate(); err != nil {
		return nil, probe.WrapError(probe.KindProtocol, err, "invalid response from %s", session.Address())
	}

	raw := ntpprobe.Convert(r)
	// Validate covers the AEAD extension fields
	raw.Authenticated = true
	raw.NTS = &probe.NTSData{
		NTPServer: session.Address(),
		KEHost:    ep.Host,
		KEPort:    p.kePort(),
	}
	return raw, nil
}

// classifyKE maps key-exchange failures. Handshake and certificate problems
// are authentication failures; plain connectivity issues keep their network
// flavor so monitoring can tell them apart.
func classifyKE(err error) *probe.Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return probe.WrapError(probe.KindTimeout, err, "nts-ke timed out")
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return probe.WrapError(probe.KindNetwork, err, "nts-ke connection failed")
	}
	return probe.WrapError(probe.KindAuth, err, "nts-ke handshake failed")
}

// classifyQuery maps failures of the authenticated NTP exchange. Anything
// that isn't a transport problem means the response failed cryptographic
// validation.
func classifyQuery(err error) *probe.Error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return probe.WrapError(probe.KindTimeout, err, "nts query timed out")
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return probe.WrapError(probe.KindNetwork, err, "nts query failed")
	}
	return probe.WrapError(probe.KindAuth, err, "nts validation failed")
}
