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

package probe

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Querier is the single-target query service: parse, resolve, probe. It is
// the unit of concurrency for the compare fan-out.
type Querier struct {
	Prober   Prober
	Lookup   LookupFunc // nil means system DNS
	IPv6Only bool
	Timeout  time.Duration
	// DefaultPort is used when the target string carries no port.
	DefaultPort uint16
}

// Query probes one target and returns a fully-stamped Measurement. Any
// failure short-circuits; a partial Measurement is never returned.
func (q *Querier) Query(ctx context.Context, target string) (*Measurement, error) {
	parsed, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	// An IPv6 literal can only ever resolve to IPv6, whatever the caller
	// asked for.
	ipv6 := q.IPv6Only || parsed.IPv6Literal

	ip, err := ResolveIP(ctx, q.Lookup, parsed.Host, ipv6)
	if err != nil {
		return nil, err
	}
	port := parsed.PortOrDefault(q.DefaultPort)
	log.Debugf("probing %s (%s:%d)", target, ip, port)

	raw, err := q.Prober.Probe(ctx, Endpoint{Host: parsed.Host, IP: ip, Port: port}, q.Timeout)
	if err != nil {
		return nil, err
	}

	utc := raw.UTC
	if utc.IsZero() {
		utc = time.Now().UTC()
	}
	return &Measurement{
		Target:        Target{Name: target, IP: ip, Port: port},
		OffsetMS:      raw.OffsetMS,
		RTTMS:         raw.RTTMS,
		UTC:           utc,
		Local:         utc.Local(),
		Timestamp:     utc.Unix(),
		Authenticated: raw.Authenticated,
		NTP:           raw.NTP,
		NTS:           raw.NTS,
		PTP:           raw.PTP,
	}, nil
}
