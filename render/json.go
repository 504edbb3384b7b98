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

package render

import (
	"encoding/json"
	"time"

	"github.com/clocktools/clockprobe/probe"
)

// SchemaVersion identifies the JSON output layout. Bump on any
// backwards-incompatible field change.
const SchemaVersion = 1

// Envelope wraps every JSON result list.
type Envelope struct {
	SchemaVersion int         `json:"schema_version"`
	RunTS         string      `json:"run_ts"`
	Results       interface{} `json:"results"`
}

type resultJSON struct {
	Server        string          `json:"server"`
	IP            string          `json:"ip"`
	OffsetMS      float64         `json:"offset_ms"`
	RTTMS         float64         `json:"rtt_ms"`
	UTC           string          `json:"utc"`
	Local         string          `json:"local"`
	Authenticated bool            `json:"authenticated"`
	Stratum       *uint8          `json:"stratum,omitempty"`
	RefID         *string         `json:"ref_id,omitempty"`
	NTS           *probe.NTSData  `json:"nts,omitempty"`
	PTP           *probe.PTPData  `json:"ptp,omitempty"`
	Error         *string         `json:"error,omitempty"`
}

type shortJSON struct {
	Server   string  `json:"server"`
	IP       string  `json:"ip"`
	OffsetMS float64 `json:"offset_ms"`
	RTTMS    float64 `json:"rtt_ms"`
}

type statsJSON struct {
	Server string       `json:"server"`
	Stats  *probe.Stats `json:"stats"`
}

type statsListJSON struct {
	Targets     []statsJSON `json:"targets"`
	MaxAvgDrift *float64    `json:"max_avg_drift_ms,omitempty"`
}

func toResult(m *probe.Measurement, verbose bool) resultJSON {
	r := resultJSON{
		Server:        m.Target.Name,
		IP:            m.Target.IP.String(),
		OffsetMS:      m.OffsetMS,
		RTTMS:         m.RTTMS,
		UTC:           m.UTC.Format(time.RFC3339),
		Local:         m.Local.Format(time.RFC3339),
		Authenticated: m.Authenticated,
		NTS:           m.NTS,
		PTP:           m.PTP,
	}
	if verbose && m.NTP != nil {
		stratum := m.NTP.Stratum
		refID := m.NTP.ReferenceID
		r.Stratum = &stratum
		r.RefID = &refID
	}
	return r
}

func encode(v interface{}, pretty bool) (string, error) {
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func envelope(results interface{}) Envelope {
	return Envelope{
		SchemaVersion: SchemaVersion,
		RunTS:         time.Now().UTC().Format(time.RFC3339),
		Results:       results,
	}
}

// JSON renders a list of measurements inside the versioned envelope.
// Stratum and reference ID only appear in verbose mode.
func JSON(ms []*probe.Measurement, verbose, pretty bool) (string, error) {
	results := make([]resultJSON, 0, len(ms))
	for _, m := range ms {
		results = append(results, toResult(m, verbose))
	}
	return encode(envelope(results), pretty)
}

// CompareJSON renders a comparison batch. Failed targets stay in the result
// list with an error string so the target count is preserved.
func CompareJSON(outcomes []probe.Outcome, verbose, pretty bool) (string, error) {
	results := make([]resultJSON, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			msg := o.Err.Error()
			results = append(results, resultJSON{Server: o.Target, Error: &msg})
			continue
		}
		results = append(results, toResult(o.Measurement, verbose))
	}
	return encode(envelope(results), pretty)
}

// ShortJSON renders the compact single-object form without the envelope.
func ShortJSON(m *probe.Measurement, pretty bool) (string, error) {
	return encode(shortJSON{
		Server:   m.Target.Name,
		IP:       m.Target.IP.String(),
		OffsetMS: m.OffsetMS,
		RTTMS:    m.RTTMS,
	}, pretty)
}

// StatsJSON renders the aggregate of one sampled target.
func StatsJSON(name string, st *probe.Stats, pretty bool) (string, error) {
	return encode(envelope(statsJSON{Server: name, Stats: st}), pretty)
}

// StatsListJSON renders per-target aggregates plus the cross-target drift.
// Order follows names; targets with no samples keep a nil stats entry.
func StatsListJSON(names []string, stats map[string]*probe.Stats, pretty bool) (string, error) {
	list := statsListJSON{Targets: make([]statsJSON, 0, len(names))}
	for _, name := range names {
		list.Targets = append(list.Targets, statsJSON{Server: name, Stats: stats[name]})
	}
	if drift, ok := probe.MaxAvgDrift(stats); ok {
		list.MaxAvgDrift = &drift
	}
	return encode(envelope(list), pretty)
}
