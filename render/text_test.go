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
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/clocktools/clockprobe/probe"
)

func init() {
	color.NoColor = true
}

func sampleMeasurement() *probe.Measurement {
	utc := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &probe.Measurement{
		Target:   probe.Target{Name: "time.example.com", IP: net.ParseIP("192.0.2.1"), Port: 123},
		OffsetMS: 1.234,
		RTTMS:    20.5,
		UTC:      utc,
		Local:    utc,
		NTP: &probe.NTPData{
			Stratum:     2,
			ReferenceID: "GPS",
		},
	}
}

func samplePTPMeasurement() *probe.Measurement {
	m := sampleMeasurement()
	m.NTP = nil
	m.PTP = &probe.PTPData{
		Domain:            0,
		OffsetNS:          1234,
		MeanPathDelayNS:   500,
		MasterIdentity:    "00:1B:21:FF:FE:12:34:56",
		ClockClass:        6,
		ClockClassDesc:    "Primary reference (GPS/Atomic)",
		ClockAccuracyDesc: "within 100 ns",
		TimeSource:        "GPS",
	}
	return m
}

func TestMeasurement(t *testing.T) {
	out := Measurement(sampleMeasurement(), false)
	require.Contains(t, out, "Server: time.example.com")
	require.Contains(t, out, "IP: 192.0.2.1 (v4)")
	require.Contains(t, out, "Clock Offset: 1.234 ms")
	require.Contains(t, out, "Round Trip Delay: 20.500 ms")
	require.NotContains(t, out, "Stratum")

	out = Measurement(sampleMeasurement(), true)
	require.Contains(t, out, "Stratum: 2")
	require.Contains(t, out, "Reference ID: GPS")
}

func TestMeasurementNTS(t *testing.T) {
	m := sampleMeasurement()
	m.Authenticated = true
	m.NTS = &probe.NTSData{NTPServer: "ntp.example.com:123", KEHost: "time.example.com", KEPort: 4460}
	out := Measurement(m, false)
	require.Contains(t, out, "Authenticated: true (NTS)")
	require.Contains(t, out, "NTP Server: ntp.example.com:123")
}

func TestMeasurementPTP(t *testing.T) {
	out := Measurement(samplePTPMeasurement(), false)
	require.Contains(t, out, "Clock Offset: 1234 ns")
	require.Contains(t, out, "Mean Path Delay: 500 ns")
	require.Contains(t, out, "Grandmaster: 00:1B:21:FF:FE:12:34:56")
	require.Contains(t, out, "Clock Class: 6 (Primary reference (GPS/Atomic))")
	require.Contains(t, out, "Time Source: GPS")
}

func TestShortAndSimple(t *testing.T) {
	m := sampleMeasurement()
	require.Equal(t, "time.example.com [192.0.2.1 v4]: 1.234 ms", Short(m))
	require.Equal(t, "time.example.com 1.234 ms rtt 20.500 ms", Simple(m))

	p := samplePTPMeasurement()
	require.Equal(t, "time.example.com:0 1234 ns", Short(p))
	require.Equal(t, "time.example.com:0 1234 ns delay 500 ns", Simple(p))
}

func TestCompareOutput(t *testing.T) {
	a := sampleMeasurement()
	b := sampleMeasurement()
	b.Target.Name = "other.example.com"
	b.OffsetMS = -1.766

	out := Compare([]probe.Outcome{
		{Target: a.Target.Name, Measurement: a},
		{Target: b.Target.Name, Measurement: b},
	})
	require.Contains(t, out, "Comparing time.example.com and other.example.com")
	require.Contains(t, out, "Max drift: 3.000 ms")
}

func TestCompareWithFailure(t *testing.T) {
	a := sampleMeasurement()
	out := Compare([]probe.Outcome{
		{Target: a.Target.Name, Measurement: a},
		{Target: "down.example.com", Err: probe.Errorf(probe.KindTimeout, "request timed out")},
		{Target: a.Target.Name, Measurement: a},
	})
	require.Contains(t, out, "Comparing: 3 servers")
	require.Contains(t, out, "down.example.com: timeout: request timed out")
	// drift needs two successes, here both have the same offset
	require.Contains(t, out, "Max drift: 0.000 ms")
}

func TestCompareTable(t *testing.T) {
	var buf bytes.Buffer
	CompareTable(&buf, []*probe.Measurement{sampleMeasurement()})
	out := buf.String()
	require.Contains(t, strings.ToLower(out), "server")
	require.Contains(t, out, "time.example.com")
	require.Contains(t, out, "1.234")
}

func TestStatsLine(t *testing.T) {
	st := &probe.Stats{Count: 5, OffsetAvg: 1.5, OffsetMin: -0.5, OffsetMax: 3.5, OffsetStddev: 1.2, RTTAvg: 22}
	out := Stats("time.example.com", st)
	require.Contains(t, out, "time.example.com")
	require.Contains(t, out, "avg 1.500 ms")
	require.Contains(t, out, "min -0.500")
	require.Contains(t, out, "5 samples")
}

func TestDrift(t *testing.T) {
	require.Equal(t, "Max avg drift: 2.345 ms", Drift(2.3451))
}
