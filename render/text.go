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

// Package render turns measurements, statistics and verdicts into terminal
// and JSON output. It only ever reads core data; a rendering problem is
// logged and never turns into a probe failure.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/clocktools/clockprobe/probe"
)

var (
	label = color.New(color.FgCyan, color.Bold).SprintFunc()
	value = color.New(color.FgGreen).SprintFunc()
	warn  = color.New(color.FgYellow).SprintFunc()
	bad   = color.New(color.FgRed).SprintFunc()
	em    = color.New(color.Bold).SprintFunc()
)

func ipVersion(m *probe.Measurement) string {
	if m.Target.IP.To4() == nil {
		return "v6"
	}
	return "v4"
}

// Measurement renders the full human-readable block for one probe.
func Measurement(m *probe.Measurement, verbose bool) string {
	if m.PTP != nil {
		return ptpMeasurement(m, verbose)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label("Server:"), value(m.Target.Name))
	fmt.Fprintf(&b, "%s %s (%s)\n", label("IP:"), value(m.Target.IP), ipVersion(m))
	fmt.Fprintf(&b, "%s %s\n", label("UTC Time:"), value(m.UTC.Format("Mon, 02 Jan 2006 15:04:05 -0700")))
	fmt.Fprintf(&b, "%s %s\n", label("Local Time:"), value(m.Local.Format("2006-01-02 15:04:05")))
	fmt.Fprintf(&b, "%s %.3f ms\n", label("Clock Offset:"), m.OffsetMS)
	fmt.Fprintf(&b, "%s %.3f ms", label("Round Trip Delay:"), m.RTTMS)
	if m.NTS != nil {
		fmt.Fprintf(&b, "\n%s %s", label("Authenticated:"), value(fmt.Sprintf("%v (NTS)", m.Authenticated)))
		fmt.Fprintf(&b, "\n%s %s", label("NTP Server:"), value(m.NTS.NTPServer))
	}
	if verbose && m.NTP != nil {
		fmt.Fprintf(&b, "\n%s %d", label("Stratum:"), m.NTP.Stratum)
		fmt.Fprintf(&b, "\n%s %s", label("Reference ID:"), m.NTP.ReferenceID)
		fmt.Fprintf(&b, "\n%s %v", label("Root Delay:"), m.NTP.RootDelay)
		fmt.Fprintf(&b, "\n%s %v", label("Root Dispersion:"), m.NTP.RootDispersion)
		fmt.Fprintf(&b, "\n%s %v", label("Precision:"), m.NTP.Precision)
		if m.NTP.KissCode != "" {
			fmt.Fprintf(&b, "\n%s %s", label("Kiss Code:"), m.NTP.KissCode)
		}
	}
	return b.String()
}

func ptpMeasurement(m *probe.Measurement, verbose bool) string {
	p := m.PTP
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label("Server:"), value(m.Target.Name))
	fmt.Fprintf(&b, "%s %s (%s)\n", label("IP:"), value(m.Target.IP), ipVersion(m))
	fmt.Fprintf(&b, "%s %d\n", label("PTP Domain:"), p.Domain)
	fmt.Fprintf(&b, "%s %d ns\n", label("Clock Offset:"), p.OffsetNS)
	fmt.Fprintf(&b, "%s %d ns\n", label("Mean Path Delay:"), p.MeanPathDelayNS)
	fmt.Fprintf(&b, "%s %s\n", label("Grandmaster:"), value(p.MasterIdentity))
	fmt.Fprintf(&b, "%s %d (%s)\n", label("Clock Class:"), p.ClockClass, p.ClockClassDesc)
	fmt.Fprintf(&b, "%s %s\n", label("Clock Accuracy:"), p.ClockAccuracyDesc)
	fmt.Fprintf(&b, "%s %s", label("Time Source:"), value(p.TimeSource))
	if verbose && p.Diagnostics != nil {
		d := p.Diagnostics
		fmt.Fprintf(&b, "\n%s %s", label("Master Port:"), d.MasterPortIdentity)
		fmt.Fprintf(&b, "\n%s %s", label("Timestamping:"), d.TimestampMode)
		fmt.Fprintf(&b, "\n%s %d", label("Steps Removed:"), d.StepsRemoved)
		fmt.Fprintf(&b, "\n%s %ds (valid: %v)", label("UTC Offset:"), d.CurrentUTCOffset, d.CurrentUTCOffsetValid)
		fmt.Fprintf(&b, "\n%s time %v, frequency %v", label("Traceable:"), d.TimeTraceable, d.FrequencyTraceable)
		fmt.Fprintf(&b, "\n%s %.3f ms", label("Duration:"), d.MeasurementDurationMS)
	}
	return b.String()
}

// Short is the one-line form used by repeated sampling.
func Short(m *probe.Measurement) string {
	if m.PTP != nil {
		return fmt.Sprintf("%s:%d %s", value(m.Target.Name), m.PTP.Domain,
			warn(fmt.Sprintf("%d ns", m.PTP.OffsetNS)))
	}
	return fmt.Sprintf("%s [%s %s]: %s", value(m.Target.Name), m.Target.IP, ipVersion(m),
		warn(fmt.Sprintf("%.3f ms", m.OffsetMS)))
}

// Simple is the short two-value form.
func Simple(m *probe.Measurement) string {
	if m.PTP != nil {
		return fmt.Sprintf("%s:%d %s delay %s", value(m.Target.Name), m.PTP.Domain,
			warn(fmt.Sprintf("%d ns", m.PTP.OffsetNS)),
			fmt.Sprintf("%d ns", m.PTP.MeanPathDelayNS))
	}
	return fmt.Sprintf("%s %s rtt %s", value(m.Target.Name),
		warn(fmt.Sprintf("%.3f ms", m.OffsetMS)),
		fmt.Sprintf("%.3f ms", m.RTTMS))
}

// Failure renders one failed target of a compare batch.
func Failure(target string, err error) string {
	return fmt.Sprintf("%s: %s", value(target), bad(err.Error()))
}

// Compare renders a comparison batch: header, one line per target and a
// drift summary over the successful measurements. The verbose breakdown is
// CompareTable's job.
func Compare(outcomes []probe.Outcome) string {
	var b strings.Builder
	ms := probe.Successes(outcomes)
	if len(outcomes) == 2 {
		fmt.Fprintf(&b, "%s %s and %s\n", em("Comparing"),
			value(outcomes[0].Target), value(outcomes[1].Target))
	} else {
		fmt.Fprintf(&b, "%s %d servers\n", em("Comparing:"), len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			b.WriteString(Failure(o.Target, o.Err))
			b.WriteByte('\n')
			continue
		}
		b.WriteString(Short(o.Measurement))
		b.WriteByte('\n')
	}
	if len(ms) >= 2 {
		min := math.Inf(1)
		max := math.Inf(-1)
		sum := 0.0
		for _, m := range ms {
			min = math.Min(min, m.OffsetMS)
			max = math.Max(max, m.OffsetMS)
			sum += m.OffsetMS
		}
		fmt.Fprintf(&b, "%s %.3f ms (min: %.3f, max: %.3f, avg: %.3f)\n",
			label("Max drift:"), max-min, min, max, sum/float64(len(ms)))
	}
	return b.String()
}

// CompareTable renders the verbose comparison as a table.
func CompareTable(w io.Writer, ms []*probe.Measurement) {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(30)
	table.SetHeader([]string{"server", "ip", "stratum", "refid", "offset(ms)", "rtt(ms)", "auth"})
	for _, m := range ms {
		stratum, refid := "-", "-"
		if m.NTP != nil {
			stratum = fmt.Sprintf("%d", m.NTP.Stratum)
			refid = m.NTP.ReferenceID
		}
		table.Append([]string{
			m.Target.Name,
			m.Target.IP.String(),
			stratum,
			refid,
			fmt.Sprintf("%.3f", m.OffsetMS),
			fmt.Sprintf("%.3f", m.RTTMS),
			fmt.Sprintf("%v", m.Authenticated),
		})
	}
	table.Render()
}

// Stats renders the aggregate line printed after a multi-sample run.
func Stats(name string, st *probe.Stats) string {
	return fmt.Sprintf("%s: avg %.3f ms (min %.3f, max %.3f, stddev %.3f) rtt avg %.3f ms (%d samples)",
		em(value(name)), st.OffsetAvg, st.OffsetMin, st.OffsetMax, st.OffsetStddev, st.RTTAvg, st.Count)
}

// Drift renders the cross-target drift footer.
func Drift(drift float64) string {
	return fmt.Sprintf("Max avg drift: %.3f ms", drift)
}
