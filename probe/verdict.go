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
	"fmt"
	"math"
	"net"
	"strconv"
)

// Verdict is the monitoring-mode health state. Values follow the
// Nagios/Centreon plugin convention and double as process exit codes.
type Verdict int

// Possible verdicts, in increasing order of severity.
const (
	OK Verdict = iota
	Warning
	Critical
	Unknown
)

func (v Verdict) String() string {
	switch v {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ExitCode returns the plugin exit code: OK=0, WARNING=1, CRITICAL=2,
// UNKNOWN=3.
func (v Verdict) ExitCode() int {
	return int(v)
}

// ValidateThresholds rejects bad warning/critical values before any probing
// happens. Thresholds must be non-negative and warning strictly below
// critical when both are set.
func ValidateThresholds(warning, critical *float64) error {
	if warning != nil && *warning < 0 {
		return Errorf(KindUsage, "--warning must be non-negative")
	}
	if critical != nil && *critical < 0 {
		return Errorf(KindUsage, "--critical must be non-negative")
	}
	if warning != nil && critical != nil && *warning >= *critical {
		return Errorf(KindUsage, "--warning must be less than --critical")
	}
	return nil
}

// Evaluate maps aggregated stats to a verdict. The comparison uses the
// absolute average offset with inclusive boundaries. A run with zero
// successful samples is UNKNOWN no matter the thresholds.
func Evaluate(st *Stats, warning, critical *float64) Verdict {
	if st == nil || st.Count == 0 {
		return Unknown
	}
	abs := math.Abs(st.OffsetAvg)
	if critical != nil && abs >= *critical {
		return Critical
	}
	if warning != nil && abs >= *warning {
		return Warning
	}
	return OK
}

func thresholdString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// PluginLine renders the Nagios/Centreon status line for an NTP/NTS run.
// The format is a compatibility contract with external monitoring systems
// and must not change.
func PluginLine(v Verdict, st *Stats, host string, ip net.IP, warning, critical *float64) string {
	return fmt.Sprintf(
		"%s - offset %.3fms rtt %.3fms from %s (%s) | offset_ms=%.3f;%s;%s;0; rtt_ms=%.3f;;;0;",
		v, st.OffsetAvg, st.RTTAvg, host, ip,
		st.OffsetAvg, thresholdString(warning), thresholdString(critical), st.RTTAvg,
	)
}

// PluginUnknownLine is emitted when the run produced no usable samples. The
// plugin contract guarantees some well-formed line is always printed.
func PluginUnknownLine(warning, critical *float64) string {
	return fmt.Sprintf(
		"UNKNOWN - request failed | offset_ms=;%s;%s;0; rtt_ms=;;;0;",
		thresholdString(warning), thresholdString(critical),
	)
}

// PluginLinePTP is the PTP flavor of the status line; PTP reports in
// nanoseconds and path delay instead of RTT.
func PluginLinePTP(v Verdict, st *Stats, host string, ip net.IP, warning, critical *float64) string {
	offsetNS := st.OffsetAvg * 1e6
	delayNS := st.RTTAvg * 1e6
	return fmt.Sprintf(
		"%s - offset %.0fns delay %.0fns from %s (%s) | offset_ns=%.0f;%s;%s;0; delay_ns=%.0f;;;0;",
		v, offsetNS, delayNS, host, ip,
		offsetNS, thresholdString(warning), thresholdString(critical), delayNS,
	)
}

// PluginUnknownLinePTP is the PTP flavor of the UNKNOWN line.
func PluginUnknownLinePTP(warning, critical *float64) string {
	return fmt.Sprintf(
		"UNKNOWN - PTP request failed | offset_ns=;%s;%s;0; delay_ns=;;;0;",
		thresholdString(warning), thresholdString(critical),
	)
}
