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

package ptp

import (
	"fmt"
	"strings"
)

// ClockIdentity is the EUI-64 identity of a PTP clock.
type ClockIdentity [8]byte

func (c ClockIdentity) String() string {
	parts := make([]string, len(c))
	for i, b := range c {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// PortIdentity is a clock identity plus port number.
type PortIdentity struct {
	ClockIdentity ClockIdentity
	PortNumber    uint16
}

func (p PortIdentity) String() string {
	return fmt.Sprintf("%s:%d", p.ClockIdentity, p.PortNumber)
}

// TimeSource is the origin of the grandmaster's time, IEEE 1588 table 6.
type TimeSource uint8

// Time sources we can report.
const (
	TimeSourceAtomicClock TimeSource = iota
	TimeSourceGPS
	TimeSourceTerrestrialRadio
	TimeSourcePTP
	TimeSourceNTP
	TimeSourceHandSet
	TimeSourceOther
	TimeSourceInternalOscillator
)

func (t TimeSource) String() string {
	switch t {
	case TimeSourceAtomicClock:
		return "ATOMIC_CLOCK"
	case TimeSourceGPS:
		return "GPS"
	case TimeSourceTerrestrialRadio:
		return "TERRESTRIAL_RADIO"
	case TimeSourcePTP:
		return "PTP"
	case TimeSourceNTP:
		return "NTP"
	case TimeSourceHandSet:
		return "HAND_SET"
	case TimeSourceInternalOscillator:
		return "INTERNAL_OSCILLATOR"
	default:
		return "OTHER"
	}
}

// ClockQuality describes how good a PTP clock claims to be.
type ClockQuality struct {
	ClockClass              uint8
	ClockAccuracy           uint8
	OffsetScaledLogVariance uint16
}

// AccuracyDescription translates the clockAccuracy code, IEEE 1588 table 5.
func (q ClockQuality) AccuracyDescription() string {
	switch q.ClockAccuracy {
	case 0x20:
		return "within 25 ns"
	case 0x21:
		return "within 100 ns"
	case 0x22:
		return "within 250 ns"
	case 0x23:
		return "within 1 µs"
	case 0x24:
		return "within 2.5 µs"
	case 0x25:
		return "within 10 µs"
	case 0x26:
		return "within 25 µs"
	case 0x27:
		return "within 100 µs"
	case 0x28:
		return "within 250 µs"
	case 0x29:
		return "within 1 ms"
	case 0x2A:
		return "within 2.5 ms"
	case 0x2B:
		return "within 10 ms"
	case 0x2C:
		return "within 25 ms"
	case 0x2D:
		return "within 100 ms"
	case 0x2E:
		return "within 250 ms"
	case 0x2F:
		return "within 1 s"
	case 0x30:
		return "within 10 s"
	case 0x31:
		return "> 10 s"
	default:
		return "unknown"
	}
}

// ClassDescription translates the clockClass value.
func (q ClockQuality) ClassDescription() string {
	switch q.ClockClass {
	case 6:
		return "Primary reference (GPS/Atomic)"
	case 7:
		return "Primary reference (default)"
	case 13:
		return "Application-specific time source"
	case 14:
		return "Alternative PTP profile"
	case 52:
		return "Degraded primary reference (holdover within spec)"
	case 58:
		return "Degraded primary reference (out of holdover spec)"
	case 187:
		return "Default slave-only"
	case 248:
		return "Default (no external reference)"
	case 255:
		return "Slave-only"
	default:
		return "Other"
	}
}
