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

// Package ptp provides a simulated PTP (IEEE 1588) probe. A real client
// needs hardware timestamping and kernel support; the simulation derives a
// deterministic measurement from the target parameters so the orchestration,
// statistics and monitoring paths can be exercised end to end with
// PTP-shaped data.
package ptp

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/clocktools/clockprobe/probe"
)

// Default PTP ports.
const (
	DefaultEventPort   uint16 = 319
	DefaultGeneralPort uint16 = 320
)

// Prober produces simulated PTP measurements.
type Prober struct {
	Domain      uint8
	EventPort   uint16
	GeneralPort uint16
	HWTimestamp bool
	// Verbose attaches the full diagnostics block to each measurement.
	Verbose bool
}

// Probe derives a deterministic measurement from the target parameters.
// The same target always yields the same offset and clock quality, which
// makes compare and repeated-sampling behavior reproducible.
func (p *Prober) Probe(ctx context.Context, ep probe.Endpoint, timeout time.Duration) (*probe.RawMeasurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, probe.WrapError(probe.KindOther, err, "probe aborted")
	}
	// The simulated exchange completes instantly, so the timeout can only be
	// violated by a zero or negative budget.
	if timeout <= 0 {
		return nil, probe.Errorf(probe.KindTimeout, "ptp query timed out after %v", timeout)
	}
	start := time.Now()
	seed := p.seed(ep)
	log.Debugf("ptp probe of %s domain %d seed %x", ep.Host, p.Domain, seed)

	identity := deriveClockIdentity(seed)
	quality := deriveClockQuality(seed)
	offsetNS := deriveOffset(seed)
	delayNS := derivePathDelay(seed)

	data := &probe.PTPData{
		Domain:                  p.Domain,
		OffsetNS:                offsetNS,
		MeanPathDelayNS:         delayNS,
		MasterIdentity:          identity.String(),
		ClockClass:              quality.ClockClass,
		ClockClassDesc:          quality.ClassDescription(),
		ClockAccuracy:           quality.ClockAccuracy,
		ClockAccuracyDesc:       quality.AccuracyDescription(),
		OffsetScaledLogVariance: quality.OffsetScaledLogVariance,
		TimeSource:              deriveTimeSource(seed).String(),
	}
	if p.Verbose {
		data.Diagnostics = p.diagnostics(seed, identity, start)
	}
	return &probe.RawMeasurement{
		OffsetMS: float64(offsetNS) / 1e6,
		RTTMS:    float64(delayNS) / 1e6,
		UTC:      time.Now().UTC(),
		PTP:      data,
	}, nil
}

func (p *Prober) diagnostics(seed uint64, identity ClockIdentity, start time.Time) *probe.PTPDiagnostics {
	mode := "software timestamping (simulated)"
	if p.HWTimestamp {
		mode = "hardware timestamping (simulated)"
	}
	return &probe.PTPDiagnostics{
		MasterPortIdentity:    PortIdentity{ClockIdentity: identity, PortNumber: 1}.String(),
		HardwareTimestamping:  p.HWTimestamp,
		TimestampMode:         mode,
		StepsRemoved:          uint16((seed >> 3) % 4),
		CurrentUTCOffset:      37,
		CurrentUTCOffsetValid: true,
		TimeTraceable:         seed&0x1 == 0,
		FrequencyTraceable:    seed&0x2 == 0,
		PTPTimescale:          true,
		PacketStats: probe.PTPPacketStats{
			SyncSent:          uint32((seed >> 5) % 3),
			SyncReceived:      uint32((seed>>8)%10) + 1,
			FollowUpReceived:  uint32((seed >> 10) % 8),
			DelayReqSent:      uint32((seed>>12)%5) + 1,
			DelayRespReceived: uint32((seed>>14)%5) + 1,
			AnnounceReceived:  uint32((seed >> 16) % 3),
		},
		MeasurementDurationMS: float64(time.Since(start)) / float64(time.Millisecond),
	}
}

// seed hashes everything that identifies the simulated exchange.
func (p *Prober) seed(ep probe.Endpoint) uint64 {
	h := fnv.New64a()
	h.Write([]byte(ep.Host))
	h.Write(ep.IP)
	var buf [8]byte
	buf[0] = p.Domain
	binary.BigEndian.PutUint16(buf[1:3], p.eventPort())
	binary.BigEndian.PutUint16(buf[3:5], p.generalPort())
	if p.HWTimestamp {
		buf[5] = 1
	}
	h.Write(buf[:6])
	return h.Sum64()
}

func (p *Prober) eventPort() uint16 {
	if p.EventPort == 0 {
		return DefaultEventPort
	}
	return p.EventPort
}

func (p *Prober) generalPort() uint16 {
	if p.GeneralPort == 0 {
		return DefaultGeneralPort
	}
	return p.GeneralPort
}

func deriveClockIdentity(seed uint64) ClockIdentity {
	var id ClockIdentity
	for i := range id {
		id[i] = byte(seed >> (uint(i) * 8))
	}
	return id
}

func deriveClockQuality(seed uint64) ClockQuality {
	classes := [8]uint8{6, 7, 13, 52, 58, 187, 248, 255}
	return ClockQuality{
		ClockClass:              classes[seed&0x7],
		ClockAccuracy:           0x20 + uint8(seed>>8)%0x10,
		OffsetScaledLogVariance: uint16(seed>>16) | 0x0100,
	}
}

func deriveTimeSource(seed uint64) TimeSource {
	switch seed % 7 {
	case 0:
		return TimeSourceAtomicClock
	case 1:
		return TimeSourceGPS
	case 2:
		return TimeSourceTerrestrialRadio
	case 3:
		return TimeSourcePTP
	case 4:
		return TimeSourceNTP
	case 5:
		return TimeSourceHandSet
	default:
		return TimeSourceInternalOscillator
	}
}

// deriveOffset keeps the simulated offset within +/-2ms.
func deriveOffset(seed uint64) int64 {
	const rangeTenthUS = 200_000
	raw := int64(seed%(rangeTenthUS*2)) - rangeTenthUS
	return raw * 10 // to nanoseconds
}

// derivePathDelay yields a non-zero delay of up to ~500us.
func derivePathDelay(seed uint64) int64 {
	base := int64((seed >> 11) % 50_000)
	return (base + 1_000) * 10
}
