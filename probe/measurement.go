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

// Package probe contains the protocol-agnostic probing core: target parsing,
// resolution, the single-target query service, concurrent compare fan-out,
// the sampling loop, statistics and monitoring verdicts. Wire protocols plug
// in through the Prober interface.
package probe

import (
	"context"
	"net"
	"time"
)

// Target is a probed endpoint as the user named it, frozen at probe time.
// Resolution happens anew for every sample, so two measurements of the same
// target may carry different IPs.
type Target struct {
	Name string `json:"name"`
	IP   net.IP `json:"ip"`
	Port uint16 `json:"port"`
}

// Endpoint is what a Prober gets to work with: the host name as parsed (TLS
// needs it), the pre-resolved address and the port to use. Probers never do
// their own DNS.
type Endpoint struct {
	Host string
	IP   net.IP
	Port uint16
}

// NTPData carries NTP-specific response fields.
type NTPData struct {
	Stratum        uint8         `json:"stratum"`
	ReferenceID    string        `json:"ref_id"`
	Time           time.Time     `json:"time"`
	RootDelay      time.Duration `json:"root_delay"`
	RootDispersion time.Duration `json:"root_dispersion"`
	Precision      time.Duration `json:"precision"`
	Poll           time.Duration `json:"poll"`
	Leap           uint8         `json:"leap"`
	KissCode       string        `json:"kiss_code,omitempty"`
}

// NTSData carries diagnostics from the NTS key exchange.
type NTSData struct {
	// NTPServer is the NTP endpoint negotiated during NTS-KE; it may differ
	// from the key-exchange host.
	NTPServer string `json:"ntp_server"`
	KEHost    string `json:"ke_host"`
	KEPort    uint16 `json:"ke_port"`
}

// PTPPacketStats counts messages exchanged during one PTP measurement.
type PTPPacketStats struct {
	SyncSent          uint32 `json:"sync_sent"`
	SyncReceived      uint32 `json:"sync_received"`
	FollowUpReceived  uint32 `json:"follow_up_received"`
	DelayReqSent      uint32 `json:"delay_req_sent"`
	DelayRespReceived uint32 `json:"delay_resp_received"`
	AnnounceReceived  uint32 `json:"announce_received"`
}

// PTPDiagnostics is the verbose-only portion of a PTP measurement.
type PTPDiagnostics struct {
	MasterPortIdentity    string         `json:"master_port_identity"`
	HardwareTimestamping  bool           `json:"hardware_timestamping"`
	TimestampMode         string         `json:"timestamp_mode"`
	StepsRemoved          uint16         `json:"steps_removed"`
	CurrentUTCOffset      int16          `json:"current_utc_offset"`
	CurrentUTCOffsetValid bool           `json:"current_utc_offset_valid"`
	Leap59                bool           `json:"leap59"`
	Leap61                bool           `json:"leap61"`
	TimeTraceable         bool           `json:"time_traceable"`
	FrequencyTraceable    bool           `json:"frequency_traceable"`
	PTPTimescale          bool           `json:"ptp_timescale"`
	PacketStats           PTPPacketStats `json:"packet_stats"`
	MeasurementDurationMS float64        `json:"measurement_duration_ms"`
}

// PTPData carries PTP clock-quality fields. Offsets are in nanoseconds; the
// measurement-level millisecond values are derived from these.
type PTPData struct {
	Domain                  uint8           `json:"domain"`
	OffsetNS                int64           `json:"offset_ns"`
	MeanPathDelayNS         int64           `json:"mean_path_delay_ns"`
	MasterIdentity          string          `json:"master_identity"`
	ClockClass              uint8           `json:"clock_class"`
	ClockClassDesc          string          `json:"clock_class_desc"`
	ClockAccuracy           uint8           `json:"clock_accuracy"`
	ClockAccuracyDesc       string          `json:"clock_accuracy_desc"`
	OffsetScaledLogVariance uint16          `json:"offset_scaled_log_variance"`
	TimeSource              string          `json:"time_source"`
	Diagnostics             *PTPDiagnostics `json:"diagnostics,omitempty"`
}

// RawMeasurement is what a Prober returns for one successful exchange. The
// query service turns it into a Measurement by stamping target identity.
type RawMeasurement struct {
	OffsetMS      float64
	RTTMS         float64
	UTC           time.Time
	Authenticated bool
	NTP           *NTPData
	NTS           *NTSData
	PTP           *PTPData
}

// Measurement is one successful probe of one target. Immutable once built.
type Measurement struct {
	Target        Target    `json:"target"`
	OffsetMS      float64   `json:"offset_ms"`
	RTTMS         float64   `json:"rtt_ms"`
	UTC           time.Time `json:"utc"`
	Local         time.Time `json:"local"`
	Timestamp     int64     `json:"timestamp"`
	Authenticated bool      `json:"authenticated"`
	NTP           *NTPData  `json:"ntp,omitempty"`
	NTS           *NTSData  `json:"nts,omitempty"`
	PTP           *PTPData  `json:"ptp,omitempty"`
}

// Prober performs exactly one measurement exchange against an endpoint.
// Implementations enforce the timeout themselves and map all failures into
// the probe error taxonomy.
type Prober interface {
	Probe(ctx context.Context, ep Endpoint, timeout time.Duration) (*RawMeasurement, error)
}
