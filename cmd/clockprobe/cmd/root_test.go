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

package cmd

import (
	"context"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clocktools/clockprobe/probe"
)

// stubProber answers every probe instantly with a fixed offset.
type stubProber struct {
	offsetMS float64
}

func (s *stubProber) Probe(ctx context.Context, ep probe.Endpoint, timeout time.Duration) (*probe.RawMeasurement, error) {
	return &probe.RawMeasurement{OffsetMS: s.offsetMS, RTTMS: 1.0, UTC: time.Now().UTC()}, nil
}

func stubSampler(cfg probe.SamplerConfig) *probe.Sampler {
	return &probe.Sampler{
		Querier: &probe.Querier{
			Prober: &stubProber{offsetMS: 0.5},
			Lookup: func(ctx context.Context, host string) ([]net.IP, error) {
				return []net.IP{net.ParseIP("192.0.2.10")}, nil
			},
			Timeout:     time.Second,
			DefaultPort: 123,
		},
		Config: cfg,
	}
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()
	fn()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestStripSavePreset(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "separate value",
			in:   []string{"host", "--save-preset", "prod", "--count", "5"},
			want: []string{"host", "--count", "5"},
		},
		{
			name: "equals form",
			in:   []string{"host", "--save-preset=prod"},
			want: []string{"host"},
		},
		{
			name: "absent",
			in:   []string{"host", "--count", "5"},
			want: []string{"host", "--count", "5"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, stripSavePreset(tt.in))
		})
	}
}

func TestEvaluateForModePTPUsesNanoseconds(t *testing.T) {
	ptpFlag = true
	defer func() { ptpFlag = false }()

	// 0.0015 ms offset = 1500 ns, thresholds given in ns
	st := &probe.Stats{Count: 1, OffsetAvg: 0.0015}
	warning, critical := 1000.0, 2000.0
	require.Equal(t, probe.Warning, evaluateForMode(st, &warning, &critical))

	// the shared stats must not be mutated
	require.Equal(t, 0.0015, st.OffsetAvg)
}

func TestEvaluateForModeNTP(t *testing.T) {
	st := &probe.Stats{Count: 1, OffsetAvg: -12}
	warning, critical := 5.0, 10.0
	require.Equal(t, probe.Critical, evaluateForMode(st, &warning, &critical))
}

func TestRunPluginWithoutThresholds(t *testing.T) {
	s := stubSampler(probe.SamplerConfig{Count: 1, RecordFailures: true})
	out := captureStdout(t, func() {
		require.NoError(t, runPlugin(context.Background(), s, "time.example.com", nil, nil))
	})
	require.True(t, strings.HasPrefix(out, "OK - "), out)
	require.Contains(t, out, "offset_ms=0.500;;;0;")
}

func TestRunPluginWarningOnly(t *testing.T) {
	warning := 0.25
	s := stubSampler(probe.SamplerConfig{Count: 1, RecordFailures: true})
	var err error
	out := captureStdout(t, func() {
		err = runPlugin(context.Background(), s, "time.example.com", &warning, nil)
	})
	require.True(t, strings.HasPrefix(out, "WARNING - "), out)
	require.Contains(t, out, "offset_ms=0.500;0.25;;0;")
	var ee *exitError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, probe.Warning.ExitCode(), ee.code)
}

func TestRunPluginInfiniteStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := stubSampler(probe.SamplerConfig{
		Infinite:       true,
		Interval:       time.Millisecond,
		RecordFailures: true,
	})
	out := captureStdout(t, func() {
		require.NoError(t, runPlugin(ctx, s, "time.example.com", nil, nil))
	})
	require.True(t, strings.HasPrefix(out, "OK - "), out)
}

func TestRunSingleJSONEmitsStats(t *testing.T) {
	s := stubSampler(probe.SamplerConfig{Count: 2})
	out := captureStdout(t, func() {
		require.NoError(t, runSingle(context.Background(), s, "time.example.com", formatJSON))
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"results"`)
	require.Contains(t, lines[1], `"stats"`)
	require.Contains(t, lines[1], `"count":2`)
}

func TestExitErrorUnwrap(t *testing.T) {
	err := usageErr("bad flags")
	require.Equal(t, probe.KindUsage, probe.KindOf(err))
	var ee *exitError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, 2, ee.code)
}
