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
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSamplerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SamplerConfig
		wantErr bool
	}{
		{name: "single", cfg: SamplerConfig{Count: 1}},
		{name: "counted", cfg: SamplerConfig{Count: 5, IntervalSet: true}},
		{name: "infinite", cfg: SamplerConfig{Infinite: true, IntervalSet: true}},
		{name: "infinite with count 1", cfg: SamplerConfig{Infinite: true, Count: 1}},
		{name: "zero count", cfg: SamplerConfig{}, wantErr: true},
		{name: "infinite and count", cfg: SamplerConfig{Infinite: true, Count: 5}, wantErr: true},
		{name: "interval single shot", cfg: SamplerConfig{Count: 1, IntervalSet: true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				require.Equal(t, KindUsage, KindOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

// flakyProber fails on chosen iterations.
type flakyProber struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (f *flakyProber) Probe(_ context.Context, _ Endpoint, _ time.Duration) (*RawMeasurement, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.failOn[n] {
		return nil, Errorf(KindTimeout, "request timed out")
	}
	return &RawMeasurement{OffsetMS: float64(n), RTTMS: 1, UTC: time.Now().UTC()}, nil
}

func testSampler(p Prober, cfg SamplerConfig) *Sampler {
	return &Sampler{
		Querier: testQuerier(p, staticLookup(net.ParseIP("192.0.2.1"))),
		Config:  cfg,
	}
}

func TestSamplerRun(t *testing.T) {
	s := testSampler(&flakyProber{}, SamplerConfig{Count: 3})

	var seen []float64
	series, err := s.Run(context.Background(), "host", func(m *Measurement) {
		seen = append(seen, m.OffsetMS)
	})
	require.NoError(t, err)
	require.Len(t, series, 3)
	require.Equal(t, []float64{1, 2, 3}, seen)
}

func TestSamplerRunAbortsOnFailure(t *testing.T) {
	s := testSampler(&flakyProber{failOn: map[int]bool{2: true}}, SamplerConfig{Count: 5})

	series, err := s.Run(context.Background(), "host", nil)
	require.Error(t, err)
	require.Equal(t, KindTimeout, KindOf(err))
	// the sample collected before the failure survives
	require.Len(t, series, 1)
}

func TestSamplerRunRecordFailures(t *testing.T) {
	s := testSampler(&flakyProber{failOn: map[int]bool{2: true}}, SamplerConfig{Count: 4, RecordFailures: true})

	series, err := s.Run(context.Background(), "host", nil)
	require.NoError(t, err)
	// failed iteration contributes no sample, the loop keeps going
	require.Len(t, series, 3)
}

func TestSamplerRunInfiniteCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := testSampler(&flakyProber{}, SamplerConfig{Infinite: true, Interval: time.Hour})

	done := make(chan struct{})
	var series Series
	var err error
	go func() {
		defer close(done)
		series, err = s.Run(ctx, "host", func(*Measurement) { cancel() })
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sampler did not stop on cancellation")
	}
	require.NoError(t, err)
	require.Len(t, series, 1)
}

func TestSamplerRunValidatesConfig(t *testing.T) {
	s := testSampler(&flakyProber{}, SamplerConfig{})
	_, err := s.Run(context.Background(), "host", nil)
	require.Error(t, err)
	require.Equal(t, KindUsage, KindOf(err))
}

func TestSamplerRunCompare(t *testing.T) {
	prober := &fakeProber{
		offset: 1,
		errFor: map[string]error{"bad": Errorf(KindNetwork, "refused")},
	}
	s := testSampler(prober, SamplerConfig{Count: 2})

	iterations := 0
	all, err := s.RunCompare(context.Background(), []string{"good", "bad"}, func(outcomes []Outcome) {
		iterations++
		require.Len(t, outcomes, 2)
	})
	require.NoError(t, err)
	require.Equal(t, 2, iterations)
	require.Len(t, all["good"], 2)
	require.Empty(t, all["bad"])
}
