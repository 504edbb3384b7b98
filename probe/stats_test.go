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
	"testing"

	"github.com/stretchr/testify/require"
)

func seriesOf(offsets ...float64) Series {
	s := make(Series, 0, len(offsets))
	for _, o := range offsets {
		s = append(s, &Measurement{OffsetMS: o, RTTMS: 10})
	}
	return s
}

func TestComputeStats(t *testing.T) {
	st, err := ComputeStats(seriesOf(1, -1, 3))
	require.NoError(t, err)
	require.Equal(t, 3, st.Count)
	require.InDelta(t, 1.0, st.OffsetAvg, 1e-9)
	require.Equal(t, -1.0, st.OffsetMin)
	require.Equal(t, 3.0, st.OffsetMax)
	require.InDelta(t, 2.0, st.OffsetStddev, 1e-9)
	require.InDelta(t, 10.0, st.RTTAvg, 1e-9)
}

func TestComputeStatsSingleSample(t *testing.T) {
	st, err := ComputeStats(seriesOf(2.5))
	require.NoError(t, err)
	require.Equal(t, 1, st.Count)
	require.Equal(t, 2.5, st.OffsetAvg)
	require.Equal(t, 2.5, st.OffsetMin)
	require.Equal(t, 2.5, st.OffsetMax)
}

func TestComputeStatsEmpty(t *testing.T) {
	_, err := ComputeStats(nil)
	require.Error(t, err)
}

func TestMaxAvgDrift(t *testing.T) {
	drift, ok := MaxAvgDrift(map[string]*Stats{
		"a": {Count: 3, OffsetAvg: -1.5},
		"b": {Count: 3, OffsetAvg: 2.5},
		"c": {Count: 1, OffsetAvg: 0},
	})
	require.True(t, ok)
	require.InDelta(t, 4.0, drift, 1e-9)
}

func TestMaxAvgDriftNeedsTwoTargets(t *testing.T) {
	_, ok := MaxAvgDrift(map[string]*Stats{
		"a": {Count: 3, OffsetAvg: 1},
	})
	require.False(t, ok)

	// a target with zero samples doesn't count
	_, ok = MaxAvgDrift(map[string]*Stats{
		"a": {Count: 3, OffsetAvg: 1},
		"b": {Count: 0},
		"c": nil,
	})
	require.False(t, ok)
}
