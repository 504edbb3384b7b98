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
	"math"

	"github.com/eclesh/welford"
)

// Stats summarizes a series of measurements. Recomputed from scratch on
// demand; series are small enough that the O(n) fold doesn't matter.
type Stats struct {
	Count        int     `json:"count"`
	OffsetAvg    float64 `json:"offset_avg"`
	OffsetMin    float64 `json:"offset_min"`
	OffsetMax    float64 `json:"offset_max"`
	OffsetStddev float64 `json:"offset_stddev"`
	RTTAvg       float64 `json:"rtt_avg"`
}

// ComputeStats reduces a series to its summary. The series must not be
// empty; the sampling loop never asks for stats before the first success.
func ComputeStats(series Series) (*Stats, error) {
	if len(series) == 0 {
		return nil, Errorf(KindOther, "no samples to aggregate")
	}
	offsets := welford.New()
	rtts := welford.New()
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, m := range series {
		offsets.Add(m.OffsetMS)
		rtts.Add(m.RTTMS)
		min = math.Min(min, m.OffsetMS)
		max = math.Max(max, m.OffsetMS)
	}
	return &Stats{
		Count:        len(series),
		OffsetAvg:    offsets.Mean(),
		OffsetMin:    min,
		OffsetMax:    max,
		OffsetStddev: offsets.Stddev(),
		RTTAvg:       rtts.Mean(),
	}, nil
}

// MaxAvgDrift is the spread between the best and worst average offset across
// targets. Drift is only meaningful when at least two targets produced at
// least one sample each; ok reports whether that held.
func MaxAvgDrift(perTarget map[string]*Stats) (drift float64, ok bool) {
	min := math.Inf(1)
	max := math.Inf(-1)
	n := 0
	for _, st := range perTarget {
		if st == nil || st.Count == 0 {
			continue
		}
		n++
		min = math.Min(min, st.OffsetAvg)
		max = math.Max(max, st.OffsetAvg)
	}
	if n < 2 {
		return 0, false
	}
	return max - min, true
}
