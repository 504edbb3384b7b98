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
	"time"

	log "github.com/sirupsen/logrus"
)

// Series is the ordered sequence of measurements one target produced over a
// sampling run. Append-only while the run is active.
type Series []*Measurement

// SamplerConfig controls the repeated-sampling loop.
type SamplerConfig struct {
	// Count of iterations when not infinite. Must be >= 1.
	Count uint32
	// Infinite keeps sampling until the context is cancelled.
	Infinite bool
	// Interval between iterations.
	Interval time.Duration
	// IntervalSet records that the user picked a non-default interval; an
	// explicit interval only makes sense for a repeated run.
	IntervalSet bool
	// RecordFailures keeps the loop going when an iteration fails instead of
	// aborting (monitoring mode). The failed iteration contributes no
	// measurement.
	RecordFailures bool
}

// Validate rejects contradictory sampling options. It runs before any
// network activity.
func (c SamplerConfig) Validate() error {
	if c.Infinite && c.Count > 1 {
		return Errorf(KindUsage, "--infinite cannot be used with --count")
	}
	if !c.Infinite && c.Count == 0 {
		return Errorf(KindUsage, "count must be at least 1")
	}
	if c.IntervalSet && !c.Infinite && c.Count <= 1 {
		return Errorf(KindUsage, "--interval requires --infinite or --count")
	}
	return nil
}

// Sampler drives a Querier repeatedly and accumulates per-target series.
type Sampler struct {
	Querier *Querier
	Config  SamplerConfig
}

// sleep pauses between iterations. Only the infinite run races the pause
// against cancellation; an in-flight probe is never force-aborted, so a
// cancellation that fires during probing takes effect after that iteration's
// result is recorded.
func (s *Sampler) sleep(ctx context.Context) (cancelled bool) {
	if !s.Config.Infinite {
		time.Sleep(s.Config.Interval)
		return false
	}
	timer := time.NewTimer(s.Config.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

// Run samples a single target. observe, when non-nil, sees every successful
// measurement as it arrives, in order.
//
// In interactive mode (RecordFailures false) the first failed iteration
// aborts the run and is returned alongside the samples collected so far.
func (s *Sampler) Run(ctx context.Context, target string, observe func(*Measurement)) (Series, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	var series Series
	for n := uint32(0); ; {
		m, err := s.Querier.Query(ctx, target)
		if err != nil {
			if !s.Config.RecordFailures {
				return series, err
			}
			log.Warnf("sample of %s failed: %v", target, err)
		} else {
			series = append(series, m)
			if observe != nil {
				observe(m)
			}
		}
		n++
		if !s.Config.Infinite && n >= s.Config.Count {
			return series, nil
		}
		if s.sleep(ctx) {
			return series, nil
		}
	}
}

// RunCompare samples a set of targets, fanning out on every iteration.
// observe, when non-nil, sees each iteration's full outcome batch. A single
// target failing never aborts the run; its iteration simply contributes no
// sample for that target.
func (s *Sampler) RunCompare(ctx context.Context, targets []string, observe func([]Outcome)) (map[string]Series, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	all := make(map[string]Series, len(targets))
	for n := uint32(0); ; {
		outcomes := s.Querier.Compare(ctx, targets)
		if observe != nil {
			observe(outcomes)
		}
		for _, o := range outcomes {
			if o.Err != nil {
				log.Warnf("sample of %s failed: %v", o.Target, o.Err)
				continue
			}
			all[o.Target] = append(all[o.Target], o.Measurement)
		}
		n++
		if !s.Config.Infinite && n >= s.Config.Count {
			return all, nil
		}
		if s.sleep(ctx) {
			return all, nil
		}
	}
}
