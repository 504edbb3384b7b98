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

	"golang.org/x/sync/errgroup"
)

// Outcome is the per-target result of a compare fan-out. Exactly one of
// Measurement and Err is set.
type Outcome struct {
	Target      string
	Measurement *Measurement
	Err         error
}

// Compare probes all targets concurrently and waits for every one of them:
// a barrier, not a race. One target failing does not abort the batch, and
// outcomes always come back in input order regardless of completion order.
// Each goroutine writes only its own slot, so the slice needs no locking;
// it is read after the barrier.
//
// The "at least two targets" rule is a CLI courtesy, not enforced here: the
// fan-out works for any N >= 1.
func (q *Querier) Compare(ctx context.Context, targets []string) []Outcome {
	outcomes := make([]Outcome, len(targets))
	eg, ctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		eg.Go(func() error {
			m, err := q.Query(ctx, target)
			outcomes[i] = Outcome{Target: target, Measurement: m, Err: err}
			// failures are recorded, never propagated: propagating would
			// cancel the siblings through the group context
			return nil
		})
	}
	// no goroutine returns an error
	_ = eg.Wait()
	return outcomes
}

// Successes filters a batch down to its measurements, preserving order.
func Successes(outcomes []Outcome) []*Measurement {
	var out []*Measurement
	for _, o := range outcomes {
		if o.Err == nil {
			out = append(out, o.Measurement)
		}
	}
	return out
}
