// Copyright 2015 Comcast Cable Communications Management, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// End Copyright

// Package trigger maps a job's trigger type tag to an Evaluator,
// following the string-keyed factory shape of sys.GetStorage applied
// to trigger types instead of storage backends.
package trigger

import (
	"context"
	"fmt"

	"github.com/Comcast/ecs-scheduler/core"
)

// Evaluator computes a desired task count for a job's trigger at fire
// time. ctx carries the fire's deadline and correlation id.
type Evaluator interface {
	Evaluate(ctx context.Context, tr *core.Trigger) (desired int, err error)
}

// Registry is a closed, startup-populated map of trigger type tags to
// Evaluators.
type Registry struct {
	evaluators map[string]Evaluator
}

func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[string]Evaluator)}
}

// Register binds typeName to e. Called only at startup; the registry
// is read-only once the engine begins firing.
func (r *Registry) Register(typeName string, e Evaluator) {
	r.evaluators[typeName] = e
}

// Desired computes the final, clamped launch count for job j, applying
// SPEC_FULL.md 4.D's formula. If j has no trigger, it returns
// j.LaunchCount() unconditionally. If j has a trigger whose type is
// unregistered or whose Evaluate call fails, it returns a *TriggerError
// so the caller can log-and-skip the fire.
func (r *Registry) Desired(ctx context.Context, j *core.Job) (int, error) {
	if j.Trigger == nil {
		return j.LaunchCount(), nil
	}

	e, ok := r.evaluators[j.Trigger.Type]
	if !ok {
		return 0, core.NewTriggerError(j.Id, fmt.Errorf("unregistered trigger type %q", j.Trigger.Type))
	}

	desired, err := e.Evaluate(ctx, j.Trigger)
	if err != nil {
		return 0, core.NewTriggerError(j.Id, err)
	}

	return clampTriggered(j, desired), nil
}

// clampTriggered applies SPEC_FULL.md 4.D's formula. A desired count
// of 0 (e.g. an empty queue) means "do not launch" and is returned
// as-is without being floored up to taskCount — only a strictly
// positive desired count is floored, per the queue-depth-trigger
// scenario where depth 0 must yield a launch count of 0 even though
// taskCount defaults to 1.
func clampTriggered(j *core.Job, desired int) int {
	if desired <= 0 {
		return 0
	}
	maxCount := j.MaxCount
	if maxCount == 0 || maxCount > 50 {
		maxCount = 50
	}
	count := desired
	if j.TaskCount > count {
		count = j.TaskCount
	}
	if count > maxCount {
		count = maxCount
	}
	return count
}
