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

// Package launcher turns a Job's desired count into running ECS tasks.
// It chunks RunTask calls at the orchestrator's per-call limit and
// keeps going past a failed chunk rather than aborting the whole
// launch, the same "do the work, log the failure, move on" shape
// cron.Cron.run uses for a single misbehaving job.
package launcher

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/Comcast/ecs-scheduler/core"
)

// chunkSize is the maximum number of tasks a single ECS RunTask call
// may start. The real limit is enforced server-side; this is the
// documented default for the API.
const chunkSize = 10

// Result is the outcome of a single Launch call: the task ARNs that
// started successfully, and a human-readable reason for every task
// that did not.
type Result struct {
	Tasks    []string
	Failures []string
}

// ECS launches tasks on a single ECS cluster via RunTask.
type ECS struct {
	client  *ecs.Client
	cluster string
}

func NewECS(client *ecs.Client, cluster string) *ECS {
	return &ECS{client: client, cluster: cluster}
}

// Launch starts count copies of taskDefinition, applying overrides to
// every copy and tagging them with startedBy. Counts above chunkSize
// are split across multiple RunTask calls; a chunk that errors is
// recorded as a failure for every task in that chunk and does not
// prevent the remaining chunks from being attempted.
func (e *ECS) Launch(ctx *core.Context, taskDefinition string, count int, overrides []core.Override, startedBy string) Result {
	var result Result
	if count <= 0 {
		return result
	}

	override := buildOverride(overrides)

	remaining := count
	for remaining > 0 {
		n := remaining
		if n > chunkSize {
			n = chunkSize
		}
		remaining -= n

		out, err := e.client.RunTask(ctx.Go, &ecs.RunTaskInput{
			Cluster:        aws.String(e.cluster),
			TaskDefinition: aws.String(taskDefinition),
			Count:          aws.Int32(int32(n)),
			StartedBy:      aws.String(startedBy),
			Overrides:      override,
		})
		if err != nil {
			core.Log(core.ERROR|core.LAUNCHER, ctx, "ECS.Launch", "taskDefinition", taskDefinition, "count", n, "error", err)
			for i := 0; i < n; i++ {
				result.Failures = append(result.Failures, err.Error())
			}
			continue
		}

		for _, t := range out.Tasks {
			result.Tasks = append(result.Tasks, aws.ToString(t.TaskArn))
		}
		for _, f := range out.Failures {
			result.Failures = append(result.Failures, fmt.Sprintf("%s: %s", aws.ToString(f.Arn), aws.ToString(f.Reason)))
		}
	}

	return result
}

// buildOverride translates a Job's container overrides into the
// ECS TaskOverride shape. A nil/empty overrides slice yields a nil
// TaskOverride, letting RunTask fall back to the task definition's
// own environment entirely.
func buildOverride(overrides []core.Override) *types.TaskOverride {
	if len(overrides) == 0 {
		return nil
	}
	out := &types.TaskOverride{}
	for _, o := range overrides {
		env := make([]types.KeyValuePair, 0, len(o.Environment))
		for k, v := range o.Environment {
			env = append(env, types.KeyValuePair{Name: aws.String(k), Value: aws.String(v)})
		}
		out.ContainerOverrides = append(out.ContainerOverrides, types.ContainerOverride{
			Name:        aws.String(o.ContainerName),
			Environment: env,
		})
	}
	return out
}
