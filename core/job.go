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

package core

import (
	"regexp"
	"time"

	"github.com/Comcast/ecs-scheduler/schedule"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Override is a per-container environment override attached to a Job.
type Override struct {
	ContainerName string            `json:"containerName" yaml:"containerName"`
	Environment   map[string]string `json:"environment" yaml:"environment"`
}

// Trigger is the trigger body attached to a Job. Validate checks the
// fields of the built-in "sqs" type; whether any other Type is known is
// decided by the trigger registry at fire time.
type Trigger struct {
	Type            string `json:"type" yaml:"type"`
	QueueName       string `json:"queueName,omitempty" yaml:"queueName,omitempty"`
	MessagesPerTask int    `json:"messagesPerTask,omitempty" yaml:"messagesPerTask,omitempty"`
}

// Job is the canonical scheduling record (see SPEC_FULL.md section 3).
type Job struct {
	Id             string     `json:"id" yaml:"id"`
	TaskDefinition string     `json:"taskDefinition" yaml:"taskDefinition"`
	Schedule       string     `json:"schedule" yaml:"schedule"`
	ScheduleStart  *time.Time `json:"scheduleStart,omitempty" yaml:"scheduleStart,omitempty"`
	ScheduleEnd    *time.Time `json:"scheduleEnd,omitempty" yaml:"scheduleEnd,omitempty"`
	Timezone       string     `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	TaskCount      int        `json:"taskCount" yaml:"taskCount"`
	MaxCount       int        `json:"maxCount" yaml:"maxCount"`
	Trigger        *Trigger   `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Suspended      bool       `json:"suspended" yaml:"suspended"`
	Overrides      []Override `json:"overrides,omitempty" yaml:"overrides,omitempty"`

	// Engine-managed. Never honored from an inbound request; always
	// stripped by StripEngineManaged before validation runs on a
	// create/update payload.
	LastRun          *time.Time `json:"lastRun,omitempty" yaml:"lastRun,omitempty"`
	LastRunTasks     []string   `json:"lastRunTasks,omitempty" yaml:"lastRunTasks,omitempty"`
	EstimatedNextRun *time.Time `json:"estimatedNextRun,omitempty" yaml:"estimatedNextRun,omitempty"`
}

// StripEngineManaged clears the fields a client is never allowed to
// set directly, per invariant I4. It mutates j in place and is applied
// to every inbound create/update payload before validation.
func (j *Job) StripEngineManaged() {
	j.LastRun = nil
	j.LastRunTasks = nil
	j.EstimatedNextRun = nil
}

// Validate checks field-level constraints and aggregates every
// violation into a single *ValidationError rather than failing fast on
// the first one, so a caller sees every offending field at once.
func (j *Job) Validate() *ValidationError {
	fields := make(map[string]string)

	if j.Id != "" && !idPattern.MatchString(j.Id) {
		fields["id"] = "must be 1-64 chars matching [A-Za-z0-9_-]+"
	}
	if j.TaskDefinition == "" || len(j.TaskDefinition) > 255 {
		fields["taskDefinition"] = "required, 1-255 chars"
	}
	if j.Timezone == "" {
		j.Timezone = "UTC"
	}
	loc, tzErr := time.LoadLocation(j.Timezone)
	if tzErr != nil {
		fields["timezone"] = "unknown timezone"
		loc = time.UTC
	}
	if j.Schedule == "" {
		fields["schedule"] = "required"
	} else if _, err := schedule.Parse(j.Schedule, loc, time.Now()); err != nil {
		fields["schedule"] = err.Error()
	}
	if j.ScheduleStart != nil && j.ScheduleEnd != nil && j.ScheduleEnd.Before(*j.ScheduleStart) {
		fields["scheduleEnd"] = "must be >= scheduleStart"
	}
	if j.TaskCount == 0 {
		j.TaskCount = 1
	}
	if j.TaskCount < 1 || j.TaskCount > 50 {
		fields["taskCount"] = "must be between 1 and 50"
	}
	if j.MaxCount == 0 {
		// Unset means "no additional cap beyond the field max",
		// per the queue-depth trigger scenario where an unset
		// maxCount lets the trigger's desired count through
		// unfloored up to 50 rather than being pinned to taskCount.
		j.MaxCount = 50
	}
	if j.MaxCount < j.TaskCount || j.MaxCount > 50 {
		fields["maxCount"] = "must be >= taskCount and <= 50"
	}
	if j.Trigger != nil {
		validateTrigger(j.Trigger, fields)
	}
	seenContainers := make(map[string]bool)
	for i, o := range j.Overrides {
		if o.ContainerName == "" {
			fields["overrides"] = "containerName required for every entry"
			break
		}
		if seenContainers[o.ContainerName] {
			fields["overrides"] = "containerName must be unique within overrides"
			break
		}
		seenContainers[o.ContainerName] = true
		_ = i
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// validateTrigger checks the trigger's required fields: type always,
// and queueName/messagesPerTask for the "sqs" type. Unknown fields in a
// trigger body or an override entry are not rejected: the JSON/YAML
// decode into Trigger/Override drops them before Validate runs.
func validateTrigger(tr *Trigger, fields map[string]string) {
	if tr.Type == "" {
		fields["trigger.type"] = "required"
		return
	}
	if tr.Type == "sqs" {
		if tr.QueueName == "" {
			fields["trigger.queueName"] = "required for sqs trigger"
		}
		if tr.MessagesPerTask < 1 {
			fields["trigger.messagesPerTask"] = "must be >= 1"
		}
	}
}

// Merge copies onto j every top-level field of partial whose key is in
// present (zero values included), implementing PUT's field-wise merge
// semantics: a field omitted from the payload leaves j's prior value
// untouched. Engine-managed fields on
// partial are ignored entirely, by StripEngineManaged having already
// run on it.
func (j *Job) Merge(partial *Job, present map[string]bool) {
	if present["taskDefinition"] {
		j.TaskDefinition = partial.TaskDefinition
	}
	if present["schedule"] {
		j.Schedule = partial.Schedule
	}
	if present["scheduleStart"] {
		j.ScheduleStart = partial.ScheduleStart
	}
	if present["scheduleEnd"] {
		j.ScheduleEnd = partial.ScheduleEnd
	}
	if present["timezone"] {
		j.Timezone = partial.Timezone
	}
	if present["taskCount"] {
		j.TaskCount = partial.TaskCount
	}
	if present["maxCount"] {
		j.MaxCount = partial.MaxCount
	}
	if present["trigger"] {
		j.Trigger = partial.Trigger
	}
	if present["suspended"] {
		j.Suspended = partial.Suspended
	}
	if present["overrides"] {
		j.Overrides = partial.Overrides
	}
}

// LaunchCount computes min(taskCount, maxCount or 50) for a job with
// no trigger, per SPEC_FULL.md 4.D.
func (j *Job) LaunchCount() int {
	max := j.MaxCount
	if max == 0 || max > 50 {
		max = 50
	}
	if j.TaskCount < max {
		return j.TaskCount
	}
	return max
}
