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

import "fmt"

// Problem is the common interface every taxonomy error satisfies.
type Problem interface {
	IsFatal() bool
	Error() string
}

// Condition is the shared {Msg, Hope} pair each taxonomy error embeds,
// matching the teacher's Condition type.
type Condition struct {
	Msg  string `json:"msg,omitempty"`
	Hope string `json:"status,omitempty"`
}

func (c *Condition) Error() string {
	if c == nil {
		return "nil condition"
	}
	return c.Msg
}

func (c *Condition) IsFatal() bool {
	return c != nil && c.Hope == "fatal"
}

// ValidationError is a field-level validation failure. Fields carries one
// entry per offending field, so a single response can list every reason.
type ValidationError struct {
	Condition
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Condition{Msg: "validation failed", Hope: "unfatal"}, fields}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// NotFoundError signals an id absent from the store.
type NotFoundError struct {
	Condition
	Id string
}

func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Condition{Msg: fmt.Sprintf(format, args...), Hope: "unfatal"}, ""}
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Msg
}

// AlreadyExistsError signals a duplicate id on create.
type AlreadyExistsError struct {
	Condition
	Id string
}

func NewAlreadyExistsError(id string) *AlreadyExistsError {
	return &AlreadyExistsError{Condition{Msg: fmt.Sprintf("Job %s already exists", id), Hope: "unfatal"}, id}
}

func (e *AlreadyExistsError) Error() string {
	return e.Msg
}

// BackendUnavailableError signals a transient store I/O failure. The
// store adapter has already retried once locally by the time this
// surfaces.
type BackendUnavailableError struct {
	Condition
	Cause error
}

func NewBackendUnavailableError(cause error) *BackendUnavailableError {
	return &BackendUnavailableError{Condition{Msg: cause.Error(), Hope: "unfatal"}, cause}
}

func (e *BackendUnavailableError) Error() string {
	return "backend unavailable: " + e.Msg
}

// BackendCorruptError signals a stored record that does not deserialize.
type BackendCorruptError struct {
	Condition
	Id string
}

func NewBackendCorruptError(id string, cause error) *BackendCorruptError {
	return &BackendCorruptError{Condition{Msg: cause.Error(), Hope: "fatal"}, id}
}

func (e *BackendCorruptError) Error() string {
	return fmt.Sprintf("backend corrupt for %s: %s", e.Id, e.Msg)
}

// LaunchError signals that the orchestrator rejected a launch chunk. It
// is always logged and absorbed; it never aborts a fire.
type LaunchError struct {
	Condition
	JobId string
}

func NewLaunchError(jobId string, cause error) *LaunchError {
	return &LaunchError{Condition{Msg: cause.Error(), Hope: "unfatal"}, jobId}
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch error for %s: %s", e.JobId, e.Msg)
}

// TriggerError signals the trigger evaluator threw or its type tag is
// unregistered. It is always logged and absorbed; the fire is skipped.
type TriggerError struct {
	Condition
	JobId string
}

func NewTriggerError(jobId string, cause error) *TriggerError {
	return &TriggerError{Condition{Msg: cause.Error(), Hope: "unfatal"}, jobId}
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger error for %s: %s", e.JobId, e.Msg)
}

// InternalError covers anything not otherwise classified.
type InternalError struct {
	Condition
}

func NewInternalError(format string, args ...interface{}) *InternalError {
	return &InternalError{Condition{Msg: fmt.Sprintf(format, args...), Hope: "fatal"}}
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}
