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

package engine

import "github.com/Comcast/ecs-scheduler/core"

// MutationKind is the closed set of operations the API layer may
// publish to the engine after a successful store write.
type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
	MutationPause  MutationKind = "pause"
	MutationResume MutationKind = "resume"
)

// Mutation is a single change to the engine's in-memory timeline,
// generalizing cron.Cron's fixed "pause"/"resume"/"kill" control
// strings into a typed struct that also carries the job snapshot a
// create/update needs to (re)compute a Next firing time.
type Mutation struct {
	Kind MutationKind
	Id   string
	Job  *core.Job
}
