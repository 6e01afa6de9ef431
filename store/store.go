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

// Package store defines the job store contract and its pluggable
// backends (memory, sqlite, s3, dynamodb, elastic), generalizing the
// teacher's generic core.Storage key/location interface down to
// job-shaped CRUD.
package store

import (
	"github.com/Comcast/ecs-scheduler/core"
)

// Page is the result of a List call: a slice of the requested window
// plus the total row count, for Link-style pagination.
type Page struct {
	Items []*core.Job `json:"items"`
	Total int         `json:"total"`
}

// Store is the uniform CRUD contract every backend satisfies. All
// methods return taxonomy errors from core (NotFoundError,
// AlreadyExistsError, BackendUnavailableError, BackendCorruptError).
type Store interface {
	// List returns jobs ordered by id, skipping the first skip and
	// returning at most limit.
	List(ctx *core.Context, skip, limit int) (*Page, error)
	Get(ctx *core.Context, id string) (*core.Job, error)
	Create(ctx *core.Context, job *core.Job) error
	Update(ctx *core.Context, id string, merged *core.Job) error
	Delete(ctx *core.Context, id string) error

	// Bootstrap creates the backend's underlying artifact (file,
	// bucket, table, index) if absent, leaving a pre-existing one
	// untouched. Called once at startup.
	Bootstrap(ctx *core.Context) error

	Close(ctx *core.Context) error
}
