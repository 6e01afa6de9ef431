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

package store

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/Comcast/ecs-scheduler/core"
)

// cached wraps a Store with a bounded, invalidate-on-write read-through
// cache over Get, reusing the teacher's golang-lru dependency (declared
// in its go.mod for bounding in-memory state elsewhere) against the
// remote backends' point-read path.
type cached struct {
	Store
	jobs *lru.Cache
}

// WithCache wraps backend with a bounded LRU cache of the given size.
// size <= 0 disables caching and returns backend unwrapped.
func WithCache(backend Store, size int) Store {
	if size <= 0 {
		return backend
	}
	c, err := lru.New(size)
	if err != nil {
		return backend
	}
	return &cached{Store: backend, jobs: c}
}

func (c *cached) Get(ctx *core.Context, id string) (*core.Job, error) {
	if v, ok := c.jobs.Get(id); ok {
		job := *v.(*core.Job)
		return &job, nil
	}
	job, err := c.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *job
	c.jobs.Add(id, &cp)
	return job, nil
}

func (c *cached) Create(ctx *core.Context, job *core.Job) error {
	if err := c.Store.Create(ctx, job); err != nil {
		return err
	}
	c.jobs.Remove(job.Id)
	return nil
}

func (c *cached) Update(ctx *core.Context, id string, merged *core.Job) error {
	if err := c.Store.Update(ctx, id, merged); err != nil {
		return err
	}
	c.jobs.Remove(id)
	return nil
}

func (c *cached) Delete(ctx *core.Context, id string) error {
	if err := c.Store.Delete(ctx, id); err != nil {
		return err
	}
	c.jobs.Remove(id)
	return nil
}
