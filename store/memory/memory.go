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

// Package memory is the ephemeral, in-process Store backend, grounded
// on the teacher's core.MemStorage (sync.Mutex + map).
package memory

import (
	"sort"
	"sync"

	"github.com/Comcast/ecs-scheduler/core"
	"github.com/Comcast/ecs-scheduler/store"
)

type Storage struct {
	mu   sync.Mutex
	jobs map[string]*core.Job
}

func New() *Storage {
	return &Storage{jobs: make(map[string]*core.Job)}
}

// Bootstrap only warns: an in-memory backend has nothing to create and
// loses all state on restart, per SPEC_FULL.md 4.C.
func (s *Storage) Bootstrap(ctx *core.Context) error {
	core.Log(core.WARN|core.STORE, ctx, "memory.Bootstrap", "msg", "in-memory store is ephemeral; all jobs are lost on restart")
	return nil
}

func (s *Storage) List(ctx *core.Context, skip, limit int) (*store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := len(ids)
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}

	page := &store.Page{Total: total}
	for _, id := range ids[skip:end] {
		page.Items = append(page.Items, cloneJob(s.jobs[id]))
	}
	return page, nil
}

func (s *Storage) Get(ctx *core.Context, id string) (*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, core.NewNotFoundError("job %s", id)
	}
	return cloneJob(j), nil
}

func (s *Storage) Create(ctx *core.Context, job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Id]; exists {
		return core.NewAlreadyExistsError(job.Id)
	}
	s.jobs[job.Id] = cloneJob(job)
	return nil
}

func (s *Storage) Update(ctx *core.Context, id string, merged *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; !exists {
		return core.NewNotFoundError("job %s", id)
	}
	s.jobs[id] = cloneJob(merged)
	return nil
}

func (s *Storage) Delete(ctx *core.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; !exists {
		return core.NewNotFoundError("job %s", id)
	}
	delete(s.jobs, id)
	return nil
}

func (s *Storage) Close(ctx *core.Context) error { return nil }

func cloneJob(j *core.Job) *core.Job {
	cp := *j
	return &cp
}
