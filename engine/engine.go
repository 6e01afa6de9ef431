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

// Package engine is the in-process scheduler: an in-memory timeline of
// jobs driven by a single timer, directly grounded on cron.Cron. API
// code never touches the timeline directly; it publishes Mutations
// after a successful store write, and the engine's dispatch loop
// applies them in publication order.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Comcast/ecs-scheduler/core"
	"github.com/Comcast/ecs-scheduler/launcher"
	"github.com/Comcast/ecs-scheduler/schedule"
	"github.com/Comcast/ecs-scheduler/store"
	"github.com/Comcast/ecs-scheduler/trigger"
)

// Engine holds the in-memory timeline and the collaborators a fire
// needs: the registry to resolve a trigger's desired count, the
// launcher to start tasks, and the store to read the job's current
// taskDefinition fresh and to write back lastRun/estimatedNextRun.
//
// A PUT that changes taskDefinition therefore affects only the job's
// next fire onward: the engine never caches taskDefinition on the
// timeline, it re-Gets the job from the store at fire time.
type Engine struct {
	sync.Mutex
	Timeline

	control   chan Mutation
	timer     *time.Timer
	startedBy string

	backend   store.Store
	triggers  *trigger.Registry
	launcher  *launcher.ECS

	// wg tracks in-flight fire goroutines so Stop can wait for them
	// (bounded by a grace period) instead of abandoning a launch
	// mid-flight.
	wg sync.WaitGroup

	stopped chan struct{}
}

// New constructs an Engine. It does not start the dispatch loop; call
// Start for that.
func New(backend store.Store, triggers *trigger.Registry, lnch *launcher.ECS, startedBy string) *Engine {
	return &Engine{
		Timeline:  make(Timeline, 0),
		control:   make(chan Mutation, 64),
		timer:     time.NewTimer(0),
		startedBy: startedBy,
		backend:   backend,
		triggers:  triggers,
		launcher:  lnch,
		stopped:   make(chan struct{}),
	}
}

// Seed loads every job from the store and schedules it, following
// cron.Cron's expectation that the caller populates the timeline before
// Start is called. Suspended jobs are tracked as PAUSED entries so a
// later resume mutation can find them.
func (e *Engine) Seed(ctx *core.Context) error {
	const pageSize = 200
	skip := 0
	for {
		page, err := e.backend.List(ctx, skip, pageSize)
		if err != nil {
			return fmt.Errorf("engine: seed list: %w", err)
		}
		for _, j := range page.Items {
			e.scheduleLocked(ctx, j)
		}
		skip += len(page.Items)
		if len(page.Items) < pageSize || skip >= page.Total {
			break
		}
	}
	return nil
}

// Start launches the dispatch goroutine. Returns immediately.
func (e *Engine) Start(ctx *core.Context) {
	go e.loop(ctx)
}

// Publish enqueues a mutation for the dispatch loop to apply. It never
// blocks the timeline directly; it only contends on the channel send.
func (e *Engine) Publish(ctx *core.Context, m Mutation) {
	core.Log(core.INFO|core.SCHEDULER, ctx, "Engine.Publish", "kind", m.Kind, "id", m.Id)
	e.control <- m
}

// Stop halts the dispatch loop and waits up to grace for any in-flight
// fires to finish, mirroring service/httpd.go's Drain-with-timeout
// shutdown shape.
func (e *Engine) Stop(ctx *core.Context, grace time.Duration) {
	close(e.stopped)
	e.timer.Stop()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		core.Log(core.WARN|core.SCHEDULER, ctx, "Engine.Stop", "msg", "grace period elapsed with fires still in flight")
	}
}

func (e *Engine) loop(ctx *core.Context) {
	core.Log(core.INFO|core.SCHEDULER, ctx, "Engine.loop", "msg", "dispatch loop started")
	for {
		select {
		case <-e.stopped:
			return

		case m := <-e.control:
			e.apply(ctx, m)

		case <-e.timer.C:
			e.fireReady(ctx)
		}
	}
}

func (e *Engine) apply(ctx *core.Context, m Mutation) {
	e.Lock()
	defer e.Unlock()

	switch m.Kind {
	case MutationDelete:
		e.removeLocked(m.Id)

	case MutationPause:
		if i := e.Timeline.indexOf(m.Id); i >= 0 {
			e.Timeline[i].paused = true
		}

	case MutationResume:
		if i := e.Timeline.indexOf(m.Id); i >= 0 {
			e.Timeline[i].paused = false
			e.resetTimerLocked()
		}

	case MutationCreate, MutationUpdate:
		if m.Job == nil {
			core.Log(core.WARN|core.SCHEDULER, ctx, "Engine.apply", "error", "mutation missing job snapshot", "id", m.Id)
			return
		}
		e.removeLocked(m.Id)
		e.scheduleLocked(ctx, m.Job)
	}
}

// scheduleLocked parses job's schedule and inserts an entry for it.
// Assumes the engine lock is held by the caller, except when called
// from Seed before Start, where nothing else can be racing yet.
func (e *Engine) scheduleLocked(ctx *core.Context, j *core.Job) {
	loc, err := time.LoadLocation(j.Timezone)
	if err != nil {
		loc = time.UTC
	}

	expr, err := schedule.Parse(j.Schedule, loc, time.Now())
	if err != nil {
		core.Log(core.WARN|core.SCHEDULER, ctx, "Engine.scheduleLocked", "id", j.Id, "error", err)
		return
	}

	next := expr.Next(time.Now())
	if j.ScheduleStart != nil && next.Before(*j.ScheduleStart) {
		next = expr.Next(*j.ScheduleStart)
	}

	en := &entry{id: j.Id, expr: expr, next: next, paused: j.Suspended}
	e.insertLocked(en)
}

func (e *Engine) insertLocked(en *entry) {
	at := e.Timeline.Search(en.next)
	e.Timeline = append(e.Timeline, nil)
	copy(e.Timeline[at+1:], e.Timeline[at:])
	e.Timeline[at] = en
	e.resetTimerLocked()
}

func (e *Engine) removeLocked(id string) {
	i := e.Timeline.indexOf(id)
	if i < 0 {
		return
	}
	e.Timeline = append(e.Timeline[:i], e.Timeline[i+1:]...)
}

func (e *Engine) resetTimerLocked() {
	e.timer.Stop()
	if len(e.Timeline) == 0 {
		return
	}
	next := e.Timeline[0].next
	delta := time.Until(next)
	if delta < 0 {
		delta = 0
	}
	e.timer.Reset(delta)
}

// fireReady pops every entry at the head of the timeline whose Next
// has arrived, firing each on its own goroutine so a slow launch for
// one job never delays another's firing instant.
func (e *Engine) fireReady(ctx *core.Context) {
	e.Lock()
	now := time.Now()
	var ready []*entry
	for len(e.Timeline) > 0 && !now.Before(e.Timeline[0].next) {
		en := e.Timeline[0]
		e.Timeline = e.Timeline[1:]
		ready = append(ready, en)
	}
	e.resetTimerLocked()
	e.Unlock()

	for _, en := range ready {
		en := en
		if en.paused {
			e.rescheduleLocked(ctx, en)
			continue
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.fire(ctx, en)
		}()
	}
}

// rescheduleLocked recomputes an entry's Next and reinserts it,
// acquiring the lock itself (unlike insertLocked, which assumes it is
// already held).
func (e *Engine) rescheduleLocked(ctx *core.Context, en *entry) {
	en.next = en.expr.Next(time.Now())
	e.Lock()
	e.insertLocked(en)
	e.Unlock()
}

// fire performs SPEC_FULL.md 4.F's procedure: evaluate trigger, launch
// if the desired count is positive, write back, reschedule. Any step's
// failure is logged and swallowed; the schedule remains active, except
// for a job the store no longer has, whose entry is dropped. A job past
// its scheduleEnd is rescheduled but not launched.
func (e *Engine) fire(ctx *core.Context, en *entry) {
	fireCtx := ctx.WithProp("jobId", en.id)
	core.Log(core.INFO|core.SCHEDULER, fireCtx, "Engine.fire", "id", en.id)

	j, err := e.backend.Get(fireCtx, en.id)
	if err != nil {
		core.Log(core.WARN|core.SCHEDULER, fireCtx, "Engine.fire", "error", err, "msg", "could not read job before fire")
		if _, gone := err.(*core.NotFoundError); !gone {
			e.rescheduleLocked(ctx, en)
		}
		return
	}

	defer e.rescheduleLocked(ctx, en)

	if j.Suspended {
		return
	}
	if j.ScheduleEnd != nil && time.Now().After(*j.ScheduleEnd) {
		return
	}

	desired, err := e.triggers.Desired(fireCtx.Go, j)
	if err != nil {
		core.Log(core.WARN|core.SCHEDULER, fireCtx, "Engine.fire", "error", err)
		return
	}

	var result launcher.Result
	if desired > 0 {
		result = e.launcher.Launch(fireCtx, j.TaskDefinition, desired, j.Overrides, e.startedBy)
		if len(result.Failures) > 0 {
			core.Log(core.WARN|core.SCHEDULER, fireCtx, "Engine.fire", "failures", result.Failures)
		}
	}

	now := time.Now()
	j.LastRun = &now
	j.LastRunTasks = result.Tasks
	nextEstimate := en.expr.Next(now)
	j.EstimatedNextRun = &nextEstimate

	if err := e.backend.Update(fireCtx, j.Id, j); err != nil {
		core.Log(core.WARN|core.SCHEDULER, fireCtx, "Engine.fire", "error", err, "msg", "write-back failed")
	}
}
