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

import (
	"sort"
	"time"

	"github.com/Comcast/ecs-scheduler/schedule"
)

// entry is a single scheduled job's position on the timeline: its id,
// parsed expression, next firing instant, and whether it is currently
// paused (SCHEDULED vs PAUSED, per the state machine in SPEC_FULL.md 4.F).
type entry struct {
	id     string
	expr   *schedule.Expression
	next   time.Time
	paused bool
	firing bool
}

// Timeline is the time-ordered list of pending entries, directly
// grounded on cron.Timeline's sort.Search-based insertion shape.
type Timeline []*entry

func (tl Timeline) Len() int      { return len(tl) }
func (tl Timeline) Swap(i, j int) { tl[i], tl[j] = tl[j], tl[i] }
func (tl Timeline) Less(i, j int) bool {
	return tl[i].next.Before(tl[j].next)
}

// Search returns the insertion point for an entry firing at t.
func (tl Timeline) Search(t time.Time) int {
	return sort.Search(len(tl), func(i int) bool {
		return t.Before(tl[i].next)
	})
}

// indexOf returns the slice position of the entry with the given id,
// or -1. A linear scan, same tradeoff cron.Cron.rem makes: the engine
// is expected to hold at most a few thousand jobs, not large enough to
// justify a parallel id->index map.
func (tl Timeline) indexOf(id string) int {
	for i, e := range tl {
		if e.id == id {
			return i
		}
	}
	return -1
}
