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

package api

import (
	"math/rand"

	"github.com/Comcast/ecs-scheduler/schedule"
)

// normalizeSchedule applies invariant I2 at the API ingress boundary:
// underscore-for-space day-of-week normalization, then '?' resolution
// to a concrete, uniformly random in-range value. The store never
// holds an unresolved wildcard.
func normalizeSchedule(raw string) (string, error) {
	normalized := schedule.NormalizeDOWUnderscores(raw)
	if !schedule.HasWildcard(normalized) {
		return normalized, nil
	}
	return schedule.ResolveWildcards(normalized, rand.Intn)
}
