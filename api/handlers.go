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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/pretty"

	"github.com/Comcast/ecs-scheduler/core"
	"github.com/Comcast/ecs-scheduler/engine"
)

const (
	defaultSkip  = 0
	defaultCount = 10
)

// protest writes status with a JSON {"message": ...} error body built
// from fm and args.
func protest(w http.ResponseWriter, status int, fm string, args ...interface{}) {
	writeJSON(w, status, map[string]string{"message": fmt.Sprintf(fm, args...)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	js, err := json.Marshal(v)
	if err != nil {
		protest(w, http.StatusInternalServerError, "error serializing response: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	body := pretty.Pretty(js)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}

func writeProblem(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *core.NotFoundError:
		protest(w, http.StatusNotFound, "%s", e.Error())
	case *core.AlreadyExistsError:
		protest(w, http.StatusConflict, "%s", e.Error())
	case *core.ValidationError:
		protest(w, http.StatusUnprocessableEntity, "%s", e.Error())
	case *core.BackendUnavailableError:
		protest(w, http.StatusServiceUnavailable, "%s", e.Error())
	default:
		protest(w, http.StatusInternalServerError, "%s", err.Error())
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"endpoints": []string{
			"GET /jobs", "POST /jobs", "GET /jobs/{id}", "PUT /jobs/{id}", "DELETE /jobs/{id}", "GET /spec",
		},
	})
}

func (s *Server) handleSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, openAPIDocument)
}

func (s *Server) handleJobsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listJobs(w, r)
	case http.MethodPost:
		s.createJob(w, r)
	default:
		protest(w, http.StatusMethodNotAllowed, "unsupported method %s", r.Method)
	}
}

func (s *Server) handleJobsItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if id == "" {
		protest(w, http.StatusNotFound, "missing job id")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.getJob(w, r, id)
	case http.MethodPut:
		s.updateJob(w, r, id)
	case http.MethodDelete:
		s.deleteJob(w, r, id)
	default:
		protest(w, http.StatusMethodNotAllowed, "unsupported method %s", r.Method)
	}
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", defaultSkip)
	count := queryInt(r, "count", defaultCount)

	ctx := core.NewContext(r.Header.Get("X-Correlation-Id"))
	page, err := s.backend.List(ctx, skip, count)
	if err != nil {
		writeProblem(w, err)
		return
	}

	w.Header().Set("Content-Range", fmt.Sprintf("jobs %d-%d/%d", skip, skip+len(page.Items), page.Total))
	if link := linkHeader(r, skip, count, page.Total); link != "" {
		w.Header().Set("Link", link)
	}
	writeJSON(w, http.StatusOK, page)
}

// linkHeader builds next/prev Link-style pagination entries, omitting
// whichever end is out of range.
func linkHeader(r *http.Request, skip, count, total int) string {
	var parts []string
	if skip+count < total {
		parts = append(parts, fmt.Sprintf(`<%s?skip=%d&count=%d>; rel="next"`, r.URL.Path, skip+count, count))
	}
	if skip > 0 {
		prev := skip - count
		if prev < 0 {
			prev = 0
		}
		parts = append(parts, fmt.Sprintf(`<%s?skip=%d&count=%d>; rel="prev"`, r.URL.Path, prev, count))
	}
	return strings.Join(parts, ", ")
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	bs, err := ioutil.ReadAll(r.Body)
	if err != nil {
		protest(w, http.StatusBadRequest, "error reading request: %v", err)
		return
	}

	var job core.Job
	if err := unmarshalFlexible(bs, &job); err != nil {
		protest(w, http.StatusBadRequest, "error parsing body: %v", err)
		return
	}
	job.StripEngineManaged()

	if job.Id == "" {
		job.Id = job.TaskDefinition
	}

	if job.Schedule != "" {
		normalized, err := normalizeSchedule(job.Schedule)
		if err != nil {
			protest(w, http.StatusUnprocessableEntity, "error resolving schedule: %v", err)
			return
		}
		job.Schedule = normalized
	}

	if verr := job.Validate(); verr != nil {
		writeProblem(w, verr)
		return
	}

	ctx := core.NewContext(r.Header.Get("X-Correlation-Id"))
	if err := s.backend.Create(ctx, &job); err != nil {
		writeProblem(w, err)
		return
	}

	s.eng.Publish(ctx, engine.Mutation{Kind: engine.MutationCreate, Id: job.Id, Job: &job})
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":   job.Id,
		"link": map[string]string{"href": "/jobs/" + job.Id},
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request, id string) {
	ctx := core.NewContext(r.Header.Get("X-Correlation-Id"))
	job, err := s.backend.Get(ctx, id)
	if err != nil {
		writeProblem(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) updateJob(w http.ResponseWriter, r *http.Request, id string) {
	bs, err := ioutil.ReadAll(r.Body)
	if err != nil {
		protest(w, http.StatusBadRequest, "error reading request: %v", err)
		return
	}

	present, err := presentFields(bs)
	if err != nil {
		protest(w, http.StatusBadRequest, "error parsing body: %v", err)
		return
	}

	var partial core.Job
	if err := unmarshalFlexible(bs, &partial); err != nil {
		protest(w, http.StatusBadRequest, "error parsing body: %v", err)
		return
	}
	partial.StripEngineManaged()
	delete(present, "lastRun")
	delete(present, "lastRunTasks")
	delete(present, "estimatedNextRun")

	if present["schedule"] {
		normalized, err := normalizeSchedule(partial.Schedule)
		if err != nil {
			protest(w, http.StatusUnprocessableEntity, "error resolving schedule: %v", err)
			return
		}
		partial.Schedule = normalized
	}

	ctx := core.NewContext(r.Header.Get("X-Correlation-Id"))
	existing, err := s.backend.Get(ctx, id)
	if err != nil {
		writeProblem(w, err)
		return
	}

	existing.Merge(&partial, present)
	if verr := existing.Validate(); verr != nil {
		writeProblem(w, verr)
		return
	}

	if err := s.backend.Update(ctx, id, existing); err != nil {
		writeProblem(w, err)
		return
	}

	s.eng.Publish(ctx, engine.Mutation{Kind: mutationKindFor(present, existing.Suspended), Id: id, Job: existing})
	writeJSON(w, http.StatusOK, existing)
}

// mutationKindFor reports MutationPause or MutationResume when
// "suspended" was the only field the caller sent, so toggling a job's
// paused state publishes a dedicated mutation instead of a generic
// update; any other combination of present fields still publishes
// MutationUpdate, since the engine then needs the full job snapshot
// a pause/resume payload wouldn't carry.
func mutationKindFor(present map[string]bool, suspended bool) engine.MutationKind {
	if len(present) != 1 || !present["suspended"] {
		return engine.MutationUpdate
	}
	if suspended {
		return engine.MutationPause
	}
	return engine.MutationResume
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request, id string) {
	ctx := core.NewContext(r.Header.Get("X-Correlation-Id"))
	if err := s.backend.Delete(ctx, id); err != nil {
		writeProblem(w, err)
		return
	}
	s.eng.Publish(ctx, engine.Mutation{Kind: engine.MutationDelete, Id: id})
	w.WriteHeader(http.StatusNoContent)
}
