package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Comcast/ecs-scheduler/engine"
	"github.com/Comcast/ecs-scheduler/launcher"
	"github.com/Comcast/ecs-scheduler/store/memory"
	"github.com/Comcast/ecs-scheduler/trigger"
)

func newTestServer() *Server {
	backend := memory.New()
	eng := engine.New(backend, trigger.NewRegistry(), &launcher.ECS{}, "test")
	return NewServer(backend, eng, "test")
}

func TestCreateThenGetJob(t *testing.T) {
	s := newTestServer()

	body := `{"id":"nightly","taskDefinition":"sleeper-task","schedule":"0 0 3 * * * *"}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/jobs/nightly", nil)
	rec2 := httptest.NewRecorder()
	s.mux.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec2.Code, rec2.Body.String())
	}
	if !strings.Contains(rec2.Body.String(), "sleeper-task") {
		t.Fatalf("want taskDefinition in response, got %s", rec2.Body.String())
	}
}

func TestCreateDuplicateConflicts(t *testing.T) {
	s := newTestServer()
	body := `{"id":"dup","taskDefinition":"td","schedule":"0 0 3 * * * *"}`

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	rec2 := httptest.NewRecorder()
	s.mux.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d: %s", rec2.Code, rec2.Body.String())
	}
}

func TestGetMissingJobIs404(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/jobs/nope", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}

func TestUpdateJobMergesPartially(t *testing.T) {
	s := newTestServer()
	createBody := `{"id":"svc","taskDefinition":"td","schedule":"0 0 3 * * * *","taskCount":2}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
	}

	updateBody := `{"suspended":true}`
	req2 := httptest.NewRequest(http.MethodPut, "/jobs/svc", strings.NewReader(updateBody))
	rec2 := httptest.NewRecorder()
	s.mux.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec2.Code, rec2.Body.String())
	}
	if !strings.Contains(rec2.Body.String(), `"taskDefinition": "td"`) && !strings.Contains(rec2.Body.String(), `"taskDefinition":"td"`) {
		t.Fatalf("want taskDefinition preserved across partial update, got %s", rec2.Body.String())
	}
}

func TestDeleteJob(t *testing.T) {
	s := newTestServer()
	createBody := `{"id":"gone","taskDefinition":"td","schedule":"0 0 3 * * * *"}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d", rec.Code)
	}

	del := httptest.NewRequest(http.MethodDelete, "/jobs/gone", nil)
	delRec := httptest.NewRecorder()
	s.mux.ServeHTTP(delRec, del)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", delRec.Code)
	}

	get := httptest.NewRequest(http.MethodGet, "/jobs/gone", nil)
	getRec := httptest.NewRecorder()
	s.mux.ServeHTTP(getRec, get)
	if getRec.Code != http.StatusNotFound {
		t.Fatalf("want 404 after delete, got %d", getRec.Code)
	}
}

func TestCreateWithoutIdDefaultsToTaskDefinition(t *testing.T) {
	s := newTestServer()
	body := `{"taskDefinition":"sleeper-task","schedule":"25 */5"}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"id": "sleeper-task"`) && !strings.Contains(rec.Body.String(), `"id":"sleeper-task"`) {
		t.Fatalf("want id defaulted to taskDefinition, got %s", rec.Body.String())
	}
}

func TestCreateResolvesWildcardScheduleStably(t *testing.T) {
	s := newTestServer()
	body := `{"id":"wild","taskDefinition":"sleeper-task","schedule":"? */5"}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/jobs/wild", nil)
	rec2 := httptest.NewRecorder()
	s.mux.ServeHTTP(rec2, req2)
	first := rec2.Body.String()
	if strings.Contains(first, "?") {
		t.Fatalf("want resolved schedule with no '?', got %s", first)
	}

	req3 := httptest.NewRequest(http.MethodGet, "/jobs/wild", nil)
	rec3 := httptest.NewRecorder()
	s.mux.ServeHTTP(rec3, req3)
	if first != rec3.Body.String() {
		t.Fatalf("want stable resolved schedule across GETs, got %s then %s", first, rec3.Body.String())
	}
}

func TestMutationKindForSuspendedOnly(t *testing.T) {
	pause := mutationKindFor(map[string]bool{"suspended": true}, true)
	if pause != engine.MutationPause {
		t.Fatalf("want MutationPause, got %s", pause)
	}
	resume := mutationKindFor(map[string]bool{"suspended": true}, false)
	if resume != engine.MutationResume {
		t.Fatalf("want MutationResume, got %s", resume)
	}
}

func TestMutationKindForOtherFieldsIsUpdate(t *testing.T) {
	kind := mutationKindFor(map[string]bool{"suspended": true, "taskCount": true}, true)
	if kind != engine.MutationUpdate {
		t.Fatalf("want MutationUpdate when more than suspended changed, got %s", kind)
	}
	kind = mutationKindFor(map[string]bool{"taskCount": true}, false)
	if kind != engine.MutationUpdate {
		t.Fatalf("want MutationUpdate when suspended didn't change, got %s", kind)
	}
}

func TestListJobsPagination(t *testing.T) {
	s := newTestServer()
	for _, id := range []string{"a", "b", "c"} {
		body := `{"id":"` + id + `","taskDefinition":"td","schedule":"0 0 3 * * * *"}`
		req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s: want 201, got %d", id, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs?skip=0&count=2", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Range") == "" {
		t.Fatal("want Content-Range header on list response")
	}
}
