package memory

import (
	"testing"

	"github.com/Comcast/ecs-scheduler/core"
)

func TestCreateGetRoundTrip(t *testing.T) {
	s := New()
	ctx := core.NewContext("test")
	job := &core.Job{Id: "sleeper-task", TaskDefinition: "sleeper-task", Schedule: "25 */5", TaskCount: 1, MaxCount: 1}
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Get(ctx, "sleeper-task")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Schedule != "25 */5" {
		t.Errorf("want schedule 25 */5, got %s", got.Schedule)
	}
}

func TestCreateDuplicateFailsAlreadyExists(t *testing.T) {
	s := New()
	ctx := core.NewContext("test")
	job := &core.Job{Id: "x", TaskDefinition: "t", Schedule: "* * *"}
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create(ctx, job)
	if _, ok := err.(*core.AlreadyExistsError); !ok {
		t.Fatalf("want AlreadyExistsError, got %T (%v)", err, err)
	}
}

func TestGetMissingFailsNotFound(t *testing.T) {
	s := New()
	ctx := core.NewContext("test")
	_, err := s.Get(ctx, "missing")
	if _, ok := err.(*core.NotFoundError); !ok {
		t.Fatalf("want NotFoundError, got %T (%v)", err, err)
	}
}

func TestListOrderedById(t *testing.T) {
	s := New()
	ctx := core.NewContext("test")
	for _, id := range []string{"b", "a", "c"} {
		s.Create(ctx, &core.Job{Id: id, TaskDefinition: "t", Schedule: "* * *"})
	}
	page, err := s.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("want total 3, got %d", page.Total)
	}
	want := []string{"a", "b", "c"}
	for i, j := range page.Items {
		if j.Id != want[i] {
			t.Errorf("position %d: want %s, got %s", i, want[i], j.Id)
		}
	}
}

func TestDeleteMissingFailsNotFound(t *testing.T) {
	s := New()
	ctx := core.NewContext("test")
	err := s.Delete(ctx, "missing")
	if _, ok := err.(*core.NotFoundError); !ok {
		t.Fatalf("want NotFoundError, got %T (%v)", err, err)
	}
}
