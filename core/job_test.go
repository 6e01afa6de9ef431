package core

import (
	"testing"
	"time"
)

func TestValidateRequiresTaskDefinitionAndSchedule(t *testing.T) {
	j := &Job{}
	err := j.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := err.Fields["taskDefinition"]; !ok {
		t.Error("expected taskDefinition field error")
	}
	if _, ok := err.Fields["schedule"]; !ok {
		t.Error("expected schedule field error")
	}
}

func TestValidateDefaultsTaskAndMaxCount(t *testing.T) {
	j := &Job{TaskDefinition: "sleeper-task", Schedule: "25 */5"}
	if err := j.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err.Fields)
	}
	if j.TaskCount != 1 {
		t.Errorf("want default taskCount 1, got %d", j.TaskCount)
	}
	if j.MaxCount != 50 {
		t.Errorf("want default maxCount 50, got %d", j.MaxCount)
	}
}

func TestValidateInvariantI3(t *testing.T) {
	j := &Job{TaskDefinition: "t", Schedule: "* * *", TaskCount: 10, MaxCount: 5}
	err := j.Validate()
	if err == nil {
		t.Fatal("expected maxCount < taskCount to fail validation")
	}
	if _, ok := err.Fields["maxCount"]; !ok {
		t.Error("expected maxCount field error")
	}
}

func TestValidateDuplicateOverrideContainerName(t *testing.T) {
	j := &Job{
		TaskDefinition: "t", Schedule: "* * *",
		Overrides: []Override{
			{ContainerName: "c", Environment: map[string]string{"A": "1"}},
			{ContainerName: "c", Environment: map[string]string{"B": "2"}},
		},
	}
	if err := j.Validate(); err == nil {
		t.Fatal("expected duplicate containerName to fail validation")
	}
}

func TestStripEngineManaged(t *testing.T) {
	now := time.Now()
	j := &Job{LastRun: &now, LastRunTasks: []string{"x"}, EstimatedNextRun: &now}
	j.StripEngineManaged()
	if j.LastRun != nil || j.LastRunTasks != nil || j.EstimatedNextRun != nil {
		t.Fatal("expected engine-managed fields to be stripped")
	}
}

func TestMergePartialLeavesUntouchedFieldsAlone(t *testing.T) {
	j := &Job{TaskDefinition: "orig", Schedule: "1 2 3", TaskCount: 2, MaxCount: 4}
	partial := &Job{Suspended: true}
	j.Merge(partial, map[string]bool{"suspended": true})
	if j.TaskDefinition != "orig" || j.Schedule != "1 2 3" {
		t.Fatal("expected untouched fields to remain unchanged")
	}
	if !j.Suspended {
		t.Fatal("expected suspended to be merged in")
	}
}

func TestLaunchCountWithoutTrigger(t *testing.T) {
	j := &Job{TaskCount: 3, MaxCount: 10}
	if got := j.LaunchCount(); got != 3 {
		t.Fatalf("want 3, got %d", got)
	}
	j2 := &Job{TaskCount: 20, MaxCount: 10}
	if got := j2.LaunchCount(); got != 10 {
		t.Fatalf("want 10, got %d", got)
	}
}
