package launcher

import (
	"testing"

	"github.com/Comcast/ecs-scheduler/core"
)

func TestBuildOverrideEmpty(t *testing.T) {
	if got := buildOverride(nil); got != nil {
		t.Fatalf("want nil override for empty input, got %+v", got)
	}
}

func TestBuildOverrideTranslatesContainers(t *testing.T) {
	overrides := []core.Override{
		{ContainerName: "app", Environment: map[string]string{"FOO": "bar"}},
	}
	got := buildOverride(overrides)
	if got == nil || len(got.ContainerOverrides) != 1 {
		t.Fatalf("want one container override, got %+v", got)
	}
	co := got.ContainerOverrides[0]
	if co.Name == nil || *co.Name != "app" {
		t.Fatalf("want container name app, got %+v", co.Name)
	}
	if len(co.Environment) != 1 || *co.Environment[0].Name != "FOO" || *co.Environment[0].Value != "bar" {
		t.Fatalf("want FOO=bar env entry, got %+v", co.Environment)
	}
}

func TestLaunchZeroCountIsNoop(t *testing.T) {
	e := &ECS{cluster: "test-cluster"}
	result := e.Launch(core.NewContext("t"), "td", 0, nil, "ecs-scheduler")
	if len(result.Tasks) != 0 || len(result.Failures) != 0 {
		t.Fatalf("want empty result for zero count, got %+v", result)
	}
}
