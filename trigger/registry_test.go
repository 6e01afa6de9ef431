package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/Comcast/ecs-scheduler/core"
)

type fakeEvaluator struct {
	desired int
	err     error
}

func (f fakeEvaluator) Evaluate(ctx context.Context, tr *core.Trigger) (int, error) {
	return f.desired, f.err
}

func TestDesiredWithoutTriggerUsesLaunchCount(t *testing.T) {
	r := NewRegistry()
	j := &core.Job{TaskCount: 3, MaxCount: 10}
	got, err := r.Desired(context.Background(), j)
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}
	if got != 3 {
		t.Fatalf("want 3, got %d", got)
	}
}

func TestDesiredUnregisteredTypeYieldsTriggerError(t *testing.T) {
	r := NewRegistry()
	j := &core.Job{TaskCount: 1, MaxCount: 1, Trigger: &core.Trigger{Type: "nope"}}
	_, err := r.Desired(context.Background(), j)
	if _, ok := err.(*core.TriggerError); !ok {
		t.Fatalf("want TriggerError, got %T (%v)", err, err)
	}
}

func TestDesiredZeroDepthYieldsZero(t *testing.T) {
	r := NewRegistry()
	r.Register("sqs", fakeEvaluator{desired: 0})
	j := &core.Job{TaskCount: 1, MaxCount: 50, Trigger: &core.Trigger{Type: "sqs", QueueName: "q", MessagesPerTask: 100}}
	got, err := r.Desired(context.Background(), j)
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}
	if got != 0 {
		t.Fatalf("want 0, got %d", got)
	}
}

func TestDesiredFansOutAndCaps(t *testing.T) {
	r := NewRegistry()
	r.Register("sqs", fakeEvaluator{desired: 3})
	j := &core.Job{TaskCount: 1, MaxCount: 0, Trigger: &core.Trigger{Type: "sqs", QueueName: "q", MessagesPerTask: 100}}
	got, err := r.Desired(context.Background(), j)
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}
	if got != 3 {
		t.Fatalf("want 3, got %d", got)
	}
}

func TestDesiredCapsAtMaxCount(t *testing.T) {
	r := NewRegistry()
	r.Register("sqs", fakeEvaluator{desired: 50})
	j := &core.Job{TaskCount: 1, MaxCount: 10, Trigger: &core.Trigger{Type: "sqs", QueueName: "q", MessagesPerTask: 100}}
	got, err := r.Desired(context.Background(), j)
	if err != nil {
		t.Fatalf("Desired: %v", err)
	}
	if got != 10 {
		t.Fatalf("want 10, got %d", got)
	}
}

func TestDesiredEvaluatorErrorYieldsTriggerError(t *testing.T) {
	r := NewRegistry()
	r.Register("sqs", fakeEvaluator{err: errors.New("boom")})
	j := &core.Job{TaskCount: 1, MaxCount: 1, Trigger: &core.Trigger{Type: "sqs", QueueName: "q", MessagesPerTask: 100}}
	_, err := r.Desired(context.Background(), j)
	if _, ok := err.(*core.TriggerError); !ok {
		t.Fatalf("want TriggerError, got %T (%v)", err, err)
	}
}
