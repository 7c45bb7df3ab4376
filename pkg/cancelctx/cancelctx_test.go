package cancelctx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMerge_FirstParentCancels(t *testing.T) {
	parent1, cancel1 := context.WithCancelCause(context.Background())
	defer cancel1(nil)
	parent2, cancel2 := context.WithCancelCause(context.Background())
	defer cancel2(nil)

	merged, release := Merge(parent1, parent2)
	defer release()

	want := errors.New("parent one gave up")
	cancel1(want)

	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context not cancelled after parent cancellation")
	}

	if got := context.Cause(merged); !errors.Is(got, want) {
		t.Errorf("Cause = %v, want %v", got, want)
	}
}

func TestMerge_SecondaryParentCancels(t *testing.T) {
	parent1 := context.Background()
	parent2, cancel2 := context.WithCancelCause(context.Background())
	defer cancel2(nil)
	parent3, cancel3 := context.WithCancelCause(context.Background())
	defer cancel3(nil)

	merged, release := Merge(parent1, parent2, parent3)
	defer release()

	want := errors.New("parent three fired first")
	cancel3(want)

	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context not cancelled after secondary parent cancellation")
	}

	if got := context.Cause(merged); !errors.Is(got, want) {
		t.Errorf("Cause = %v, want %v", got, want)
	}
}

func TestMerge_ReleaseCancelsAndDetaches(t *testing.T) {
	parent, cancelParent := context.WithCancelCause(context.Background())
	defer cancelParent(nil)

	merged, release := Merge(context.Background(), parent)
	release()

	select {
	case <-merged.Done():
	default:
		t.Fatal("merged context still live after release")
	}
	if got := context.Cause(merged); !errors.Is(got, context.Canceled) {
		t.Errorf("Cause after release = %v, want context.Canceled", got)
	}
}

func TestWithTimeout_TimeoutFires(t *testing.T) {
	merged, release := WithTimeout(10*time.Millisecond, context.Background())
	defer release()

	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context did not time out")
	}

	if got := context.Cause(merged); !errors.Is(got, ErrTimeout) {
		t.Errorf("Cause = %v, want ErrTimeout", got)
	}
}

func TestWithTimeout_ExternalBeatsTimeout(t *testing.T) {
	external, cancelExternal := context.WithCancelCause(context.Background())
	defer cancelExternal(nil)

	merged, release := WithTimeout(time.Hour, external)
	defer release()

	want := errors.New("caller aborted")
	cancelExternal(want)

	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("merged context not cancelled by external handle")
	}

	cause := context.Cause(merged)
	if !errors.Is(cause, want) {
		t.Errorf("Cause = %v, want the external reason", cause)
	}
	if errors.Is(cause, ErrTimeout) {
		t.Error("Cause reports a timeout even though the external handle fired first")
	}
}

func TestMerge_NoParents(t *testing.T) {
	merged, release := Merge()
	defer release()

	select {
	case <-merged.Done():
		t.Fatal("merged context cancelled with no parents")
	default:
	}
}
