package taskloop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbundle/internal/testutil"
)

type testContext struct {
	log []string
}

// countdownTask is synchronous and spawns an async echo task until n reaches zero.
type countdownTask struct {
	n int
}

func (t *countdownTask) Type() TaskType { return TaskTypeSync }

func (t *countdownTask) SyncRun(c *testContext) ([]Task[testContext], error) {
	c.log = append(c.log, "countdown")
	if t.n == 0 {
		return nil, nil
	}
	return []Task[testContext]{&echoTask{n: t.n}}, nil
}

// echoTask is asynchronous and hands control back to countdownTask.
type echoTask struct {
	n     int
	delay time.Duration
}

func (t *echoTask) Type() TaskType { return TaskTypeAsync }

func (t *echoTask) AsyncRun(ctx context.Context) ([]Task[testContext], error) {
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []Task[testContext]{&recordTask{label: "echo"}, &countdownTask{n: t.n - 1}}, nil
}

type recordTask struct {
	label string
}

func (t *recordTask) Type() TaskType { return TaskTypeSync }

func (t *recordTask) SyncRun(c *testContext) ([]Task[testContext], error) {
	c.log = append(c.log, t.label)
	return nil, nil
}

type failingTask struct {
	typ TaskType
	err error
}

func (t *failingTask) Type() TaskType { return t.typ }

func (t *failingTask) SyncRun(*testContext) ([]Task[testContext], error) { return nil, t.err }

func (t *failingTask) AsyncRun(context.Context) ([]Task[testContext], error) { return nil, t.err }

// liarTask declares async but only implements the marker interface.
type liarTask struct{}

func (liarTask) Type() TaskType { return TaskTypeAsync }

func TestRun_Trampoline(t *testing.T) {
	c := &testContext{}
	err := Run(context.Background(), c, []Task[testContext]{&countdownTask{n: 3}}, Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"countdown", "echo",
		"countdown", "echo",
		"countdown", "echo",
		"countdown",
	}, c.log)
}

func TestRun_DeepChainDoesNotRecurse(t *testing.T) {
	c := &testContext{}
	err := Run(context.Background(), c, []Task[testContext]{&countdownTask{n: 10000}}, Options{})
	require.NoError(t, err)
	assert.Len(t, c.log, 2*10000+1)
}

func TestRun_FollowUpsKeepLaunchOrder(t *testing.T) {
	c := &testContext{}
	// the first task of the wave finishes last
	tasks := []Task[testContext]{
		&labelAsync{label: "a", delay: 30 * time.Millisecond},
		&labelAsync{label: "b", delay: 10 * time.Millisecond},
		&labelAsync{label: "c"},
	}
	require.NoError(t, Run(context.Background(), c, tasks, Options{Workers: 3}))
	assert.Equal(t, []string{"a", "b", "c"}, c.log)
}

type labelAsync struct {
	label string
	delay time.Duration
}

func (t *labelAsync) Type() TaskType { return TaskTypeAsync }

func (t *labelAsync) AsyncRun(context.Context) ([]Task[testContext], error) {
	time.Sleep(t.delay)
	return []Task[testContext]{&recordTask{label: t.label}}, nil
}

func TestRun_SyncFailureStops(t *testing.T) {
	boom := errors.New("boom")
	c := &testContext{}
	err := Run(context.Background(), c, []Task[testContext]{
		&failingTask{typ: TaskTypeSync, err: boom},
		&recordTask{label: "never"},
	}, Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failingTask")
	assert.Empty(t, c.log)
}

func TestRun_AsyncFailureStops(t *testing.T) {
	boom := errors.New("boom")
	c := &testContext{}
	err := Run(context.Background(), c, []Task[testContext]{
		&failingTask{typ: TaskTypeAsync, err: boom},
		&labelAsync{label: "sibling"},
	}, Options{Workers: 1})

	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, c.log, "sibling", "follow-ups of a failed wave are not enqueued")
}

func TestRun_TypeMismatch(t *testing.T) {
	c := &testContext{}
	err := Run(context.Background(), c, []Task[testContext]{liarTask{}}, Options{})

	var typeErr *TaskTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "liarTask", typeErr.Task)
	assert.Equal(t, TaskTypeAsync, typeErr.Declared)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, &testContext{}, []Task[testContext]{&recordTask{label: "x"}}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Observer(t *testing.T) {
	var syncCount, asyncCount atomic.Int32
	opts := Options{
		Observer: func(name string, typ TaskType, _ time.Duration, err error) {
			assert.NotEmpty(t, name)
			assert.NoError(t, err)
			if typ == TaskTypeAsync {
				asyncCount.Add(1)
			} else {
				syncCount.Add(1)
			}
		},
	}
	require.NoError(t, Run(context.Background(), &testContext{}, []Task[testContext]{&countdownTask{n: 2}}, opts))

	assert.Equal(t, int32(2), asyncCount.Load())
	assert.Equal(t, int32(5), syncCount.Load())
}

func TestTaskName(t *testing.T) {
	assert.Equal(t, "countdownTask", TaskName(&countdownTask{}))
	assert.Equal(t, "liarTask", TaskName(liarTask{}))
}
