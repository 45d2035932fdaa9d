// Package taskloop drives heterogeneous units of work to completion.
//
// Synchronous tasks run inline on the loop, one at a time, and are the only
// tasks allowed to touch the shared context. Asynchronous tasks run
// concurrently in waves; their follow-ups are enqueued in the order the wave
// was launched, so the outcome does not depend on which task finishes first.
package taskloop

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"
)

// TaskType is the execution mode a task declares.
type TaskType int

// Task types.
const (
	TaskTypeSync TaskType = iota
	TaskTypeAsync
)

func (t TaskType) String() string {
	if t == TaskTypeAsync {
		return "async"
	}
	return "sync"
}

// Task is a single-use unit of work over a shared context C.
// A task must also implement SyncTask or AsyncTask matching Type().
type Task[C any] interface {
	Type() TaskType
}

// SyncTask runs inline with exclusive access to the context.
type SyncTask[C any] interface {
	Task[C]
	SyncRun(c *C) ([]Task[C], error)
}

// AsyncTask may block on I/O. It never sees the context.
type AsyncTask[C any] interface {
	Task[C]
	AsyncRun(ctx context.Context) ([]Task[C], error)
}

// Observer is notified after every task.
type Observer func(name string, typ TaskType, elapsed time.Duration, err error)

// Options configures Run.
type Options struct {
	// Workers bounds concurrently running async tasks (<= 0 means unbounded)
	Workers int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Observer is called after each task (optional)
	Observer Observer
}

// Run executes tasks and every follow-up they produce until the queue is empty.
// The first failure stops the loop and is returned.
func Run[C any](ctx context.Context, c *C, tasks []Task[C], opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	queue := append([]Task[C](nil), tasks...)
	var processed int

	for len(queue) > 0 {
		var wave []AsyncTask[C]

		// Drain synchronous work; async tasks wait for the next wave.
		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			task := queue[0]
			queue[0] = nil
			queue = queue[1:]
			processed++

			switch task.Type() {
			case TaskTypeSync:
				st, ok := task.(SyncTask[C])
				if !ok {
					return &TaskTypeError{Task: TaskName(task), Declared: TaskTypeSync}
				}
				next, err := runSync(c, st, opts.Observer)
				if err != nil {
					return err
				}
				queue = append(queue, next...)
			case TaskTypeAsync:
				at, ok := task.(AsyncTask[C])
				if !ok {
					return &TaskTypeError{Task: TaskName(task), Declared: TaskTypeAsync}
				}
				wave = append(wave, at)
			default:
				return &TaskTypeError{Task: TaskName(task), Declared: task.Type()}
			}
		}

		if len(wave) == 0 {
			break
		}

		logger.Debug("running async wave", "tasks", len(wave))
		results, err := runWave(ctx, wave, opts)
		if err != nil {
			return err
		}
		for _, next := range results {
			queue = append(queue, next...)
		}
	}

	logger.Debug("task loop drained", "tasks_processed", processed)
	return nil
}

func runSync[C any](c *C, task SyncTask[C], observe Observer) ([]Task[C], error) {
	start := time.Now()
	next, err := task.SyncRun(c)
	if observe != nil {
		observe(TaskName(task), TaskTypeSync, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TaskName(task), err)
	}
	return next, nil
}

func runWave[C any](ctx context.Context, wave []AsyncTask[C], opts Options) ([][]Task[C], error) {
	results := make([][]Task[C], len(wave))

	eg, egctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		eg.SetLimit(opts.Workers)
	}

	for i, task := range wave {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			next, err := task.AsyncRun(egctx)
			if opts.Observer != nil {
				opts.Observer(TaskName(task), TaskTypeAsync, time.Since(start), err)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", TaskName(task), err)
			}
			results[i] = next
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// TaskName returns the type name of a task without package or pointer prefix.
func TaskName(task any) string {
	t := reflect.TypeOf(task)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// TaskTypeError reports a task whose declared type does not match the interface it implements.
type TaskTypeError struct {
	Task     string
	Declared TaskType
}

func (e *TaskTypeError) Error() string {
	return fmt.Sprintf("task %s declares %s but does not implement it", e.Task, e.Declared)
}
