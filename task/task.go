// FILE: lixenwraith/tunable/task/task.go

// Package task holds the task and task-factory bases plugins build on.
// Tasks declare their parameters as tunables; the Runner applies values to
// them before running.
package task

import (
	"context"
	"errors"
)

var (
	ErrNilNetwork  = errors.New("network must not be nil")
	ErrNotReady    = errors.New("task factory is not ready")
	ErrNoMoreTasks = errors.New("no more tasks")
)

// Network is the graph a task factory operates on. Its data model is owned by the host.
type Network interface {
	SUID() int64
	Name() string
}

// Task is one unit of work.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to a Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error { return f(ctx) }

// Iterator yields tasks in order. Tasks may append follow-up tasks while running.
type Iterator struct {
	tasks []Task
	next  int
}

// NewIterator creates an iterator over tasks.
func NewIterator(tasks ...Task) *Iterator {
	return &Iterator{tasks: tasks}
}

// Append adds tasks at the end.
func (it *Iterator) Append(tasks ...Task) {
	it.tasks = append(it.tasks, tasks...)
}

// InsertNext places tasks right after the current one.
func (it *Iterator) InsertNext(tasks ...Task) {
	rest := append(append([]Task{}, tasks...), it.tasks[it.next:]...)
	it.tasks = append(it.tasks[:it.next], rest...)
}

func (it *Iterator) HasNext() bool {
	return it.next < len(it.tasks)
}

func (it *Iterator) Next() (Task, error) {
	if !it.HasNext() {
		return nil, ErrNoMoreTasks
	}
	t := it.tasks[it.next]
	it.next++
	return t, nil
}

// Len is the total number of tasks, run or pending.
func (it *Iterator) Len() int {
	return len(it.tasks)
}

// Factory creates the tasks for one invocation.
type Factory interface {
	CreateTaskIterator() (*Iterator, error)
	IsReady() bool
}
