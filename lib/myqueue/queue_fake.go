package myqueue

import (
	"context"
	"os"
	"sync"
)

// FakeTaskQueue never dispatches; it only remembers what was enqueued.
type FakeTaskQueue struct {
	sync.Mutex
	tasks []Task
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakeQueue
	}
}

func newFakeQueue(c context.Context) (TaskQueuer, func(), error) {
	return NewFake(), func() {}, nil
}

func NewFake() *FakeTaskQueue {
	return &FakeTaskQueue{}
}

func (q *FakeTaskQueue) Enqueue(c context.Context, task Task) error {
	q.Lock()
	defer q.Unlock()

	q.tasks = append(q.tasks, task)
	return nil
}

func (q *FakeTaskQueue) Tasks() []Task {
	q.Lock()
	defer q.Unlock()

	return append([]Task{}, q.tasks...)
}
