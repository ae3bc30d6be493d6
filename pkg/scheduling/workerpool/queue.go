package workerpool

import "time"

type queuedTask struct {
	task     Task
	enqueued time.Time
}

// taskQueue is a FIFO ring buffer. A limit of 0 means unbounded.
// It is not safe for concurrent use; the pool lock guards it.
type taskQueue struct {
	items []queuedTask
	head  int
	size  int
	limit int
}

const minQueueCapacity = 16

func newTaskQueue(limit int) taskQueue {
	return taskQueue{limit: limit}
}

func (q *taskQueue) Len() int {
	return q.size
}

func (q *taskQueue) Full() bool {
	return q.limit > 0 && q.size >= q.limit
}

func (q *taskQueue) Push(item queuedTask) {
	if q.size == len(q.items) {
		q.grow()
	}
	q.items[(q.head+q.size)%len(q.items)] = item
	q.size++
}

func (q *taskQueue) Pop() (queuedTask, bool) {
	if q.size == 0 {
		return queuedTask{}, false
	}
	item := q.items[q.head]
	q.items[q.head] = queuedTask{}
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return item, true
}

// Drain removes every item and returns the tasks in FIFO order.
func (q *taskQueue) Drain() []Task {
	tasks := make([]Task, 0, q.size)
	for {
		item, ok := q.Pop()
		if !ok {
			break
		}
		tasks = append(tasks, item.task)
	}
	q.head = 0
	return tasks
}

func (q *taskQueue) grow() {
	capacity := len(q.items) * 2
	if capacity < minQueueCapacity {
		capacity = minQueueCapacity
	}
	if q.limit > 0 && capacity > q.limit {
		capacity = q.limit
	}
	items := make([]queuedTask, capacity)
	for i := 0; i < q.size; i++ {
		items[i] = q.items[(q.head+i)%len(q.items)]
	}
	q.items = items
	q.head = 0
}
