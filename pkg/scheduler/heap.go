package scheduler

import "container/heap"

// taskHeap implements container/heap.Interface for scheduled tasks,
// earliest deadline first.
type taskHeap []*scheduledTask

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*scheduledTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// heapPush adds a task, maintaining the heap invariant.
func heapPush(h *taskHeap, t *scheduledTask) {
	heap.Push(h, t)
}

// heapPop removes and returns the earliest task. Panics if the heap is empty.
func heapPop(h *taskHeap) *scheduledTask {
	return heap.Pop(h).(*scheduledTask)
}

// heapPeek returns the earliest task without removing it, or nil.
func heapPeek(h *taskHeap) *scheduledTask {
	if h.Len() == 0 {
		return nil
	}
	return (*h)[0]
}
