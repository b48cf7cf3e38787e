package detecs

import "sync"

// barrierQueue collects closed command buffers until the world's next
// flush. Submission is safe from any goroutine; application happens on
// the single flushing goroutine, in submission order.
type barrierQueue struct {
	mu     sync.Mutex
	jobs   []barrierJob
	closed bool
}

type barrierJob struct {
	buf    *CommandBuffer
	result chan flushResult
}

type flushResult struct {
	applied int
	err     error
}

// FlushHandle reports the outcome of one submitted buffer after the
// barrier that consumed it has run.
type FlushHandle struct {
	result chan flushResult
}

// Wait blocks until the buffer has been applied and returns the number
// of operations applied. Buffers closed empty resolve immediately.
func (h *FlushHandle) Wait() (int, error) {
	if h == nil || h.result == nil {
		return 0, nil
	}
	res, ok := <-h.result
	if !ok {
		return 0, nil
	}
	return res.applied, res.err
}

func completedFlushHandle() *FlushHandle {
	ch := make(chan flushResult, 1)
	ch <- flushResult{}
	close(ch)
	return &FlushHandle{result: ch}
}

func newBarrierQueue() *barrierQueue {
	return &barrierQueue{}
}

func (q *barrierQueue) Submit(buf *CommandBuffer) (*FlushHandle, error) {
	result := make(chan flushResult, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		result <- flushResult{err: ErrBarrierClosed}
		close(result)
		return &FlushHandle{result: result}, ErrBarrierClosed
	}
	q.jobs = append(q.jobs, barrierJob{buf: buf, result: result})
	q.mu.Unlock()

	return &FlushHandle{result: result}, nil
}

// drain takes the pending jobs, leaving the queue open for the next step.
func (q *barrierQueue) drain() []barrierJob {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()
	return jobs
}

// Close rejects future submissions and resolves pending handles with
// ErrBarrierClosed.
func (q *barrierQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	for _, job := range jobs {
		job.result <- flushResult{err: ErrBarrierClosed}
		close(job.result)
	}
}
