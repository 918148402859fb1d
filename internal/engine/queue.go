package engine

import "sync"

// actionQueue is an unbounded FIFO of actions. Enqueue never blocks, which
// keeps effect completions and client dispatches from ever stalling on the
// loop's progress.
type actionQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Action
	closed bool
}

func newActionQueue() *actionQueue {
	q := &actionQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *actionQueue) push(a Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, a)
	q.cond.Signal()
}

// pop blocks until an action is available or the queue is closed. Returns
// false once closed and drained.
func (q *actionQueue) pop() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	a := q.items[0]
	q.items = q.items[1:]
	return a, true
}

func (q *actionQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *actionQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
