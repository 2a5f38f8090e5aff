package engine

import "sync"

// lineQueue is an unbounded FIFO of lines. notify receives a token after
// each push so a consumer can block until something arrives.
type lineQueue struct {
	mu     sync.Mutex
	lines  []string
	notify chan struct{}
}

func newLineQueue() *lineQueue {
	return &lineQueue{notify: make(chan struct{}, 1)}
}

func (q *lineQueue) push(line string) {
	q.mu.Lock()
	q.lines = append(q.lines, line)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *lineQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	q.lines[0] = ""
	q.lines = q.lines[1:]
	return line, true
}

func (q *lineQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}
