package server

import "sync"

// chatQueue runs jobs for one chat in the order they were enqueued.
// Each chat with pending work has a single worker goroutine; it exits once the chat's queue is empty.
type chatQueue struct {
	mu      sync.Mutex
	pending map[string][]func()
	wg      sync.WaitGroup
}

func newChatQueue() *chatQueue {
	return &chatQueue{pending: make(map[string][]func())}
}

// enqueue appends job to the chat's queue and returns without waiting for it
func (q *chatQueue) enqueue(chatID string, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs, running := q.pending[chatID]
	q.pending[chatID] = append(jobs, job)
	if !running {
		q.wg.Add(1)
		go q.drain(chatID)
	}
}

func (q *chatQueue) drain(chatID string) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		jobs := q.pending[chatID]
		if len(jobs) == 0 {
			delete(q.pending, chatID)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		jobs[0] = nil
		q.pending[chatID] = jobs[1:]
		q.mu.Unlock()

		job()
	}
}

// wait blocks until every enqueued job has finished
func (q *chatQueue) wait() {
	q.wg.Wait()
}
