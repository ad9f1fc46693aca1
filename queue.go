package issuesync

import "context"

// WorkItem is the minimal descriptor queued per webhook delivery. It
// deliberately carries no event payload fields: the worker re-fetches
// authoritative state by number, so stale or duplicated deliveries
// cannot corrupt the index.
type WorkItem struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	IssueNumber int    `json:"issueNumber"`
}

// Queue is the seam to the hosting queue substrate. Delivery to the
// queue is at-most-once; a missed sync is corrected by the next
// webhook or a full crawl.
type Queue interface {
	Enqueue(ctx context.Context, item WorkItem) error
}

// MemQueue is a channel-backed Queue for in-process hosting.
type MemQueue struct {
	ch chan WorkItem
}

func NewMemQueue(size int) *MemQueue {
	return &MemQueue{ch: make(chan WorkItem, size)}
}

func (q *MemQueue) Enqueue(ctx context.Context, item WorkItem) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Items exposes the receive side for the worker.
func (q *MemQueue) Items() <-chan WorkItem {
	return q.ch
}
