package engine

import (
	"container/heap"
	"time"
)

// queuedRequest is a request waiting in the scheduler. The sequence number
// fixes submission order so equal-priority items drain FIFO.
type queuedRequest struct {
	req        *request
	enqueuedAt time.Time
	seq        uint64
}

// request is the normalized, immutable descriptor of one submitted request.
type request struct {
	key            string
	service        string
	endpoint       string
	method         string
	params         map[string]string
	headers        map[string]string
	body           []byte
	priority       int
	cacheable      bool
	cacheTTL       time.Duration
	maxRetries     int
	retryBaseDelay time.Duration
	entry          *inflight
	requestedAt    time.Time
}

// requestQueue orders by priority (descending) then sequence (ascending).
// The ordering is total and stable: retries of other items never reorder
// equal-priority entries.
type requestQueue []*queuedRequest

func (q requestQueue) Len() int { return len(q) }

func (q requestQueue) Less(i, j int) bool {
	if q[i].req.priority != q[j].req.priority {
		return q[i].req.priority > q[j].req.priority
	}
	return q[i].seq < q[j].seq
}

func (q requestQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *requestQueue) Push(x any) { *q = append(*q, x.(*queuedRequest)) }

func (q *requestQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*requestQueue)(nil)
