package engine

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueOrdersByPriorityThenArrival(t *testing.T) {
	var q requestQueue
	push := func(endpoint string, priority int, seq uint64) {
		heap.Push(&q, &queuedRequest{
			req: &request{endpoint: endpoint, priority: priority},
			seq: seq,
		})
	}

	push("/low-1", 0, 1)
	push("/high", 10, 2)
	push("/low-2", 0, 3)
	push("/mid-1", 5, 4)
	push("/mid-2", 5, 5)
	push("/low-3", 0, 6)

	var drained []string
	for q.Len() > 0 {
		drained = append(drained, heap.Pop(&q).(*queuedRequest).req.endpoint)
	}

	// Priority descending; equal priorities keep submission order.
	require.Equal(t, []string{"/high", "/mid-1", "/mid-2", "/low-1", "/low-2", "/low-3"}, drained)
}

func TestQueueFIFOWithinEqualPriority(t *testing.T) {
	var q requestQueue
	for seq := uint64(1); seq <= 6; seq++ {
		heap.Push(&q, &queuedRequest{
			req: &request{priority: 3},
			seq: seq,
		})
	}

	// Interleave pops with pushes; later arrivals never jump ahead.
	first := heap.Pop(&q).(*queuedRequest)
	require.Equal(t, uint64(1), first.seq)

	heap.Push(&q, &queuedRequest{req: &request{priority: 3}, seq: 7})

	var seqs []uint64
	for q.Len() > 0 {
		seqs = append(seqs, heap.Pop(&q).(*queuedRequest).seq)
	}
	require.Equal(t, []uint64{2, 3, 4, 5, 6, 7}, seqs)
}
