// Package dsa holds small data structures used by the ranking commands.
package dsa

import (
	"sort"
	"sync"
)

// ─── Bounded Top-K (Min-Heap) ───────────────────────────────────────────────
// Keeps the K highest-scoring items seen so far. The root is the weakest
// kept item, so a new candidate is compared against it in O(1) and replaces
// it in O(log K).
//
// Ties are broken by insertion order: the earlier item ranks higher.

// RankItem is an element offered to a TopK.
type RankItem struct {
	Key   string  // Identifier, e.g. "model @ gpu"
	Score float64 // Higher is better
	Value any     // Payload
	seq   uint64
}

// TopK is a thread-safe bounded top-K selector.
type TopK struct {
	mu   sync.Mutex
	k    int
	heap []RankItem
	seq  uint64
}

// NewTopK creates a selector that keeps at most k items.
// k <= 0 keeps nothing.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k, heap: make([]RankItem, 0, k)}
}

// Offer considers an item and reports whether it was kept.
func (t *TopK) Offer(item RankItem) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	item.seq = t.seq
	t.seq++

	if t.k == 0 {
		return false
	}
	if len(t.heap) < t.k {
		t.heap = append(t.heap, item)
		t.siftUp(len(t.heap) - 1)
		return true
	}
	if !ranksAbove(item, t.heap[0]) {
		return false
	}
	t.heap[0] = item
	t.siftDown(0)
	return true
}

// Len returns the number of kept items.
func (t *TopK) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.heap)
}

// Min returns the weakest kept item.
func (t *TopK) Min() (RankItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.heap) == 0 {
		return RankItem{}, false
	}
	return t.heap[0], true
}

// Sorted returns the kept items, best first. The selector is unchanged.
func (t *TopK) Sorted() []RankItem {
	t.mu.Lock()
	out := make([]RankItem, len(t.heap))
	copy(out, t.heap)
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return ranksAbove(out[i], out[j]) })
	return out
}

// ranksAbove reports whether a should be listed before b.
func ranksAbove(a, b RankItem) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.seq < b.seq
}

// less orders the heap with the weakest item at the root.
func (t *TopK) less(i, j int) bool {
	return ranksAbove(t.heap[j], t.heap[i])
}

func (t *TopK) siftUp(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if !t.less(idx, parent) {
			break
		}
		t.heap[idx], t.heap[parent] = t.heap[parent], t.heap[idx]
		idx = parent
	}
}

func (t *TopK) siftDown(idx int) {
	n := len(t.heap)
	for {
		smallest := idx
		left := 2*idx + 1
		right := 2*idx + 2

		if left < n && t.less(left, smallest) {
			smallest = left
		}
		if right < n && t.less(right, smallest) {
			smallest = right
		}
		if smallest == idx {
			break
		}
		t.heap[idx], t.heap[smallest] = t.heap[smallest], t.heap[idx]
		idx = smallest
	}
}
