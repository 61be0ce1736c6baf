package pending

import (
	"errors"
	"sync"

	"kbadmin/internal/upstream"
)

// ErrIndexOutOfRange signals a removal index past the creation list.
var ErrIndexOutOfRange = errors.New("pending creation index out of range")

// Counts breaks pending changes down for the commit control.
type Counts struct {
	Creations int `json:"creations"`
	Updates   int `json:"updates"`
	Deletions int `json:"deletions"`
}

// Total returns the number of queued operations.
func (c Counts) Total() int {
	return c.Creations + c.Updates + c.Deletions
}

// Queue holds client-side mutations until an explicit commit, so a user can
// stack several edits without a network round trip per edit. All operations
// are synchronous and touch no network.
//
// Invariants: at most one queued update per item id (last write wins), and a
// queued deletion removes any queued update for the same id (delete wins).
type Queue struct {
	mu        sync.Mutex
	creations []upstream.Item
	updates   []upstream.Item
	deletions []int64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// AddCreation appends a new item awaiting a server id. No dedup.
func (q *Queue) AddCreation(item upstream.Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item.ID = 0
	q.creations = append(q.creations, item)
}

// AddUpdate queues an update for an existing item, replacing any earlier
// queued update for the same id.
func (q *Queue) AddUpdate(item upstream.Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeUpdateLocked(item.ID)
	q.updates = append(q.updates, item)
}

// AddDeletion queues a deletion and drops any queued update for the id.
func (q *Queue) AddDeletion(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeUpdateLocked(id)
	for _, existing := range q.deletions {
		if existing == id {
			return
		}
	}
	q.deletions = append(q.deletions, id)
}

// RemoveCreation undoes the queued creation at the given index.
func (q *Queue) RemoveCreation(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.creations) {
		return ErrIndexOutOfRange
	}
	q.creations = append(q.creations[:index], q.creations[index+1:]...)
	return nil
}

// RemoveUpdate undoes the queued update for the given id, if any.
func (q *Queue) RemoveUpdate(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeUpdateLocked(id)
}

// RemoveDeletion undoes the queued deletion for the given id, if any.
func (q *Queue) RemoveDeletion(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, existing := range q.deletions {
		if existing == id {
			q.deletions = append(q.deletions[:i], q.deletions[i+1:]...)
			return
		}
	}
}

// Clear resets all three collections. Called after a successful commit or on
// explicit reset.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.creations = nil
	q.updates = nil
	q.deletions = nil
}

// HasPending reports whether any operation is queued.
func (q *Queue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.creations) > 0 || len(q.updates) > 0 || len(q.deletions) > 0
}

// PendingCounts returns the per-kind breakdown.
func (q *Queue) PendingCounts() Counts {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Counts{
		Creations: len(q.creations),
		Updates:   len(q.updates),
		Deletions: len(q.deletions),
	}
}

// Snapshot returns copies of the three collections in enqueue order.
func (q *Queue) Snapshot() (creations, updates []upstream.Item, deletions []int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	creations = append([]upstream.Item(nil), q.creations...)
	updates = append([]upstream.Item(nil), q.updates...)
	deletions = append([]int64(nil), q.deletions...)
	return creations, updates, deletions
}

func (q *Queue) removeUpdateLocked(id int64) {
	for i, existing := range q.updates {
		if existing.ID == id {
			q.updates = append(q.updates[:i], q.updates[i+1:]...)
			return
		}
	}
}
