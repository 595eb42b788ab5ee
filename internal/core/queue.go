package core

import (
	"sync"
	"time"
)

// ActionQueue is the ordered collection of edit requests. It only keeps
// books: ids, statuses and order. Every read returns clones.
type ActionQueue struct {
	mu      sync.RWMutex
	nextID  int64
	order   []int64
	actions map[int64]Action
	nowFn   func() time.Time
}

// NewActionQueue returns an empty queue.
func NewActionQueue() *ActionQueue {
	return &ActionQueue{
		actions: make(map[int64]Action),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue assigns the next id, resets the action to pending and appends it.
func (q *ActionQueue) Enqueue(action Action) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	action = action.Clone()
	action.ID = q.nextID
	action.Status = StatusPending
	action.FailureReason = ""
	action.Result = nil
	action.Region.Strand = action.Region.Strand.Normalize()
	action.OriginalRegion = action.Region
	action.EnqueuedAt = q.nowFn()
	q.actions[action.ID] = action
	q.order = append(q.order, action.ID)
	return action.ID
}

// Get returns a clone of the action with id.
func (q *ActionQueue) Get(id int64) (Action, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	a, ok := q.actions[id]
	if !ok {
		return Action{}, false
	}
	return a.Clone(), true
}

// List returns actions in enqueue order. With no statuses every action is
// returned, otherwise only actions in one of the given statuses.
func (q *ActionQueue) List(statuses ...ActionStatus) []Action {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Action, 0, len(q.order))
	for _, id := range q.order {
		a := q.actions[id]
		if matchesStatus(a.Status, statuses) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// Remove deletes an action. Unknown ids are ignored.
func (q *ActionQueue) Remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.actions[id]; !ok {
		return
	}
	delete(q.actions, id)
	for i, existing := range q.order {
		if existing == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Clear removes every action matching the statuses (all when none given)
// and returns how many were removed.
func (q *ActionQueue) Clear(statuses ...ActionStatus) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.order[:0]
	removed := 0
	for _, id := range q.order {
		if matchesStatus(q.actions[id].Status, statuses) {
			delete(q.actions, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
	return removed
}

// Len returns the number of queued actions in any status.
func (q *ActionQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.order)
}

// apply writes back the outcome of a batch. Only actions still present and
// still pending are updated, so removals made by the caller win.
func (q *ActionQueue) apply(outcomes []Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, out := range outcomes {
		current, ok := q.actions[out.ID]
		if !ok || current.Status != StatusPending {
			continue
		}
		q.actions[out.ID] = out.Clone()
	}
}

func matchesStatus(status ActionStatus, filter []ActionStatus) bool {
	if len(filter) == 0 {
		return true
	}
	for _, s := range filter {
		if s == status {
			return true
		}
	}
	return false
}
