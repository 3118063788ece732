package realtime

import (
	"sort"
	"sync"

	"github.com/jobdesk/jobdesk-backend/internal/model"
)

// Thread accumulates messages for one conversation from both delivery paths
// (history fetch and live broadcast) and keeps a single copy per message ID.
// Both paths are equally authoritative; a message arriving twice renders once.
type Thread struct {
	mu   sync.Mutex
	byID map[uint64]model.Message
}

func NewThread() *Thread {
	return &Thread{byID: make(map[uint64]model.Message)}
}

// Add merges one message into the thread. Returns false if a message with
// the same ID was already present.
func (t *Thread) Add(msg model.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byID[msg.ID]; ok {
		return false
	}
	t.byID[msg.ID] = msg
	return true
}

// AddAll merges a batch, typically a history fetch.
func (t *Thread) AddAll(msgs []model.Message) {
	for _, m := range msgs {
		t.Add(m)
	}
}

// Messages returns the thread in creation order, ties broken by ID.
func (t *Thread) Messages() []model.Message {
	t.mu.Lock()
	out := make([]model.Message, 0, len(t.byID))
	for _, m := range t.byID {
		out = append(out, m)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len reports the number of distinct messages merged so far.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}
