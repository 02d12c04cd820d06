package react

import (
	"sync"
	"time"

	"github.com/ddalcu/agent-orcha-sub003/model"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

// snapshot is the saved state of one paused thread: the full message history
// plus the tool call whose answer is still pending. Snapshots are replaced
// whole under the store lock, keyed by thread id.
type snapshot struct {
	definition      *workflow.Definition
	messages        []model.Message
	pendingCallID   string
	pendingCallName string
	savedAt         time.Time
}

// threadStore holds paused-thread snapshots in process memory.
type threadStore struct {
	mu    sync.Mutex
	snaps map[string]snapshot
}

func newThreadStore() *threadStore {
	return &threadStore{snaps: make(map[string]snapshot)}
}

func (s *threadStore) save(threadID string, snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.savedAt = time.Now()
	s.snaps[threadID] = snap
}

func (s *threadStore) get(threadID string) (snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[threadID]
	return snap, ok
}

func (s *threadStore) remove(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, threadID)
}

func (s *threadStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}
