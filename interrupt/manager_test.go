package interrupt

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Signal must be detectable through an error chain.
var _ error = (*Signal)(nil)

func TestSignal_ErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("tool failed: %w", NewSignal("What city?"))

	var sig *Signal
	assert.True(t, errors.As(wrapped, &sig))
	assert.Equal(t, "What city?", sig.Question)
}

func TestManager_AddAndGet(t *testing.T) {
	m := NewManager()

	st := m.Add("t1", "research", "Which source?")
	assert.Equal(t, "t1", st.ThreadID)
	assert.Equal(t, "research", st.Workflow)
	assert.False(t, st.Resolved)

	got, ok := m.Get("t1")
	assert.True(t, ok)
	assert.Equal(t, "Which source?", got.Question)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestManager_GetExpiredRemovesEntry(t *testing.T) {
	now := time.Now()
	m := NewManager(func(o *ManagerOptions) {
		o.Now = func() time.Time { return now }
	})

	m.Add("t1", "research", "Q?")

	// One millisecond past the TTL: the read must report absence and
	// delete the entry.
	now = now.Add(DefaultTTL + time.Millisecond)
	_, ok := m.Get("t1")
	assert.False(t, ok)

	// Even if the clock rolls back, the entry is gone.
	now = now.Add(-2 * time.Millisecond)
	_, ok = m.Get("t1")
	assert.False(t, ok)
}

func TestManager_AddPurgesExpired(t *testing.T) {
	now := time.Now()
	m := NewManager(func(o *ManagerOptions) {
		o.Now = func() time.Time { return now }
	})

	m.Add("old", "wf", "Q1?")
	now = now.Add(DefaultTTL + time.Second)
	m.Add("new", "wf", "Q2?")

	got := m.ByWorkflow("wf")
	assert.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ThreadID)
}

func TestManager_Resolve(t *testing.T) {
	m := NewManager()
	m.Add("t1", "wf", "Q?")

	assert.True(t, m.Resolve("t1", "the answer"))
	st, ok := m.Get("t1")
	assert.True(t, ok)
	assert.True(t, st.Resolved)
	assert.Equal(t, "the answer", st.Answer)

	assert.False(t, m.Resolve("missing", "x"))
}

func TestManager_ByWorkflowSkipsResolved(t *testing.T) {
	m := NewManager()
	m.Add("t1", "wf", "Q1?")
	m.Add("t2", "wf", "Q2?")
	m.Add("t3", "other", "Q3?")
	m.Resolve("t1", "a")

	got := m.ByWorkflow("wf")
	assert.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ThreadID)
}

func TestManager_Remove(t *testing.T) {
	m := NewManager()
	m.Add("t1", "wf", "Q?")
	m.Remove("t1")

	_, ok := m.Get("t1")
	assert.False(t, ok)
}
