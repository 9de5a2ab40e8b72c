// ABOUTME: Tests for the bounded run tracker.
// ABOUTME: Covers ordering, eviction, snapshot isolation, and concurrent use.

package tracker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrdersMostRecentFirst(t *testing.T) {
	tr := New(10)
	tr.Add("wf-1", "exec-1", nil)
	tr.Add("wf-2", "exec-2", nil)
	tr.Add("wf-3", "", map[string]any{"x": 1})

	entries := tr.List()
	require.Len(t, entries, 3)
	assert.Equal(t, "wf-3", entries[0].WorkflowID)
	assert.Equal(t, "wf-2", entries[1].WorkflowID)
	assert.Equal(t, "wf-1", entries[2].WorkflowID)
	assert.Empty(t, entries[0].ExecutionID)
	assert.False(t, entries[0].StartedAt.IsZero())
}

func TestAddEvictsOldestAtCapacity(t *testing.T) {
	tr := New(3)
	for i := 1; i <= 5; i++ {
		tr.Add(fmt.Sprintf("wf-%d", i), "", nil)
	}

	entries := tr.List()
	require.Len(t, entries, 3)
	assert.Equal(t, "wf-5", entries[0].WorkflowID)
	assert.Equal(t, "wf-4", entries[1].WorkflowID)
	assert.Equal(t, "wf-3", entries[2].WorkflowID)
}

func TestListReturnsIndependentSnapshot(t *testing.T) {
	tr := New(10)
	tr.Add("wf-1", "exec-1", nil)

	snapshot := tr.List()
	tr.Add("wf-2", "exec-2", nil)

	require.Len(t, snapshot, 1)
	assert.Equal(t, "wf-1", snapshot[0].WorkflowID)

	// Mutating the snapshot must not affect the tracker.
	snapshot[0].WorkflowID = "mutated"
	assert.Equal(t, "wf-1", tr.List()[1].WorkflowID)
}

func TestZeroCapacityFallsBackToDefault(t *testing.T) {
	tr := New(0)
	for i := 0; i < DefaultMaxEntries+10; i++ {
		tr.Add("wf", "", nil)
	}
	assert.Equal(t, DefaultMaxEntries, tr.Len())
}

func TestConcurrentAddAndList(t *testing.T) {
	tr := New(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Add(fmt.Sprintf("wf-%d-%d", n, j), "exec", nil)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				entries := tr.List()
				// A reader must never observe a half-applied write.
				assert.LessOrEqual(t, len(entries), 50)
				for _, e := range entries {
					assert.NotEmpty(t, e.WorkflowID)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Len())
}
