package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_ApplyUpdateReplacesEntryAtIndexZero(t *testing.T) {
	s := NewStore()
	s.Replace([]Entry{
		{ID: 0, Status: StatusWaiting},
		{ID: 1, Status: StatusWaiting},
	})

	s.ApplyUpdate(Entry{ID: 0, Status: StatusBuilding})

	st := s.Snapshot()
	require.Len(t, st.Entries, 2)
	require.Equal(t, int64(0), st.Entries[0].ID)
	require.Equal(t, StatusBuilding, st.Entries[0].Status)
	require.Equal(t, int64(1), st.Entries[1].ID)
}

func TestStore_ApplyUpdateKeepsPositionAndAppendsUnknown(t *testing.T) {
	s := NewStore()
	s.Replace([]Entry{{ID: 10}, {ID: 20}, {ID: 30}})

	s.ApplyUpdate(Entry{ID: 20, Status: StatusBuilding, WorkerName: "w1"})
	s.ApplyUpdate(Entry{ID: 40, Status: StatusWaiting})

	var ids []int64
	for _, e := range s.Snapshot().Entries {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []int64{10, 20, 30, 40}, ids)

	e, ok := s.Get(20)
	require.True(t, ok)
	require.Equal(t, "w1", e.AssignedTo())

	_, ok = s.Get(99)
	require.False(t, ok)
}

func TestStore_ApplyUpdateOnEmptyStoreAppends(t *testing.T) {
	s := NewStore()
	s.ApplyUpdate(Entry{ID: 0, Status: StatusWaiting})
	s.ApplyUpdate(Entry{ID: 0, Status: StatusBuilding})
	st := s.Snapshot()
	require.Len(t, st.Entries, 1)
	require.Equal(t, StatusBuilding, st.Entries[0].Status)
}

func TestStore_ReplaceDiscardsPreviousEntries(t *testing.T) {
	s := NewStore()
	s.Replace([]Entry{{ID: 1}, {ID: 2}})
	s.BeginLoad()
	require.True(t, s.Snapshot().Loading)
	require.Empty(t, s.Snapshot().Entries)

	s.Replace([]Entry{{ID: 3, Status: StatusBuilding}})
	st := s.Snapshot()
	require.False(t, st.Loading)
	require.Equal(t, []Entry{{ID: 3, Status: StatusBuilding}}, st.Entries)
}

func TestStore_FailKeepsEntriesAndRecordsError(t *testing.T) {
	s := NewStore()
	s.BeginLoad()
	s.Fail(errTest("503 Service Unavailable"))
	st := s.Snapshot()
	require.False(t, st.Loading)
	require.Equal(t, "503 Service Unavailable", st.Err)

	s.Replace(nil)
	require.Empty(t, s.Snapshot().Err)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Replace([]Entry{{ID: 1, Parameters: []Parameter{{Name: "cds.project", Value: "A"}}}})
	st := s.Snapshot()
	st.Entries[0].Parameters[0].Value = "B"

	e, _ := s.Get(1)
	v, ok := e.Param("cds.project")
	require.True(t, ok)
	require.Equal(t, "A", v)
}

func TestStore_OnChange(t *testing.T) {
	s := NewStore()
	var mu sync.Mutex
	var seen []int
	s.OnChange(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, len(st.Entries))
	})
	s.ApplyUpdate(Entry{ID: 1})
	s.ApplyUpdate(Entry{ID: 2})
	s.ApplyUpdate(Entry{ID: 1, Status: StatusBuilding})
	require.Equal(t, []int{1, 2, 2}, seen)
}

func TestState_Filter(t *testing.T) {
	st := State{Entries: []Entry{
		{ID: 1, Status: StatusWaiting},
		{ID: 2, Status: StatusBuilding},
		{ID: 3, Status: StatusSuccess},
	}}
	require.Len(t, st.Filter(nil), 3)
	got := st.Filter(DefaultStatuses)
	require.Len(t, got, 2)
	require.Equal(t, int64(2), got[1].ID)
}

type errTest string

func (e errTest) Error() string { return string(e) }
