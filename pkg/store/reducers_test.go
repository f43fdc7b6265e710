package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/cdslive/pkg/bus"
	"github.com/go-go-golems/cdslive/pkg/operation"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/workflowrun"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu       sync.Mutex
	entries  []queue.Entry
	err      error
	statuses [][]queue.Status
}

func (f *stubFetcher) Queue(ctx context.Context, statuses []queue.Status) ([]queue.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statuses)
	return f.entries, f.err
}

func startBus(t *testing.T, s Stores) (*bus.Bus, context.Context) {
	t.Helper()
	b, err := bus.NewInMemoryBus()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	Register(ctx, b, s)
	go func() { _ = b.Run(ctx) }()
	<-b.Running()
	return b, ctx
}

func TestRegister_GetQueueThenUpdates(t *testing.T) {
	fetcher := &stubFetcher{entries: []queue.Entry{{ID: 0, Status: queue.StatusWaiting}, {ID: 5, Status: queue.StatusWaiting}}}
	q := queue.NewStore()
	b, ctx := startBus(t, Stores{Queue: q, Fetcher: fetcher})
	d := BusDispatcher{Bus: b}

	require.NoError(t, d.Dispatch(ctx, GetQueue{Status: []queue.Status{queue.StatusWaiting}}))
	require.Eventually(t, func() bool { return len(q.Snapshot().Entries) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, d.Dispatch(ctx, UpdateQueue{Job: queue.Entry{ID: 0, Status: queue.StatusBuilding, WorkerName: "w"}}))
	require.Eventually(t, func() bool {
		st := q.Snapshot()
		return len(st.Entries) == 2 && st.Entries[0].Status == queue.StatusBuilding
	}, time.Second, 5*time.Millisecond)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	require.Equal(t, [][]queue.Status{{queue.StatusWaiting}}, fetcher.statuses)
}

func TestRegister_GetQueueDefaultsAndFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("500 Internal Server Error")}
	q := queue.NewStore()
	q.Replace([]queue.Entry{{ID: 1}})
	b, ctx := startBus(t, Stores{Queue: q, Fetcher: fetcher})

	require.NoError(t, BusDispatcher{Bus: b}.Dispatch(ctx, GetQueue{}))
	require.Eventually(t, func() bool { return q.Snapshot().Err != "" }, time.Second, 5*time.Millisecond)

	st := q.Snapshot()
	require.False(t, st.Loading)
	require.Empty(t, st.Entries)
	require.Contains(t, st.Err, "500")

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	require.Equal(t, [][]queue.Status{queue.DefaultStatuses}, fetcher.statuses)
}

func TestRegister_RunsAndOperations(t *testing.T) {
	runs := workflowrun.NewStore()
	ops := operation.NewStore()
	ops.Track("op-1")
	b, ctx := startBus(t, Stores{Runs: runs, Operations: ops})
	d := BusDispatcher{Bus: b}

	k := workflowrun.Key{ProjectKey: "XYZ", WorkflowName: "wf1", Number: 3}
	require.NoError(t, d.Dispatch(ctx, UpdateWorkflowRun{Update: workflowrun.Update{Key: k, Status: "Building"}}))
	require.NoError(t, d.Dispatch(ctx, UpdateOperation{Operation: operation.Operation{UUID: "op-1", Status: operation.StatusDone}}))
	require.NoError(t, d.Dispatch(ctx, UpdateOperation{Operation: operation.Operation{UUID: "op-2", Status: operation.StatusDone}}))

	require.Eventually(t, func() bool {
		list := runs.List()
		return len(list) == 1 && list[0].Key == k && list[0].Status == "Building"
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		op, _ := ops.Get("op-1")
		return op.Status == operation.StatusDone
	}, time.Second, 5*time.Millisecond)
	require.False(t, ops.Tracked("op-2"))
}

func TestRegister_PublishesQueueSnapshots(t *testing.T) {
	q := queue.NewStore()
	b, err := bus.NewInMemoryBus()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan queue.State, 8)
	b.AddHandler("snapshots", bus.TopicState, func(msg *message.Message) error {
		defer msg.Ack()
		env, err := bus.FromMessage(msg)
		if err != nil || env.Type != TypeQueueSnapshot {
			return nil
		}
		var st queue.State
		if err := env.Decode(&st); err == nil {
			snapshots <- st
		}
		return nil
	})
	Register(ctx, b, Stores{Queue: q})
	go func() { _ = b.Run(ctx) }()
	<-b.Running()

	require.NoError(t, BusDispatcher{Bus: b}.Dispatch(ctx, UpdateQueue{Job: queue.Entry{ID: 9, Status: queue.StatusWaiting}}))
	select {
	case st := <-snapshots:
		require.Len(t, st.Entries, 1)
		require.Equal(t, int64(9), st.Entries[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestRegister_PublishesRunLists(t *testing.T) {
	runs := workflowrun.NewStore()
	b, err := bus.NewInMemoryBus()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lists := make(chan []workflowrun.Run, 8)
	b.AddHandler("runs", bus.TopicState, func(msg *message.Message) error {
		defer msg.Ack()
		env, err := bus.FromMessage(msg)
		if err != nil || env.Type != TypeRunsSnapshot {
			return nil
		}
		var list []workflowrun.Run
		if err := env.Decode(&list); err == nil {
			lists <- list
		}
		return nil
	})
	Register(ctx, b, Stores{Runs: runs})
	go func() { _ = b.Run(ctx) }()
	<-b.Running()

	k := workflowrun.Key{ProjectKey: "XYZ", WorkflowName: "wf1", Number: 3}
	require.NoError(t, BusDispatcher{Bus: b}.Dispatch(ctx, UpdateWorkflowRun{Update: workflowrun.Update{Key: k, Status: "Building"}}))
	select {
	case list := <-lists:
		require.Len(t, list, 1)
		require.Equal(t, k, list[0].Key)
		require.Equal(t, "Building", list[0].Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no run list published")
	}
}
