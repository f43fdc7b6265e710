package route

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserver_QueryOnlyChangesAreSuppressed(t *testing.T) {
	o := NewObserver(0)

	c, ok := o.Observe(EndEvent("/settings/queue"))
	require.True(t, ok)
	require.Equal(t, "/settings/queue", c.Path)

	_, ok = o.Observe(EndEvent("/settings/queue?status=Building"))
	require.False(t, ok)

	c, ok = o.Observe(EndEvent("/project/XYZ?tab=workflows"))
	require.True(t, ok)
	require.Equal(t, "/project/XYZ", c.Path)
	require.Equal(t, map[string]string{"tab": "workflows"}, c.Params)

	_, ok = o.Observe(EndEvent("/project/XYZ?tab=applications"))
	require.False(t, ok)
}

func TestObserver_IgnoresNonEndAndSecondaryOutlets(t *testing.T) {
	o := NewObserver(0)

	_, ok := o.Observe(NavigationEvent{Kind: NavigationStart, URL: "/home"})
	require.False(t, ok)
	_, ok = o.Observe(NavigationEvent{Kind: NavigationEnd, URL: "/home", Outlet: "sidebar"})
	require.False(t, ok)
	_, ok = o.Observe(NavigationEvent{Kind: NavigationEnd, URL: "/home"})
	require.True(t, ok)
}

func TestObserver_Resolving(t *testing.T) {
	o := NewObserver(0)
	require.False(t, o.Resolving())
	o.Observe(NavigationEvent{Kind: ResolveStart, URL: "/home"})
	require.True(t, o.Resolving())
	o.Observe(NavigationEvent{Kind: ResolveEnd, URL: "/home"})
	require.False(t, o.Resolving())
}

func TestObserver_ResetReemitsSamePath(t *testing.T) {
	o := NewObserver(0)
	_, ok := o.Observe(EndEvent("/home"))
	require.True(t, ok)
	o.Reset()
	_, ok = o.Observe(EndEvent("/home"))
	require.True(t, ok)
}

func TestObserver_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	o := NewObserver(8)
	in := make(chan NavigationEvent, 8)
	in <- NavigationEvent{Kind: NavigationStart, URL: "/home"}
	in <- EndEvent("/home")
	in <- EndEvent("/home?x=1")
	in <- EndEvent("/settings/queue")
	close(in)

	require.NoError(t, o.Run(ctx, in))

	var paths []string
	for c := range o.Changes() {
		paths = append(paths, c.Path)
	}
	require.Equal(t, []string{"/home", "/settings/queue"}, paths)
}
