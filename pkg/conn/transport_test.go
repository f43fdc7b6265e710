package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/cdslive/pkg/filter"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for frame")
		return ""
	}
}

func TestWebsocketDialer_DeliversAndReconnectsAfterServerError(t *testing.T) {
	filters := make(chan string, 4)
	paths := make(chan string, 4)
	var accepted atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		n := accepted.Add(1)
		ctx := context.Background()

		_, b, err := c.Read(ctx)
		if err != nil {
			return
		}
		filters <- string(b)

		if n == 1 {
			_ = c.Write(ctx, websocket.MessageText, []byte(`{"status":"OK","event":{"type_event":"sdk.EventRunWorkflowJob"}}`))
			_ = c.Close(websocket.StatusInternalError, "boom")
			return
		}
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	target, err := TargetURL(srv.URL, DefaultAPIBase)
	require.NoError(t, err)

	m, err := New(Options{URL: target, Dialer: WebsocketDialer{}, RetryDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	defer m.Close()

	got := make(chan string, 4)
	m.OnMessage(func(b []byte) { got <- string(b) })

	m.SetFilter(filter.Filter{Queue: true})
	m.Open()

	require.Equal(t, "/cdsapi/ws", receive(t, paths))
	require.Equal(t, `{"queue":true}`, receive(t, filters))
	require.Equal(t, `{"status":"OK","event":{"type_event":"sdk.EventRunWorkflowJob"}}`, receive(t, got))

	// the server dropped the first connection; the filter must be sent again
	require.Equal(t, `{"queue":true}`, receive(t, filters))
	require.Eventually(t, func() bool { return m.State() == Connected }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, int32(2), accepted.Load())
}

func TestIsNormalClosure(t *testing.T) {
	require.True(t, IsNormalClosure(websocket.CloseError{Code: websocket.StatusNormalClosure}))
	require.True(t, IsNormalClosure(websocket.CloseError{Code: websocket.StatusGoingAway}))
	require.False(t, IsNormalClosure(websocket.CloseError{Code: websocket.StatusInternalError}))
	require.False(t, IsNormalClosure(context.Canceled))
}
