package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInPublishOrder(t *testing.T) {
	b, err := NewInMemoryBus()
	require.NoError(t, err)

	var mu sync.Mutex
	var got []int
	b.AddHandler("collect", TopicActions, func(msg *message.Message) error {
		defer msg.Ack()
		env, err := FromMessage(msg)
		if err != nil {
			return nil
		}
		var n int
		if err := env.Decode(&n); err != nil {
			return nil
		}
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()
	<-b.Running()

	for i := 0; i < 50; i++ {
		require.NoError(t, b.Publish(ctx, TopicActions, "n", i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 50
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, n := range got {
		require.Equal(t, i, n)
	}
}

func TestEnvelope_TypeTravelsInMetadata(t *testing.T) {
	_, err := newMessage("", nil)
	require.Error(t, err)

	msg, err := newMessage("x", nil)
	require.NoError(t, err)
	require.Equal(t, "x", msg.Metadata.Get(MetadataType))
	env, err := FromMessage(msg)
	require.NoError(t, err)
	require.Error(t, env.Decode(&struct{}{}))

	msg, err = newMessage("x", map[string]int{"a": 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(msg.Payload))
	env, err = FromMessage(msg)
	require.NoError(t, err)
	var out map[string]int
	require.NoError(t, env.Decode(&out))
	require.Equal(t, 1, out["a"])

	_, err = FromMessage(message.NewMessage("bare", []byte(`{}`)))
	require.Error(t, err)
}
