package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopic(t *testing.T) {
	p := NewPublisher()

	require.NoError(t, p.NewTopic(HostCommand, time.Second))
	_, ok := p.topics[HostCommand]
	assert.True(t, ok, "topic should be created")

	assert.ErrorIs(t, p.NewTopic(HostCommand, time.Second), ErrTopicExists)
}

func TestRegisterSubscriber(t *testing.T) {
	p := NewPublisher()

	err := p.RegisterSubscriber("missing", func(any) {})
	assert.ErrorIs(t, err, ErrTopicNotFound)

	require.NoError(t, p.NewTopic(LevelChange, time.Second))
	require.NoError(t, p.RegisterSubscriber(LevelChange, func(any) {}))
	assert.Len(t, p.topics[LevelChange].subscribers, 1)
}

func TestPublish(t *testing.T) {
	p := NewPublisher()
	assert.ErrorIs(t, p.Publish("missing", "x"), ErrTopicNotFound)

	require.NoError(t, p.NewTopic(HostCommand, time.Second))

	var mu sync.Mutex
	received := make(map[int]string)
	for i := 1; i <= 2; i++ {
		require.NoError(t, p.RegisterSubscriber(HostCommand, func(payload any) {
			mu.Lock()
			received[i] = payload.(string)
			mu.Unlock()
		}))
	}

	require.NoError(t, p.Publish(HostCommand, "level debug"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[int]string{1: "level debug", 2: "level debug"}, received)
}

func TestPublishTimeout(t *testing.T) {
	p := NewPublisher()
	require.NoError(t, p.NewTopic(HostCommand, 10*time.Millisecond))

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, p.RegisterSubscriber(HostCommand, func(any) { <-release }))

	assert.ErrorIs(t, p.Publish(HostCommand, "stuck"), ErrPublishTimeout)
}

func TestSubscriberMayRegister(t *testing.T) {
	p := NewPublisher()
	require.NoError(t, p.NewTopic(HostCommand, 0))
	require.NoError(t, p.NewTopic(LevelChange, 0))

	require.NoError(t, p.RegisterSubscriber(HostCommand, func(any) {
		_ = p.RegisterSubscriber(LevelChange, func(any) {})
	}))
	require.NoError(t, p.Publish(HostCommand, "x"))
	assert.Len(t, p.topics[LevelChange].subscribers, 1)
}
