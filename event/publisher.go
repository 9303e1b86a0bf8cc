// Package event fans notifications out to subscribers by topic.
package event

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linchenxuan/elogport/elog"
	"github.com/linchenxuan/elogport/metrics"
)

// Topics published by an elogport target.
const (
	// HostCommand carries one command line received from the probe host as
	// a string.
	HostCommand = "HostCommand"
	// LevelChange carries the elog.Level the filter was set to.
	LevelChange = "LevelChange"
)

var (
	ErrTopicExists    = errors.New("topic already created")
	ErrTopicNotFound  = errors.New("topic not created")
	ErrPublishTimeout = errors.New("subscribers did not finish in time")
)

// Subscriber receives the payload of one publish.
type Subscriber func(payload any)

// topic is the subscriber list of a single topic.
type topic struct {
	timeout     time.Duration
	subscribers []Subscriber
}

// Publisher holds the topics and their subscribers.
type Publisher struct {
	lock   sync.RWMutex
	topics map[string]*topic
}

// NewPublisher creates a Publisher without topics.
func NewPublisher() *Publisher {
	return &Publisher{
		topics: make(map[string]*topic),
	}
}

// NewTopic creates a topic. A topic must exist before it can be subscribed
// to. Publish waits at most timeout for the subscribers; zero waits for as
// long as they run.
func (p *Publisher) NewTopic(name string, timeout time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.topics[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrTopicExists)
	}
	p.topics[name] = &topic{timeout: timeout}
	return nil
}

// RegisterSubscriber adds fn to the topic.
func (p *Publisher) RegisterSubscriber(name string, fn Subscriber) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	t, ok := p.topics[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrTopicNotFound)
	}
	t.subscribers = append(t.subscribers, fn)
	elog.Debug().Str("topic", name).Int("num", len(t.subscribers)).Msg("add subscriber")
	return nil
}

// Publish runs every subscriber of the topic concurrently with payload and
// waits for them. Subscribers still running after the topic timeout keep
// running; Publish returns ErrPublishTimeout.
func (p *Publisher) Publish(name string, payload any) error {
	p.lock.RLock()
	t, ok := p.topics[name]
	var subs []Subscriber
	var timeout time.Duration
	if ok {
		subs = append(subs, t.subscribers...)
		timeout = t.timeout
	}
	p.lock.RUnlock()

	if !ok {
		return fmt.Errorf("%s: %w", name, ErrTopicNotFound)
	}
	metrics.RecordPublish(name)

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub(payload)
		}()
	}

	if timeout <= 0 {
		wg.Wait()
		return nil
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		elog.Warn().Str("topic", name).Int("subscribers", len(subs)).Msg("publish timed out")
		return fmt.Errorf("%s: %w", name, ErrPublishTimeout)
	}
}
