package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cfoust/strafe/pkg/combat"

	"github.com/go-redis/redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrainsOnce(t *testing.T) {
	var queue Queue[int]
	queue.Push(1)
	queue.Push(2)
	queue.Push(3)

	var seen []int
	queue.Drain(func(value int) {
		seen = append(seen, value)
		if value == 1 {
			queue.Push(4)
		}
	})
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 1, queue.Len())

	seen = nil
	queue.Drain(func(value int) { seen = append(seen, value) })
	assert.Equal(t, []int{4}, seen)
	assert.Equal(t, 0, queue.Len())
}

func TestQueueFilter(t *testing.T) {
	var queue Queue[int]
	for i := 0; i < 6; i++ {
		queue.Push(i)
	}
	queue.Filter(func(value int) bool { return value%2 == 0 })

	var seen []int
	queue.Drain(func(value int) { seen = append(seen, value) })
	assert.Equal(t, []int{0, 2, 4}, seen)
}

func TestTopicNeverBlocks(t *testing.T) {
	topic := NewTopic[int]()
	slow := topic.Subscribe()
	defer slow.Done()

	for i := 0; i < SUBSCRIBER_BUFFER; i++ {
		assert.Equal(t, 1, topic.Publish(i))
	}
	assert.Equal(t, 0, topic.Publish(-1))

	assert.Equal(t, 0, <-slow.Recv())

	slow.Done()
	assert.Equal(t, 0, topic.Publish(5))
}

type fakePublisher struct {
	channel  string
	messages chan []byte
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.messages <- message.([]byte)
	cmd.SetVal(1)
	return cmd
}

func TestRedisSink(t *testing.T) {
	publisher := &fakePublisher{messages: make(chan []byte, 1)}
	sink := NewRedisSink(publisher, "")

	record := Record{
		Tick: 9,
		Shot: &combat.ShotEvent{Shooter: 2, Target: 3},
	}
	require.NoError(t, sink.Send(context.Background(), record))
	assert.Equal(t, DEFAULT_CHANNEL, publisher.channel)

	var decoded Record
	require.NoError(t, json.Unmarshal(<-publisher.messages, &decoded))
	assert.Equal(t, record, decoded)

	publisher.err = errors.New("connection refused")
	assert.Error(t, sink.Send(context.Background(), record))
}

func TestRedisSinkRun(t *testing.T) {
	publisher := &fakePublisher{messages: make(chan []byte, 1)}
	sink := NewRedisSink(publisher, "shots")
	topic := NewTopic[Record]()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- sink.Run(ctx, topic.Subscribe())
	}()

	require.Eventually(t, func() bool {
		return topic.Publish(Record{Tick: 1}) == 1
	}, time.Second, time.Millisecond)

	select {
	case <-publisher.messages:
	case <-time.After(time.Second):
		t.Fatal("record was not published")
	}

	cancel()
	assert.NoError(t, <-done)
}
