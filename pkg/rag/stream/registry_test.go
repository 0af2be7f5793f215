package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch *Channel) []Event {
	var out []Event
	for e := range ch.Events() {
		out = append(out, e)
	}
	return out
}

func TestChannelDeliversInOrderThenTerminal(t *testing.T) {
	r := NewRegistry()
	ch := r.Open("s1")

	go func() {
		ch.Publish(TokenEvent("a"))
		ch.Publish(TokenEvent("b"))
		ch.Finish(EndEvent())
	}()

	events := drain(ch)
	assert.Equal(t, []Event{TokenEvent("a"), TokenEvent("b"), EndEvent()}, events)
	assert.Equal(t, 0, r.Len())
}

func TestFinishHappensExactlyOnce(t *testing.T) {
	ch := NewRegistry().Open("s1")

	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- ch.Finish(ErrorEvent(500, "boom"))
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for w := range wins {
		if w {
			count++
		}
	}
	assert.Equal(t, 1, count)

	events := drain(ch)
	require.Len(t, events, 1)
	assert.True(t, events[0].Terminal())
	assert.False(t, ch.Publish(TokenEvent("late")))
}

func TestCloseIsIdempotentAndDropsEvents(t *testing.T) {
	r := NewRegistry()
	ch := r.Open("s1")

	r.Close("s1")
	r.Close("s1")
	ch.Close()
	assert.True(t, ch.Closed())

	// the buffer would fill long before 1000 events if they were not dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			assert.False(t, ch.Publish(TokenEvent("x")))
		}
		ch.Finish(EndEvent())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishing to a closed channel blocked")
	}
}

func TestOpenKeepsEarlierTurnsOpen(t *testing.T) {
	r := NewRegistry()
	first := r.Open("s1")
	second := r.Open("s1")

	assert.False(t, first.Closed())
	assert.False(t, second.Closed())
	assert.NotEqual(t, first.TurnID, second.TurnID)

	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, second, got)

	// each turn still delivers its own terminal event
	require.True(t, first.Finish(EndEvent()))
	assert.Equal(t, EndEvent(), <-first.Events())
	_, open := <-first.Events()
	assert.False(t, open)

	got, ok = r.Get("s1")
	require.True(t, ok)
	assert.Same(t, second, got)

	require.True(t, second.Finish(ErrorEvent(500, "boom")))
	assert.Equal(t, ErrorEvent(500, "boom"), <-second.Events())
	assert.Zero(t, r.Len())
}

func TestRegistryCloseReleasesEveryOpenTurn(t *testing.T) {
	r := NewRegistry()
	first := r.Open("s1")
	second := r.Open("s1")

	r.Close("s1")
	assert.True(t, first.Closed())
	assert.True(t, second.Closed())
	assert.Zero(t, r.Len())
}

func TestRegistryPublish(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Publish("missing", TokenEvent("x")))

	ch := r.Open("s1")
	assert.True(t, r.Publish("s1", TokenEvent("x")))
	assert.Equal(t, TokenEvent("x"), <-ch.Events())
}
