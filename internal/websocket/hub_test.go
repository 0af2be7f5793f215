package websocket

import (
	"testing"
	"time"

	"ragchat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	go hub.Run()
	defer hub.Shutdown()

	a := NewClient(hub, nil, "s1", nil)
	b := NewClient(hub, nil, "s1", nil)
	c := NewClient(hub, nil, "s2", nil)
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)

	assert.Eventually(t, func() bool { return hub.Count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, hub.SessionCount("s1"))

	hub.Unregister(a)
	hub.Unregister(a)
	assert.Eventually(t, func() bool { return hub.SessionCount("s1") == 1 }, time.Second, 5*time.Millisecond)

	select {
	case <-a.Done():
	default:
		t.Fatal("unregistered client should be done")
	}
	assert.False(t, a.SendJSON(map[string]string{"token": "x"}))
}

func TestClientSendJSONQueuesFrames(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	client := NewClient(hub, nil, "s1", nil)

	assert.True(t, client.SendJSON(map[string]bool{"end": true}))
	assert.JSONEq(t, `{"end":true}`, string(<-client.Send))
}

func TestShutdownClosesClients(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	go hub.Run()

	client := NewClient(hub, nil, "s1", nil)
	hub.Register(client)
	hub.Shutdown()

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}
	assert.Zero(t, hub.Count())
}
