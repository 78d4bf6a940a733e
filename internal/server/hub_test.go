package server

import (
	"context"
	"testing"
	"time"
)

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case b, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed while expecting a frame")
		}
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

func waitClosed(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for send channel to close")
		}
	}
}

func TestHubBroadcastPerSession(t *testing.T) {
	hub := NewHub(NewLogger("error"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	a := &Client{hub: hub, session: "s1", send: make(chan []byte, 4)}
	b := &Client{hub: hub, session: "s2", send: make(chan []byte, 4)}
	a.Register()
	b.Register()

	hub.Broadcast("s1", []byte("frame-1"))

	if got := string(recvFrame(t, a)); got != "frame-1" {
		t.Errorf("s1 spectator got %q, want frame-1", got)
	}
	select {
	case f := <-b.send:
		t.Errorf("s2 spectator got unexpected frame %q", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsSlowSpectator(t *testing.T) {
	hub := NewHub(NewLogger("error"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := &Client{hub: hub, session: "s1", send: make(chan []byte)}
	slow.Register()

	// Nobody reads slow.send, so the frame cannot be delivered and the hub
	// must evict the client instead of blocking. Leave the hub alone until
	// it has had ample time to process the frame, then check.
	hub.Broadcast("s1", []byte("frame-1"))
	time.Sleep(200 * time.Millisecond)

	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatal("frame was delivered to a spectator nobody reads")
		}
	default:
		t.Fatal("slow spectator was not evicted")
	}
}

func TestHubCloseRoom(t *testing.T) {
	hub := NewHub(NewLogger("error"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	a := &Client{hub: hub, session: "s1", send: make(chan []byte, 4)}
	a.Register()

	hub.CloseRoom("s1")

	waitClosed(t, a)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub(NewLogger("error"))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	a := &Client{hub: hub, session: "s1", send: make(chan []byte, 4)}
	a.Register()

	cancel()

	waitClosed(t, a)
}
