package api

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fjkiani/lotto-machine-sub000/internal/contracts"
)

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := &streamClient{send: make(chan contracts.AlertMessage, clientBacklog)}
	require.True(t, hub.attach(c))

	require.NoError(t, hub.Send(context.Background(), contracts.AlertMessage{Symbol: "NVDA"}))

	select {
	case msg := <-c.send:
		require.Equal(t, "NVDA", msg.Symbol)
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the client")
	}
}

func TestHub_ShutdownUnblocksPumps(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := &streamClient{send: make(chan contracts.AlertMessage, clientBacklog)}
	require.True(t, hub.attach(c))

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not shut down")
	}

	// A connected client's read loop hands itself back on disconnect;
	// that handoff must return even though Run no longer drains it.
	finished := make(chan struct{})
	go func() {
		hub.detach(c)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after shutdown")
	}

	require.False(t, hub.attach(&streamClient{}), "late connections are rejected")
}
