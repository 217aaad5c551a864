package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aulaviva/invites/internal/config"
)

func TestServe_DrainsInFlightRequestsOnShutdown(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	reqErr := make(chan error, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		reqErr <- r.Context().Err()
		_, _ = io.WriteString(w, "consumed")
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- serve(ctx, newServer(config.Default(), handler), ln, 5*time.Second) }()

	type response struct {
		body string
		err  error
	}
	got := make(chan response, 1)
	go func() {
		res, err := http.Get("http://" + ln.Addr().String() + "/v2/invitations/consume")
		if err != nil {
			got <- response{err: err}
			return
		}
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		got <- response{string(b), err}
	}()

	<-entered
	cancel() // SIGTERM
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-reqErr, "request context must outlive the signal")
	r := <-got
	require.NoError(t, r.err)
	require.Equal(t, "consumed", r.body)
	require.NoError(t, <-served)
}
