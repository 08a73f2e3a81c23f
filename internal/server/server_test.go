package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namity/backend/internal/testutil"
)

func TestServer_Run(t *testing.T) {
	t.Parallel()

	port, err := testutil.RandomPort()
	require.NoError(t, err)
	addr := fmt.Sprintf("localhost:%d", port)

	s := &Server{
		ListenAddr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.EventuallyWithT(t, func(c *assert.CollectT) {
		resp, err := http.Get("http://" + addr + "/")
		if !assert.NoError(c, err) {
			return
		}
		_ = resp.Body.Close()
		assert.Equal(c, http.StatusTeapot, resp.StatusCode)
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server not stopped on context cancel")
	}
}

func TestServer_Run_invalidAddress(t *testing.T) {
	t.Parallel()

	s := &Server{ListenAddr: "bad address", Handler: http.NotFoundHandler()}

	err := s.Run(t.Context())

	require.Error(t, err)
	require.NotErrorIs(t, err, http.ErrServerClosed)
}
