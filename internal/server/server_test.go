package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilmishah-img/usms/internal/common/logging"
)

func TestServer_StartServeShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})
	srv := New(handler, "127.0.0.1:0", logging.NewNopLogger())

	require.NoError(t, srv.Start())
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-srv.Errors():
		t.Fatalf("unexpected serve error: %v", err)
	default:
	}
}

func TestServer_StartBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := New(http.NotFoundHandler(), ln.Addr().String(), logging.NewNopLogger())
	assert.Error(t, srv.Start())
}

func TestNew_Timeouts(t *testing.T) {
	srv := New(http.NotFoundHandler(), "127.0.0.1:8000", nil)

	assert.Equal(t, "127.0.0.1:8000", srv.Addr())
	assert.Equal(t, readTimeout, srv.srv.ReadTimeout)
	assert.Equal(t, writeTimeout, srv.srv.WriteTimeout)
	assert.Equal(t, idleTimeout, srv.srv.IdleTimeout)
}
