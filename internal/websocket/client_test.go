package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"
)

func startEchoServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			for {
				msg, op, err := wsutil.ReadClientData(conn)
				if err != nil {
					return
				}
				if err := wsutil.WriteServerMessage(conn, op, msg); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func TestConnectSendReceive(t *testing.T) {
	received := make(chan []byte, 1)

	client, err := Connect(t.Context(), ClientConfig{
		URL:    startEchoServer(t),
		Logger: slog.New(slog.DiscardHandler),
		OnText: func(data []byte) error {
			received <- append([]byte(nil), data...)
			return nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, StateOpen, client.State())

	require.NoError(t, client.Send([]byte(`{"type":"ping"}`)))

	select {
	case data := <-received:
		require.JSONEq(t, `{"type":"ping"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("echo not received")
	}

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Close(ctx))
	require.Equal(t, StateClosed, client.State())
}

func TestSendAfterCloseFails(t *testing.T) {
	client, err := Connect(t.Context(), ClientConfig{
		URL:    startEchoServer(t),
		Logger: slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Close(ctx))

	require.ErrorIs(t, client.Send([]byte("late")), ErrNotOpen)
	// Closing an already closed connection is a no-op.
	require.NoError(t, client.Close(ctx))
}

func TestOnCloseFiresOnPeerDisconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		// Drop the connection without a close handshake.
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	closed := make(chan error, 1)
	client, err := Connect(t.Context(), ClientConfig{
		URL:    "ws://" + strings.TrimPrefix(srv.URL, "http://"),
		Logger: slog.New(slog.DiscardHandler),
		OnClose: func(err error) {
			closed <- err
		},
	})
	require.NoError(t, err)

	select {
	case err := <-closed:
		require.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not invoked")
	}
	require.Equal(t, StateClosed, client.State())
}

func TestConnectRejectsUnreachableEndpoint(t *testing.T) {
	_, err := Connect(t.Context(), ClientConfig{
		URL:         "ws://127.0.0.1:1/realtime",
		DialTimeout: 500 * time.Millisecond,
		Logger:      slog.New(slog.DiscardHandler),
	})
	require.Error(t, err)
}

func TestJsonHandler(t *testing.T) {
	type frame struct {
		Type string `json:"type"`
	}

	var got frame
	handler := Json(func(f frame) error {
		got = f
		return nil
	})

	require.NoError(t, handler([]byte(`{"type":"session.created"}`)))
	require.Equal(t, "session.created", got.Type)
	require.Error(t, handler([]byte(`not json`)))
}
