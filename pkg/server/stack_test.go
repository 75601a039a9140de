package server_test

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	httpadapter "github.com/marmos91/dittohttp/pkg/adapter/http"
	"github.com/marmos91/dittohttp/pkg/config"
	"github.com/marmos91/dittohttp/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startStack wires a complete server from configuration the same way
// dittohttp start does, listening on an ephemeral port.
func startStack(t *testing.T, cfg *config.Config) string {
	t.Helper()
	logger.SetLevel("ERROR")

	cfg.Adapters.HTTP.Address = "127.0.0.1:0"
	cfg.Adapters.HTTP.MetricsLogInterval = -1
	require.NoError(t, config.Validate(cfg))

	m := config.InitializeMetrics(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	store, err := config.CreateFileStore(ctx, &cfg.Store, m.StoreMetrics)
	require.NoError(t, err)

	adapters, err := config.CreateAdapters(cfg, m.HTTPMetrics)
	require.NoError(t, err)
	require.Len(t, adapters, 1)

	h, ok := adapters[0].(*httpadapter.HTTPAdapter)
	require.True(t, ok)
	require.NoError(t, h.Listen())

	srv := server.New(store, 5*time.Second)
	require.NoError(t, srv.AddAdapter(h))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("Serve returned %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})

	return h.Addr().String()
}

func exchange(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(resp)
}

func TestStackPerStore(t *testing.T) {
	tests := []struct {
		name      string
		storeType string
		options   func(t *testing.T, cfg *config.Config)
	}{
		{
			name:      "Filesystem",
			storeType: "filesystem",
			options: func(t *testing.T, cfg *config.Config) {
				cfg.Store.Filesystem["path"] = filepath.Join(t.TempDir(), "files")
			},
		},
		{
			name:      "Memory",
			storeType: "memory",
			options:   func(*testing.T, *config.Config) {},
		},
		{
			name:      "Badger",
			storeType: "badger",
			options: func(t *testing.T, cfg *config.Config) {
				cfg.Store.Badger["db_path"] = filepath.Join(t.TempDir(), "badger")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.GetDefaultConfig()
			cfg.Store.Type = tt.storeType
			tt.options(t, cfg)

			addr := startStack(t, cfg)

			assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\n",
				exchange(t, addr, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"))

			assert.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\n",
				exchange(t, addr, "GET /files/notes.txt HTTP/1.1\r\n\r\n"))

			assert.Equal(t, "HTTP/1.1 201 Created\r\n\r\n",
				exchange(t, addr, "POST /files/notes.txt HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))

			assert.Equal(t,
				"HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 5\r\n\r\nhello",
				exchange(t, addr, "GET /files/notes.txt HTTP/1.1\r\n\r\n"))
		})
	}
}
