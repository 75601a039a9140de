package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittohttp/pkg/content"
	"github.com/marmos91/dittohttp/pkg/content/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	protocol string
	port     int
	serveErr error

	mu       sync.Mutex
	store    content.FileStore
	stopped  chan struct{}
	stopOnce sync.Once
	stops    int
}

func newFakeAdapter(protocol string, port int) *fakeAdapter {
	return &fakeAdapter{protocol: protocol, port: port, stopped: make(chan struct{})}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.serveErr != nil {
		return f.serveErr
	}
	select {
	case <-ctx.Done():
	case <-f.stopped:
	}
	return nil
}

func (f *fakeAdapter) SetStore(store content.FileStore) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store = store
}

func (f *fakeAdapter) Stop(ctx context.Context) error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.stopped) })
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

func (f *fakeAdapter) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// closeCountingStore counts Close calls on top of the memory store.
type closeCountingStore struct {
	content.FileStore
	mu     sync.Mutex
	closes int
}

func (s *closeCountingStore) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return s.FileStore.Close()
}

func newStore(t *testing.T) *closeCountingStore {
	t.Helper()
	mem, err := memory.NewMemoryFileStore(context.Background())
	require.NoError(t, err)
	return &closeCountingStore{FileStore: mem}
}

func TestNewPanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { New(nil, time.Second) })
}

func TestAddAdapterInjectsStore(t *testing.T) {
	store := newStore(t)
	srv := New(store, time.Second)
	a := newFakeAdapter("HTTP", 4221)

	require.NoError(t, srv.AddAdapter(a))

	assert.Same(t, store, a.store)
	assert.Len(t, srv.Adapters(), 1)
	assert.Same(t, store, srv.Store())
}

func TestAddAdapterRejectsConflicts(t *testing.T) {
	srv := New(newStore(t), time.Second)
	require.NoError(t, srv.AddAdapter(newFakeAdapter("HTTP", 4221)))

	err := srv.AddAdapter(newFakeAdapter("HTTP", 8080))
	assert.ErrorContains(t, err, "already registered")

	err = srv.AddAdapter(newFakeAdapter("ADMIN", 4221))
	assert.ErrorContains(t, err, "port 4221 already in use")
}

func TestAddAdapterAllowsEphemeralPorts(t *testing.T) {
	srv := New(newStore(t), time.Second)
	require.NoError(t, srv.AddAdapter(newFakeAdapter("HTTP", 0)))
	assert.NoError(t, srv.AddAdapter(newFakeAdapter("ADMIN", 0)))
}

func TestServeWithoutAdapters(t *testing.T) {
	srv := New(newStore(t), time.Second)
	assert.ErrorContains(t, srv.Serve(context.Background()), "no adapters registered")
}

func TestServeStopsOnContextCancel(t *testing.T) {
	store := newStore(t)
	srv := New(store, time.Second)
	first := newFakeAdapter("HTTP", 4221)
	second := newFakeAdapter("ADMIN", 4222)
	require.NoError(t, srv.AddAdapter(first))
	require.NoError(t, srv.AddAdapter(second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	assert.Equal(t, 1, first.stopCount())
	assert.Equal(t, 1, second.stopCount())
	assert.Equal(t, 1, store.closes)
}

func TestServeStopsAllOnAdapterFailure(t *testing.T) {
	store := newStore(t)
	srv := New(store, time.Second)
	healthy := newFakeAdapter("HTTP", 4221)
	broken := newFakeAdapter("ADMIN", 4222)
	broken.serveErr = errors.New("bind: address already in use")
	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(broken))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN adapter error")
		assert.ErrorIs(t, err, broken.serveErr)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after adapter failure")
	}

	assert.Equal(t, 1, healthy.stopCount())
	assert.Equal(t, 1, store.closes)
}

func TestServeTwice(t *testing.T) {
	srv := New(newStore(t), time.Second)
	require.NoError(t, srv.AddAdapter(newFakeAdapter("HTTP", 4221)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, srv.Serve(ctx), context.Canceled)

	assert.ErrorIs(t, srv.Serve(ctx), ErrAlreadyServed)
	assert.Panics(t, func() { _ = srv.AddAdapter(newFakeAdapter("ADMIN", 1)) })
}
