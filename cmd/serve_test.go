package main

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckydraw/internal/config"
	"luckydraw/internal/storage"
)

func TestServeShutsDownWithOpenEventStream(t *testing.T) {
	logger.Init("serve-test", false, false, io.Discard)
	cfg := &config.AppConfig{
		GinMode:         "test",
		DBPath:          filepath.Join(t.TempDir(), "draw.db"),
		TickInterval:    5 * time.Millisecond,
		RevealDuration:  20 * time.Millisecond,
		SessionTTL:      time.Hour,
		CleanupInterval: time.Minute,
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- serveOn(ctx, cfg, ln) }()

	base := "http://" + ln.Addr().String()
	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequest(http.MethodPost, base+"/participants", strings.NewReader(`{"name":"Ann"}`))
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", "acme")
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, base+"/draw/events", nil)
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", "acme")
	stream, err := client.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	line, err := bufio.NewReader(stream.Body).ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "state")

	start := time.Now()
	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return while an event stream was open")
	}
	assert.Less(t, time.Since(start), shutdownTimeout)

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	require.NoError(t, err)
	defer store.Close()
	snap, ok, err := store.Load(context.Background(), "acme")
	require.NoError(t, err)
	require.True(t, ok, "pending snapshot flushed on shutdown")
	assert.Equal(t, []string{"Ann"}, snap.Participants)
}
