package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sharex-server/internal/storage"
)

func startTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Port == nil {
		opts.Port = Ptr(uint16(0))
	}
	s, _ := newTestServer(t, opts)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func getRoot(t *testing.T, port uint16) int {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestStartStop(t *testing.T) {
	s := startTestServer(t, Options{})

	if s.Port() == 0 {
		t.Fatal("Port() should report the bound port")
	}
	if s.Addr() == "" {
		t.Fatal("Addr() should be set while running")
	}
	if code := getRoot(t, s.Port()); code != http.StatusOK {
		t.Fatalf("GET / = %d", code)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Addr() != "" {
		t.Error("Addr() should be empty after Stop")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStart_Twice(t *testing.T) {
	s := startTestServer(t, Options{})
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestStart_AfterStop(t *testing.T) {
	s := startTestServer(t, Options{})
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if code := getRoot(t, s.Port()); code != http.StatusOK {
		t.Fatalf("GET / after restart = %d", code)
	}
}

func TestStart_PortInUse(t *testing.T) {
	first := startTestServer(t, Options{})
	port := first.Port()

	second, _ := newTestServer(t, Options{Port: Ptr(port)})
	err := second.Start(context.Background())

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("Start on a taken port = %v, want *BindError", err)
	}
	if bindErr.Unwrap() == nil {
		t.Error("BindError should wrap the listen error")
	}

	if code := getRoot(t, port); code != http.StatusOK {
		t.Fatalf("first server stopped serving: %d", code)
	}
	if err := second.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on a server that never started: %v", err)
	}
}

func TestStart_CreatesSavePath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	startTestServer(t, Options{SavePath: dir})

	fi, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("save path not created: %v", err)
	}
	if !fi.IsDir() {
		t.Fatal("save path is not a directory")
	}
}

func TestStop_WaitsForDone(t *testing.T) {
	s := startTestServer(t, Options{})
	done := s.Done()

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-done:
	default:
		t.Fatal("Done not closed after Stop")
	}
}

// stallingStore holds every Stat until release is closed.
type stallingStore struct {
	storage.Storage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallingStore) Stat(ctx context.Context, name string) (storage.FileInfo, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.Storage.Stat(ctx, name)
}

func TestStop_GettersDoNotBlock(t *testing.T) {
	store := &stallingStore{
		Storage: storage.NewDisk(t.TempDir()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := startTestServer(t, Options{Storage: store})
	port := s.Port()

	go func() {
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/slow.txt", port))
		if err == nil {
			_ = resp.Body.Close()
		}
	}()
	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		close(store.release)
		t.Fatal("request never reached storage")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	answered := make(chan struct{})
	go func() {
		_ = s.Port()
		_ = s.Addr()
		_ = s.Done()
		close(answered)
	}()
	select {
	case <-answered:
	case <-time.After(time.Second):
		t.Error("Port, Addr and Done blocked while Stop waited on a request")
	}

	close(store.release)
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the request finished")
	}
	if s.Addr() != "" {
		t.Error("Addr() should be empty after Stop")
	}
}
