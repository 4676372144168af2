//go:build integration
// +build integration

//
// ShareX Server - End-to-End Test
//
// Purpose:
//   Validates the upload → download → listing flow over real HTTP, with the
//   server storing into a MinIO container started by dockertest.
//
// Usage:
//   Requires Docker available to the test runner. Run:
//     go test -tags integration -v ./internal/server -run TestEndToEnd
//   Optional env:
//     SHAREX_MINIO_TEST_TAG  override MinIO image tag for compatibility.
//

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"sharex-server/internal/storage"
)

func TestEndToEnd_MinioBackend(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	tag := os.Getenv("SHAREX_MINIO_TEST_TAG")
	if tag == "" {
		tag = "RELEASE.2024-01-31T20-20-33Z"
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        tag,
		Cmd:        []string{"server", "/data"},
		Env: []string{
			"MINIO_ROOT_USER=minio",
			"MINIO_ROOT_PASSWORD=minio123",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		t.Fatalf("could not start minio: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	endpoint := "http://localhost:" + resource.GetPort("9000/tcp")
	if err := pool.Retry(func() error {
		resp, err := http.Get(endpoint + "/minio/health/live")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("minio not ready: %d", resp.StatusCode)
		}
		return nil
	}); err != nil {
		t.Fatalf("minio not ready: %v", err)
	}

	store, err := storage.NewMinio(storage.MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "sharex",
		Prefix:    "e2e",
	})
	if err != nil {
		t.Fatalf("NewMinio: %v", err)
	}

	s, err := New(Options{
		Password:  testPassword,
		Port:      Ptr(uint16(0)),
		Storage:   store,
		LogOutput: io.Discard,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})

	base := fmt.Sprintf("http://127.0.0.1:%d", s.Port())
	client := &http.Client{Timeout: 30 * time.Second}

	// Upload
	payload := bytes.Repeat([]byte("sharex e2e "), 1000)
	body, contentType := multipartBody(t, formPart{"file", "e2e.txt", string(payload)})
	req, _ := http.NewRequest(http.MethodPost, base+"/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(passwordHeader, testPassword)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var up uploadResp
	_ = json.NewDecoder(resp.Body).Decode(&up)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	name := up.URL[strings.LastIndex(up.URL, "/")+1:]

	// Download
	resp, err = client.Get(base + "/" + name)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("downloaded %d bytes, want %d", len(got), len(payload))
	}

	// Listing
	resp, err = client.Get(base + "/files")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	listing, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(listing), name) {
		t.Fatalf("listing does not contain %s: %s", name, listing)
	}

	// Health
	resp, err = client.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}
