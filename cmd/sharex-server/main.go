package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"sharex-server/internal/server"
	"sharex-server/internal/storage"
)

func main() {
	log := logrus.New()

	// A missing .env is fine, the environment may already be set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not read .env")
	}

	opts, err := server.LoadOptionsFromEnv(os.Getenv)
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}
	if opts.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	store, err := openStorage(os.Getenv)
	if err != nil {
		log.WithError(err).Error("storage setup failed")
		os.Exit(1)
	}
	opts.Storage = store

	srv, err := server.New(opts)
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	if err := srv.Start(context.Background()); err != nil {
		log.WithError(err).Error("could not start server")
		os.Exit(1)
	}

	// Set up signal handling for graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (container stop).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.WithError(err).Error("shutdown error")
			os.Exit(1)
		}
	case <-srv.Done():
		log.Error("server stopped unexpectedly")
		os.Exit(1)
	}
}

// openStorage picks the backend named by STORAGE. For disk it returns nil,
// leaving the server to store under SAVE_PATH.
func openStorage(getenv func(string) string) (storage.Storage, error) {
	switch kind := strings.ToLower(getenvDefault(getenv, "STORAGE", "disk")); kind {
	case "disk":
		return nil, nil
	case "s3":
		return storage.NewMinio(storage.MinioConfig{
			Endpoint:  getenv("S3_ENDPOINT"),
			AccessKey: getenv("S3_ACCESS_KEY"),
			SecretKey: getenv("S3_SECRET_KEY"),
			Bucket:    getenvDefault(getenv, "S3_BUCKET", "sharex"),
			Prefix:    getenv("S3_PREFIX"),
		})
	default:
		return nil, fmt.Errorf("STORAGE must be disk or s3 (got: %s)", kind)
	}
}

// getenvDefault reads a variable through getenv and returns def if it is
// unset or empty.
func getenvDefault(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}
