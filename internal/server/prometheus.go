// prometheus.go - Prometheus metrics exporter
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Version is reported by sharex_info. The binary overrides it at link time.
var Version = "dev"

// handleMetrics writes the server counters in the Prometheus text format.
// Storage gauges are computed from a listing on every scrape.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := s.metrics.Snapshot()

		var output strings.Builder

		output.WriteString("# HELP sharex_info Application version info\n")
		output.WriteString("# TYPE sharex_info gauge\n")
		output.WriteString(fmt.Sprintf("sharex_info{version=\"%s\"} 1\n\n", prometheusLabel(Version)))

		// Request metrics
		output.WriteString("# HELP sharex_requests_total Total number of HTTP requests\n")
		output.WriteString("# TYPE sharex_requests_total counter\n")
		output.WriteString(fmt.Sprintf("sharex_requests_total %d\n\n", snapshot.RequestsTotal))

		output.WriteString("# HELP sharex_request_errors_total HTTP requests answered with an error status\n")
		output.WriteString("# TYPE sharex_request_errors_total counter\n")
		output.WriteString(fmt.Sprintf("sharex_request_errors_total{class=\"4xx\"} %d\n", snapshot.RequestErrors4xx))
		output.WriteString(fmt.Sprintf("sharex_request_errors_total{class=\"5xx\"} %d\n\n", snapshot.RequestErrors5xx))

		// Upload metrics
		output.WriteString("# HELP sharex_uploads_total Total number of file uploads\n")
		output.WriteString("# TYPE sharex_uploads_total counter\n")
		output.WriteString(fmt.Sprintf("sharex_uploads_total %d\n\n", snapshot.UploadsTotal))

		output.WriteString("# HELP sharex_upload_bytes_total Total bytes received in uploads\n")
		output.WriteString("# TYPE sharex_upload_bytes_total counter\n")
		output.WriteString(fmt.Sprintf("sharex_upload_bytes_total %d\n\n", snapshot.UploadBytesTotal))

		output.WriteString("# HELP sharex_upload_errors_total Total number of failed uploads\n")
		output.WriteString("# TYPE sharex_upload_errors_total counter\n")
		output.WriteString(fmt.Sprintf("sharex_upload_errors_total %d\n\n", snapshot.UploadErrorsTotal))

		// Download metrics
		output.WriteString("# HELP sharex_downloads_total Total number of file downloads\n")
		output.WriteString("# TYPE sharex_downloads_total counter\n")
		output.WriteString(fmt.Sprintf("sharex_downloads_total %d\n\n", snapshot.DownloadsTotal))

		output.WriteString("# HELP sharex_download_misses_total Requests for files that do not exist\n")
		output.WriteString("# TYPE sharex_download_misses_total counter\n")
		output.WriteString(fmt.Sprintf("sharex_download_misses_total %d\n\n", snapshot.DownloadMissesTotal))

		// Auth metrics
		output.WriteString("# HELP sharex_auth_failures_total Uploads rejected for a missing or wrong password\n")
		output.WriteString("# TYPE sharex_auth_failures_total counter\n")
		output.WriteString(fmt.Sprintf("sharex_auth_failures_total %d\n\n", snapshot.AuthFailuresTotal))

		// Storage metrics
		if files, err := s.store.List(r.Context()); err != nil {
			s.requestLogger(r).WithError(err).Warn("metrics: list storage")
		} else {
			var total int64
			for _, f := range files {
				total += f.Size
			}
			output.WriteString("# HELP sharex_storage_bytes Total storage used in bytes\n")
			output.WriteString("# TYPE sharex_storage_bytes gauge\n")
			output.WriteString(fmt.Sprintf("sharex_storage_bytes %d\n\n", total))

			output.WriteString("# HELP sharex_storage_files Total number of stored files\n")
			output.WriteString("# TYPE sharex_storage_files gauge\n")
			output.WriteString(fmt.Sprintf("sharex_storage_files %d\n\n", len(files)))
		}

		output.WriteString("# HELP sharex_uptime_seconds Server uptime in seconds\n")
		output.WriteString("# TYPE sharex_uptime_seconds counter\n")
		output.WriteString(fmt.Sprintf("sharex_uptime_seconds %.0f\n", time.Since(s.createdAt).Seconds()))

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(output.String()))
	}
}

// Helper function to format label safely for Prometheus
func prometheusLabel(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return value
}
