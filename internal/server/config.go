package server

import (
	"fmt"
	"io"
	"strings"

	"sharex-server/internal/storage"
)

const (
	defaultPort           = 8080
	defaultBaseURL        = "/"
	defaultSavePath       = "./uploads"
	defaultFilenameLength = 10
	defaultFileListing    = "files"
	maxFilenameLength     = 200

	// routePatternChars would turn a configured path into a route
	// parameter or wildcard.
	routePatternChars = "{}*"
)

// ConfigError reports an option that prevents the server from starting.
type ConfigError struct {
	Field   string
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Options is what callers hand to New. Only Password is required; every
// other field falls back to the default documented on it. Pointer fields
// distinguish "not set" from a meaningful zero value.
type Options struct {
	// Password uploads must present in the X-Password header.
	Password string
	// Port to listen on, defaults to 8080. 0 picks a free port.
	Port *uint16
	// BaseURL all routes are mounted under, defaults to "/".
	BaseURL string
	// SavePath is where uploads are written, defaults to "./uploads".
	SavePath string
	// FilenameLength of generated names, defaults to 10.
	FilenameLength int
	// EnableSxcu serves a ShareX custom uploader file at api/sxcu.
	EnableSxcu bool
	// FileListing is the route of the public file listing, defaults to
	// "files". An empty string disables the listing.
	FileListing *string
	// Debug enables debug logging.
	Debug bool
	// ForceHTTPS makes returned URLs use https regardless of the request.
	ForceHTTPS *bool
	// TrustProxy takes client IP, scheme and host from forwarding headers.
	// It also turns ForceHTTPS on unless ForceHTTPS was set explicitly.
	TrustProxy bool

	// MaxUploadBytes caps the size of an upload request body. 0 means no limit.
	MaxUploadBytes int64
	// EnableMetrics serves Prometheus metrics at api/metrics.
	EnableMetrics bool
	// LogFormat is "text" (default) or "json".
	LogFormat string
	// LogOutput receives log lines, defaults to stdout.
	LogOutput io.Writer

	// Storage overrides the disk store at SavePath.
	Storage storage.Storage
}

// Ptr returns a pointer to v, for filling the optional fields of Options.
func Ptr[T any](v T) *T { return &v }

// Config is the fully resolved, read-only configuration of a Server.
// FileListing is empty when the listing is disabled.
type Config struct {
	Port           uint16
	BaseURL        string
	SavePath       string
	FilenameLength int
	EnableSxcu     bool
	FileListing    string
	Debug          bool
	ForceHTTPS     bool
	ForceHTTPSSet  bool
	TrustProxy     bool
	MaxUploadBytes int64
	EnableMetrics  bool
	LogFormat      string

	password string
}

// ListingEnabled reports whether the file listing route is served.
func (c Config) ListingEnabled() bool { return c.FileListing != "" }

// NewConfig applies defaults and normalisation to opts.
func NewConfig(opts Options) (Config, error) {
	if opts.Password == "" {
		return Config{}, ConfigError{Field: "password", Message: "a password must be provided to start the server"}
	}

	cfg := Config{
		Port:           defaultPort,
		BaseURL:        normaliseBaseURL(opts.BaseURL),
		SavePath:       opts.SavePath,
		FilenameLength: opts.FilenameLength,
		EnableSxcu:     opts.EnableSxcu,
		FileListing:    defaultFileListing,
		Debug:          opts.Debug,
		TrustProxy:     opts.TrustProxy,
		MaxUploadBytes: opts.MaxUploadBytes,
		EnableMetrics:  opts.EnableMetrics,
		LogFormat:      opts.LogFormat,
		password:       opts.Password,
	}

	if strings.ContainsAny(cfg.BaseURL, routePatternChars) {
		return Config{}, ConfigError{Field: "baseURL", Message: fmt.Sprintf("must not contain any of %q (got %s)", routePatternChars, opts.BaseURL)}
	}

	if opts.Port != nil {
		cfg.Port = *opts.Port
	}
	if cfg.SavePath == "" {
		cfg.SavePath = defaultSavePath
	}

	switch {
	case cfg.FilenameLength == 0:
		cfg.FilenameLength = defaultFilenameLength
	case cfg.FilenameLength < 0 || cfg.FilenameLength > maxFilenameLength:
		return Config{}, ConfigError{
			Field:   "filenameLength",
			Message: fmt.Sprintf("must be between 1 and %d (got %d)", maxFilenameLength, opts.FilenameLength),
		}
	}

	if opts.FileListing != nil {
		cfg.FileListing = strings.TrimPrefix(*opts.FileListing, "/")
		if strings.ContainsAny(cfg.FileListing, routePatternChars) {
			return Config{}, ConfigError{Field: "fileListing", Message: fmt.Sprintf("must not contain any of %q (got %s)", routePatternChars, cfg.FileListing)}
		}
	}

	if opts.ForceHTTPS != nil {
		cfg.ForceHTTPS = *opts.ForceHTTPS
		cfg.ForceHTTPSSet = true
	} else if opts.TrustProxy {
		cfg.ForceHTTPS = true
		cfg.ForceHTTPSSet = true
	}

	if cfg.MaxUploadBytes < 0 {
		return Config{}, ConfigError{Field: "maxUploadBytes", Message: "must not be negative"}
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return Config{}, ConfigError{Field: "logFormat", Message: fmt.Sprintf("must be one of: text, json (got: %s)", cfg.LogFormat)}
	}

	return cfg, nil
}

// normaliseBaseURL makes sure the prefix starts and ends with a slash.
// Inner slashes are dropped: "/a/b" becomes "/ab/".
func normaliseBaseURL(raw string) string {
	if raw == "" || raw == "/" {
		return defaultBaseURL
	}
	stripped := strings.ReplaceAll(raw, "/", "")
	if stripped == "" {
		return defaultBaseURL
	}
	return "/" + stripped + "/"
}
