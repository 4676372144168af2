// config_validation.go - Environment configuration for the ShareX server.
//
// Validates every variable up front and reports all problems at once,
// rather than failing on the first one.
package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ConfigValidator collects configuration errors.
type ConfigValidator struct {
	getenv func(string) string
	errors []ConfigError
}

// NewConfigValidator creates a validator reading variables through getenv.
func NewConfigValidator(getenv func(string) string) *ConfigValidator {
	return &ConfigValidator{
		getenv: getenv,
		errors: make([]ConfigError, 0),
	}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// Err joins all collected errors, or returns nil.
func (v *ConfigValidator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	errs := make([]error, len(v.errors))
	for i, e := range v.errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Required returns the value of key, recording an error when it is empty.
func (v *ConfigValidator) Required(key string) string {
	value := v.getenv(key)
	if value == "" {
		v.AddError(key, "required environment variable not set")
	}
	return value
}

// Port parses key as a TCP port. 0 is allowed and means "any free port".
func (v *ConfigValidator) Port(key string) *uint16 {
	value := strings.TrimPrefix(strings.TrimSpace(v.getenv(key)), ":")
	if value == "" {
		return nil
	}
	port, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		v.AddError(key, "port must be a number between 0 and 65535")
		return nil
	}
	return Ptr(uint16(port))
}

// PositiveInt parses key as an integer greater than zero. Unset yields 0.
func (v *ConfigValidator) PositiveInt(key string) int {
	value := strings.TrimSpace(v.getenv(key))
	if value == "" {
		return 0
	}
	num, err := strconv.Atoi(value)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return 0
	}
	if num <= 0 {
		v.AddError(key, "must be a positive integer")
		return 0
	}
	return num
}

// Bool parses key as a boolean. Unset yields nil.
func (v *ConfigValidator) Bool(key string) *bool {
	value := strings.TrimSpace(v.getenv(key))
	if value == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		v.AddError(key, fmt.Sprintf("must be true or false (got: %s)", value))
		return nil
	}
	return &b
}

// Flag is Bool with unset meaning false.
func (v *ConfigValidator) Flag(key string) bool {
	b := v.Bool(key)
	return b != nil && *b
}

// Bytes parses a human readable size such as "100MB" or "1GiB".
func (v *ConfigValidator) Bytes(key string) int64 {
	value := strings.TrimSpace(v.getenv(key))
	if value == "" {
		return 0
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("must be a size like 100MB (got: %s)", value))
		return 0
	}
	return int64(n)
}

// Enum validates that key is one of allowed. Unset is always accepted.
func (v *ConfigValidator) Enum(key string, allowed []string) string {
	value := strings.ToLower(strings.TrimSpace(v.getenv(key)))
	if value == "" {
		return ""
	}
	for _, opt := range allowed {
		if value == opt {
			return value
		}
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
	return ""
}

// LoadOptionsFromEnv reads server options from environment variables.
//
//	PASSWORD         required
//	PORT             default 8080
//	BASE_URL         default /
//	SAVE_PATH        default ./uploads
//	LENGTH           generated filename length, default 10
//	ENABLE_SXCU      default false
//	FILE_LISTING     listing route, default files; "false" disables it
//	DEBUG            default false
//	FORCE_HTTPS      default unset
//	TRUST_PROXY      default false
//	MAX_UPLOAD_SIZE  e.g. 100MB, default unlimited
//	ENABLE_METRICS   default false
//	LOG_FORMAT       text or json
func LoadOptionsFromEnv(getenv func(string) string) (Options, error) {
	v := NewConfigValidator(getenv)

	opts := Options{
		Password:       v.Required("PASSWORD"),
		Port:           v.Port("PORT"),
		BaseURL:        strings.TrimSpace(getenv("BASE_URL")),
		SavePath:       strings.TrimSpace(getenv("SAVE_PATH")),
		FilenameLength: v.PositiveInt("LENGTH"),
		EnableSxcu:     v.Flag("ENABLE_SXCU"),
		Debug:          v.Flag("DEBUG"),
		ForceHTTPS:     v.Bool("FORCE_HTTPS"),
		TrustProxy:     v.Flag("TRUST_PROXY"),
		MaxUploadBytes: v.Bytes("MAX_UPLOAD_SIZE"),
		EnableMetrics:  v.Flag("ENABLE_METRICS"),
		LogFormat:      v.Enum("LOG_FORMAT", []string{"text", "json"}),
	}

	if listing := strings.TrimSpace(getenv("FILE_LISTING")); listing != "" {
		if strings.EqualFold(listing, "false") {
			listing = ""
		}
		opts.FileListing = &listing
	}

	if opts.FilenameLength > maxFilenameLength {
		v.AddError("LENGTH", fmt.Sprintf("must be at most %d", maxFilenameLength))
	}

	return opts, v.Err()
}
