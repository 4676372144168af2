package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// uploadPartSize bounds the memory PutObject buffers per upload when the
// stream length is unknown.
const uploadPartSize = 16 << 20

// MinioConfig selects the bucket (and optional key prefix) uploads live in.
type MinioConfig struct {
	Endpoint  string // "host:port" or "http(s)://host:port"
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// Minio stores files as objects in an S3-compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
	prefix string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		secure = (u.Scheme == "https")
		return u.Host, secure, nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

func normalisePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// NewMinio builds a client for cfg. The bucket is not contacted until
// EnsureRoot or Ping.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	return &Minio{client: client, bucket: cfg.Bucket, prefix: normalisePrefix(cfg.Prefix)}, nil
}

func (m *Minio) key(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return m.prefix + name, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (m *Minio) EnsureRoot(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	return nil
}

func (m *Minio) Exists(ctx context.Context, name string) (bool, error) {
	key, err := m.key(name)
	if err != nil {
		return false, err
	}
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create checks for an existing object before the put. S3 offers no
// exclusive create, so two writers racing for the same key can still both
// succeed; the last one wins.
func (m *Minio) Create(ctx context.Context, name string, r io.Reader) (int64, error) {
	key, err := m.key(name)
	if err != nil {
		return 0, err
	}
	exists, err := m.Exists(ctx, name)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: %s", ErrExist, name)
	}

	info, err := m.client.PutObject(ctx, m.bucket, key, contextReader{ctx: ctx, r: r}, -1, minio.PutObjectOptions{
		ContentType: mime.TypeByExtension(path.Ext(name)),
		PartSize:    uploadPartSize,
	})
	if err != nil {
		return 0, fmt.Errorf("put object %s: %w", key, err)
	}
	return info.Size, nil
}

func (m *Minio) Open(ctx context.Context, name string) (File, error) {
	key, err := m.key(name)
	if err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// Force an early error for missing object / auth issues.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		return nil, err
	}
	return obj, nil
}

func (m *Minio) Stat(ctx context.Context, name string) (FileInfo, error) {
	key, err := m.key(name)
	if err != nil {
		return FileInfo{}, err
	}
	oi, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return FileInfo{}, fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		return FileInfo{}, err
	}
	return FileInfo{Name: name, Size: oi.Size, ModTime: oi.LastModified}, nil
}

func (m *Minio) List(ctx context.Context) ([]FileInfo, error) {
	var out []FileInfo
	for oi := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: m.prefix}) {
		if oi.Err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", m.bucket, oi.Err)
		}
		name := strings.TrimPrefix(oi.Key, m.prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		out = append(out, FileInfo{Name: name, Size: oi.Size, ModTime: oi.LastModified})
	}
	return out, nil
}

func (m *Minio) Remove(ctx context.Context, name string) error {
	key, err := m.key(name)
	if err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *Minio) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("minio bucket does not exist: %s", m.bucket)
	}
	return nil
}
