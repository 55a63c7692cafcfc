// Package s3 serves a share from an S3 bucket. Directories are emulated by
// zero-byte marker objects whose keys end in "/", and rename is a copy
// followed by a delete, so it is not atomic.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/models"
)

// API is the subset of the S3 client the store uses.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config selects the bucket and client settings.
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// Store is a Share over an S3 bucket prefix.
type Store struct {
	client API
	bucket string
	prefix string
	logger *events.Logger
}

// New builds a store using the default AWS credential chain.
func New(ctx context.Context, cfg Config, logger *events.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewWithClient builds a store over an existing client.
func NewWithClient(client API, bucket, prefix string, logger *events.Logger) *Store {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.WithFields(map[string]interface{}{
			"component": "s3_store",
			"bucket":    bucket,
		}),
	}
}

// Scheme implements storage.Share.
func (s *Store) Scheme() string {
	return "s3"
}

// Stat reports a file from its object or a directory from its marker or
// any object below it.
func (s *Store) Stat(ctx context.Context, p string) (models.FileInfo, error) {
	p = cleanPath(p)
	if p == "/" {
		return dirInfo(p), nil
	}

	key := s.buildKey(p)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return models.FileInfo{
			Name:    path.Base(p),
			Path:    p,
			Size:    aws.ToInt64(head.ContentLength),
			Mode:    0644,
			ModTime: aws.ToTime(head.LastModified),
		}, nil
	}
	if !isNotFound(err) {
		return models.FileInfo{}, fmt.Errorf("s3 head object: %w", err)
	}

	isDir, err := s.hasPrefix(ctx, key+"/")
	if err != nil {
		return models.FileInfo{}, err
	}
	if isDir {
		return dirInfo(p), nil
	}

	return models.FileInfo{}, notExist("stat", p)
}

// Exists checks if a file or directory exists.
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// OpenRead streams an object body.
func (s *Store) OpenRead(ctx context.Context, p string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.buildKey(p)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, notExist("open", cleanPath(p))
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return result.Body, nil
}

// OpenWrite buffers the content and uploads it on Close.
func (s *Store) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	p = cleanPath(p)
	parent, err := s.Stat(ctx, path.Dir(p))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", p, err)
	}
	if !parent.IsDir {
		return nil, fmt.Errorf("create %s: parent is not a directory", p)
	}

	return &objectWriter{ctx: ctx, store: s, key: s.buildKey(p)}, nil
}

// ListDir returns files and subdirectories directly below p.
func (s *Store) ListDir(ctx context.Context, p string) ([]models.FileInfo, error) {
	p = cleanPath(p)
	prefix := s.dirKey(p)

	var entries []models.FileInfo
	found := p == "/"

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}

		for _, cp := range page.CommonPrefixes {
			found = true
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			entries = append(entries, dirInfo(path.Join(p, name)))
		}

		for _, obj := range page.Contents {
			found = true
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue
			}
			entries = append(entries, models.FileInfo{
				Name:    name,
				Path:    path.Join(p, name),
				Size:    aws.ToInt64(obj.Size),
				Mode:    0644,
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	if !found {
		return nil, notExist("readdir", p)
	}
	return entries, nil
}

// Mkdir writes a directory marker. The parent must exist.
func (s *Store) Mkdir(ctx context.Context, p string) error {
	p = cleanPath(p)

	exists, err := s.Exists(ctx, p)
	if err != nil {
		return err
	}
	if exists {
		return &os.PathError{Op: "mkdir", Path: p, Err: os.ErrExist}
	}

	if parent := path.Dir(p); parent != "/" {
		info, err := s.Stat(ctx, parent)
		if err != nil {
			return fmt.Errorf("mkdir %s: %w", p, err)
		}
		if !info.IsDir {
			return fmt.Errorf("mkdir %s: parent is not a directory", p)
		}
	}

	return s.putMarker(ctx, p)
}

// MkdirAll writes markers for p and every ancestor.
func (s *Store) MkdirAll(ctx context.Context, p string) error {
	for dir := cleanPath(p); dir != "/"; dir = path.Dir(dir) {
		if err := s.putMarker(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an object or an empty directory marker.
func (s *Store) Delete(ctx context.Context, p string) error {
	info, err := s.Stat(ctx, p)
	if err != nil {
		return err
	}

	key := s.buildKey(info.Path)
	if info.IsDir {
		children, err := s.ListDir(ctx, info.Path)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return &os.PathError{Op: "remove", Path: info.Path, Err: fmt.Errorf("directory not empty")}
		}
		key += "/"
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}

	s.logger.WithField("key", key).Debug("Deleted object")
	return nil
}

// Rename copies the object to the new key and deletes the old one.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	info, err := s.Stat(ctx, oldPath)
	if err != nil {
		return err
	}
	if info.IsDir {
		return fmt.Errorf("rename %s: directories cannot be renamed", info.Path)
	}

	oldKey, newKey := s.buildKey(oldPath), s.buildKey(newPath)
	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(newKey),
		CopySource: aws.String(s.bucket + "/" + escapeKey(oldKey)),
	})
	if err != nil {
		return fmt.Errorf("s3 copy object: %w", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(oldKey),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"old": oldKey,
		"new": newKey,
	}).Debug("Renamed object")
	return nil
}

// Close implements storage.Share.
func (s *Store) Close() error {
	return nil
}

func (s *Store) putMarker(ctx context.Context, dir string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.dirKey(dir)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (s *Store) hasPrefix(ctx context.Context, prefix string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("s3 list objects: %w", err)
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}

func (s *Store) buildKey(p string) string {
	return s.prefix + strings.TrimPrefix(cleanPath(p), "/")
}

// dirKey is the key prefix of objects inside directory p.
func (s *Store) dirKey(p string) string {
	key := s.buildKey(p)
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}

type objectWriter struct {
	ctx    context.Context
	store  *Store
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true

	size := int64(w.buf.Len())
	_, err := w.store.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.store.bucket),
		Key:           aws.String(w.key),
		Body:          bytes.NewReader(w.buf.Bytes()),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}

	w.store.logger.WithFields(map[string]interface{}{
		"key":  w.key,
		"size": size,
	}).Debug("Wrote object")
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

func notExist(op, p string) error {
	return &os.PathError{Op: op, Path: p, Err: os.ErrNotExist}
}

func dirInfo(p string) models.FileInfo {
	return models.FileInfo{
		Name:  path.Base(p),
		Path:  p,
		Mode:  os.ModeDir | 0755,
		IsDir: true,
	}
}

func cleanPath(p string) string {
	return path.Clean("/" + p)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
