package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultContentType = "application/octet-stream"

var contentTypeByExt = map[string]string{
	"jpg": "image/jpeg",
	"png": "image/png",
	"gif": "image/gif",
}

// MinioClient is the subset of *minio.Client used by MinioStore.
type MinioClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinioConfig configures an S3-compatible blob backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// MinioStore stores blobs as objects in an S3-compatible bucket.
type MinioStore struct {
	client MinioClient
	bucket string
	prefix string
}

// NewMinioStore connects to the endpoint and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return NewMinioStoreWithClient(client, bucket, cfg.Prefix), nil
}

// NewMinioStoreWithClient wraps an existing client.
func NewMinioStoreWithClient(client MinioClient, bucket, prefix string) *MinioStore {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &MinioStore{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads r as prefix/id.ext. An object that already exists is reported
// as ErrExists, but the check is a StatObject ahead of PutObject: two writers
// racing on one name can both pass it. Image ids are random UUIDs, so callers
// never share a name.
func (s *MinioStore) Put(ctx context.Context, id, ext string, r io.Reader) (int64, error) {
	if s == nil || s.client == nil {
		return 0, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return 0, fmt.Errorf("reader is required")
	}
	name, err := objectName(id, ext)
	if err != nil {
		return 0, err
	}
	exists, err := s.stat(ctx, name)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%s: %w", name, ErrExists)
	}

	contentType, ok := contentTypeByExt[ext]
	if !ok {
		contentType = defaultContentType
	}
	info, err := s.client.PutObject(ctx, s.bucket, s.prefix+name, r, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return 0, fmt.Errorf("put object %s: %w", name, err)
	}
	return info.Size, nil
}

// Open returns a reader for the object content.
func (s *MinioStore) Open(ctx context.Context, id, ext string) (io.ReadCloser, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	name, err := objectName(id, ext)
	if err != nil {
		return nil, err
	}
	exists, err := s.stat(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.prefix+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", name, err)
	}
	return obj, nil
}

// Exists reports whether the object is present in the bucket.
func (s *MinioStore) Exists(ctx context.Context, id, ext string) (bool, error) {
	if s == nil || s.client == nil {
		return false, fmt.Errorf("blob store is not configured")
	}
	name, err := objectName(id, ext)
	if err != nil {
		return false, err
	}
	return s.stat(ctx, name)
}

// Delete removes the object. S3 deletes of missing keys already succeed.
func (s *MinioStore) Delete(ctx context.Context, id, ext string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("blob store is not configured")
	}
	name, err := objectName(id, ext)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.prefix+name, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", name, err)
	}
	return nil
}

// List returns every id.ext object under the configured prefix.
func (s *MinioStore) List(ctx context.Context) ([]BlobInfo, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []BlobInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects: %w", object.Err)
		}
		name := strings.TrimPrefix(object.Key, s.prefix)
		if strings.Contains(name, "/") {
			continue
		}
		id, ext, ok := splitName(name)
		if !ok {
			continue
		}
		out = append(out, BlobInfo{ID: id, Ext: ext, SizeBytes: object.Size, ModTime: object.LastModified.UTC()})
	}
	return out, nil
}

func (s *MinioStore) stat(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.prefix+name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat object %s: %w", name, err)
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
