package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BackendMinio names objects written by MinioStorage.
const BackendMinio = "minio"

// MinioStorage implements DirectUploader using a MinIO (or any S3-compatible) backend.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists with a public-read
// policy, and returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool, logger log.Logger) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		level.Info(logger).Log("msg", "created bucket", "bucket", bucket)
	}

	if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &MinioStorage{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Put streams obj to the bucket under a freshly generated key.
func (s *MinioStorage) Put(ctx context.Context, obj Object) (Locator, error) {
	loc := s.Locate(NewObjectID())

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, loc.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-name": obj.Name},
	})
	if err != nil {
		return Locator{}, fmt.Errorf("put object %q: %w", loc.Key, err)
	}
	return loc, nil
}

// Delete removes the object from the bucket.
func (s *MinioStorage) Delete(ctx context.Context, loc Locator) error {
	if err := s.client.RemoveObject(ctx, s.bucket, loc.Key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", loc.Key, err)
	}
	return nil
}

// Exists stats the object.
func (s *MinioStorage) Exists(ctx context.Context, loc Locator) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, loc.Key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("stat object %q: %w", loc.Key, err)
}

// Locate returns the locator for key in the configured bucket.
// For local MinIO the URL looks like "http://localhost:9000/media/<key>".
func (s *MinioStorage) Locate(key string) Locator {
	return Locator{
		Backend: BackendMinio,
		Library: s.bucket,
		Key:     key,
		URL:     s.publicBase + "/" + key,
	}
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
