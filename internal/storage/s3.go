// Package storage uploads user avatars to an S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/communiconnect/backend/internal/config"
)

// uploader is the subset of manager.Uploader used by AvatarStore.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// AvatarStore saves avatar images to a bucket and returns their public URL.
type AvatarStore struct {
	uploader uploader
	bucket   string
	baseURL  string
}

// NewAvatarStore configures an uploader targeting the provided object store.
// A custom endpoint switches the client to path-style addressing for MinIO
// and similar services.
func NewAvatarStore(ctx context.Context, cfg config.ObjectStoreConfig) (*AvatarStore, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("avatar storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = manager.MinUploadPartSize
		u.LeavePartsOnError = false
	})

	return newAvatarStore(up, cfg), nil
}

func newAvatarStore(up uploader, cfg config.ObjectStoreConfig) *AvatarStore {
	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" && strings.TrimSpace(cfg.Endpoint) != "" {
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &AvatarStore{uploader: up, bucket: cfg.Bucket, baseURL: baseURL}
}

// Save uploads r under key and returns its public location. Without a public
// base URL the bare key is returned.
func (s *AvatarStore) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	key = path.Clean("/" + strings.TrimSpace(key))[1:]
	if key == "" {
		return "", fmt.Errorf("avatar storage: empty key")
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         r,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
		ACL:          s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("avatar storage upload %s: %w", key, err)
	}

	if s.baseURL == "" {
		return key, nil
	}
	return s.baseURL + "/" + key, nil
}
