package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"meetdesk-backend/shared/config"
)

const avatarPrefix = "avatars/"

// AvatarStorage stores profile images in a MinIO bucket whose avatars/ prefix is publicly readable
type AvatarStorage struct {
	client     *minio.Client
	bucketName string
	publicURL  string
}

func NewAvatarStorage(ctx context.Context, cfg *config.Config) (*AvatarStorage, error) {
	parsedURL, err := url.Parse(cfg.MinIOServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MinIO endpoint: %w", err)
	}

	log.Printf("🔗 Connecting to MinIO: %s (SSL: %v)", parsedURL.Host, cfg.MinIOUseSSL)

	client, err := minio.New(parsedURL.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	s := &AvatarStorage{
		client:     client,
		bucketName: cfg.MinIOBucketName,
		publicURL:  strings.TrimRight(cfg.MinIOServerURL, "/"),
	}
	if err := s.initializeBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AvatarStorage) initializeBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("✅ MinIO bucket '%s' created successfully", s.bucketName)
	}

	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s*"]}]}`,
		s.bucketName, avatarPrefix)
	if err := s.client.SetBucketPolicy(ctx, s.bucketName, policy); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

// AvatarObjectKey builds avatars/<userID>/<random><ext>
func AvatarObjectKey(userID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s%s/%s%s", avatarPrefix, userID, uuid.NewString(), ext)
}

// PutAvatar uploads the image and returns its public URL
func (s *AvatarStorage) PutAvatar(ctx context.Context, userID uuid.UUID, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := AvatarObjectKey(userID, filename)

	_, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	log.Printf("✅ Avatar uploaded: %s", key)
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucketName, key), nil
}

// RemoveAvatar deletes a previously uploaded avatar by its public URL. Foreign URLs are ignored.
func (s *AvatarStorage) RemoveAvatar(ctx context.Context, avatarURL string) error {
	prefix := fmt.Sprintf("%s/%s/", s.publicURL, s.bucketName)
	if !strings.HasPrefix(avatarURL, prefix) {
		return nil
	}
	key := strings.TrimPrefix(avatarURL, prefix)
	if !strings.HasPrefix(key, avatarPrefix) {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove avatar: %w", err)
	}
	return nil
}

// Ping lists buckets to test connectivity
func (s *AvatarStorage) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}
