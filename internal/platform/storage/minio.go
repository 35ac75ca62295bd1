package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"arty-web/internal/config"
)

const previewPrefix = "previews/"

// MinIOClient is a thin wrapper bound to one bucket
type MinIOClient struct {
	client     *minio.Client
	bucketName string
	region     string
}

func NewMinIOClient(ctx context.Context, cfg config.StorageConfig) (*MinIOClient, error) {
	var creds *credentials.Credentials

	// Without static keys fall back to the AWS chain (env, credentials file, IAM roles)
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	} else {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	minioClient := &MinIOClient{
		client:     client,
		bucketName: cfg.BucketName,
		region:     cfg.Region,
	}

	if err := minioClient.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare bucket %s: %w", cfg.BucketName, err)
	}

	return minioClient, nil
}

func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return err
	}

	if !exists {
		return m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{
			Region: m.region,
		})
	}

	return nil
}

func (m *MinIOClient) UploadFile(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// GetFile reads a whole object along with its content type
func (m *MinIOClient) GetFile(ctx context.Context, objectName string) ([]byte, string, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", err
	}
	return data, info.ContentType, nil
}

func (m *MinIOClient) DeleteFile(ctx context.Context, objectName string) error {
	return m.client.RemoveObject(ctx, m.bucketName, objectName, minio.RemoveObjectOptions{})
}

// Health checks the bucket is reachable
func (m *MinIOClient) Health(ctx context.Context) error {
	if _, err := m.client.BucketExists(ctx, m.bucketName); err != nil {
		return fmt.Errorf("MinIO health check failed: %w", err)
	}
	return nil
}

// MinIOPreviewStore stores previews as objects under the previews/ prefix
type MinIOPreviewStore struct {
	client *MinIOClient
}

func NewMinIOPreviewStore(client *MinIOClient) *MinIOPreviewStore {
	return &MinIOPreviewStore{client: client}
}

func (s *MinIOPreviewStore) Put(ctx context.Context, contentType string, data []byte) (string, error) {
	id := uuid.NewString()
	if err := s.client.UploadFile(ctx, previewPrefix+id, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("failed to upload preview: %w", err)
	}
	return id, nil
}

func (s *MinIOPreviewStore) Get(ctx context.Context, id string) (*Preview, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPreviewNotFound
	}

	data, contentType, err := s.client.GetFile(ctx, previewPrefix+id)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrPreviewNotFound
		}
		return nil, fmt.Errorf("failed to read preview: %w", err)
	}
	return &Preview{ID: id, ContentType: contentType, Data: data}, nil
}

func (s *MinIOPreviewStore) Release(ctx context.Context, id string) error {
	if err := s.client.DeleteFile(ctx, previewPrefix+id); err != nil {
		return fmt.Errorf("failed to release preview: %w", err)
	}
	return nil
}
