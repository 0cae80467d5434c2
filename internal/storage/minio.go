package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (m *MinioStore) PutDocument(ctx context.Context, employeeID, filename string, content []byte) (string, error) {
	objectKey := ObjectKey(employeeID, uuid.NewString(), filename)
	_, err := m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(content),
	})
	if err != nil {
		return "", err
	}
	return objectKey, nil
}

// DeleteDocument succeeds for keys that are already gone.
func (m *MinioStore) DeleteDocument(ctx context.Context, objectKey string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{})
}

func (m *MinioStore) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("inline; filename=%q", displayName(objectKey)))
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, expiry, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ObjectKey lays uploads out as employee_id/upload_id-filename.
func ObjectKey(employeeID, uploadID, filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	return path.Join(employeeID, uploadID+"-"+name)
}

const uploadIDLen = 36

// displayName strips the upload id prefix that ObjectKey adds.
func displayName(objectKey string) string {
	base := path.Base(objectKey)
	if len(base) > uploadIDLen+1 && base[uploadIDLen] == '-' {
		if _, err := uuid.Parse(base[:uploadIDLen]); err == nil {
			return base[uploadIDLen+1:]
		}
	}
	return base
}
