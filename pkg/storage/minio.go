package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/nfnt/resize"
)

const (
	MaxImageSize = 5 * 1024 * 1024
	maxWidth     = 800
)

var (
	ErrNotConfigured    = errors.New("image storage is not configured")
	ErrTooLarge         = errors.New("image exceeds the 5MB limit")
	ErrUnsupportedImage = errors.New("only JPEG and PNG images are supported")
)

// Uploaded identifies a stored image.
type Uploaded struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// ImageStore is the external image hosting capability.
type ImageStore interface {
	Upload(ctx context.Context, data []byte, folder string) (*Uploaded, error)
	Delete(ctx context.Context, id string) error
}

type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStore builds an S3 compatible store. baseURL is the public CDN
// prefix; when empty the endpoint URL is used.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, baseURL string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init S3 client: %w", err)
	}
	if baseURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}
	return &MinioStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *MinioStore) Upload(ctx context.Context, data []byte, folder string) (*Uploaded, error) {
	body, err := Prepare(data)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s.jpg", strings.Trim(folder, "/"), uuid.NewString())
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return nil, fmt.Errorf("upload image to S3: %w", err)
	}

	return &Uploaded{URL: s.baseURL + "/" + key, ID: key}, nil
}

func (s *MinioStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
}

// Prepare validates an upload and re-encodes it as JPEG, scaling images wider
// than 800px down.
func Prepare(data []byte) ([]byte, error) {
	if len(data) > MaxImageSize {
		return nil, ErrTooLarge
	}
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png":
	default:
		return nil, ErrUnsupportedImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if img.Bounds().Dx() > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Disabled rejects uploads when no storage is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, []byte, string) (*Uploaded, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Delete(context.Context, string) error { return nil }
