package services

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexchain/apex-backend/internal/config"
)

// fakeS3 records puts and deletes in memory.
type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	acl     map[string]string
	failPut bool
}

func (f *fakeS3) PutObject(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = body
	f.acl[aws.StringValue(in.Key)] = aws.StringValue(in.ACL)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestStorageUploadsLocally(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{AWS: config.AWSConfig{LocalUploadDir: dir, PublicBaseURL: "http://localhost:8080/"}}
	storage, err := NewStorageService(cfg)
	require.NoError(t, err)

	res, err := storage.UploadBytes(pngBytes, "image/png", "png", storage.GetDefaultUploadOptions(CategoryQRCodes))
	require.NoError(t, err)
	assert.Regexp(t, `^qr-codes/\d{8}_[0-9a-f]{8}\.png$`, res.Key)
	assert.Equal(t, "http://localhost:8080/uploads/"+res.Key, res.URL)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(res.Key)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, stored)

	require.NoError(t, storage.DeleteFile(res.Key))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(res.Key)))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, storage.DeleteFile(res.Key))
}

func TestStorageRejectsBadUploads(t *testing.T) {
	storage, err := NewStorageService(&config.Config{AWS: config.AWSConfig{LocalUploadDir: t.TempDir()}})
	require.NoError(t, err)

	_, err = storage.UploadBytes(nil, "image/png", "png", storage.GetDefaultUploadOptions(CategoryProductImages))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = storage.UploadBytes(pngBytes, "image/jpeg", "jpg", storage.GetDefaultUploadOptions(CategoryQRCodes))
	assert.ErrorIs(t, err, ErrInvalidInput)

	opts := storage.GetDefaultUploadOptions(CategoryProductImages)
	opts.MaxSize = 4
	_, err = storage.UploadBytes(pngBytes, "image/png", "png", opts)
	assert.Error(t, err)
}

func TestStorageUploadsToS3(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}, acl: map[string]string{}}
	cfg := &config.Config{AWS: config.AWSConfig{S3Bucket: "apex-assets", Region: "eu-west-1"}}
	storage := NewStorageServiceWithClient(cfg, client)

	res, err := storage.UploadBytes(pngBytes, "image/png", ".png", storage.GetDefaultUploadOptions(CategoryProductImages))
	require.NoError(t, err)
	assert.Equal(t, "https://apex-assets.s3.eu-west-1.amazonaws.com/"+res.Key, res.URL)
	assert.Equal(t, pngBytes, client.objects[res.Key])
	assert.Equal(t, "public-read", client.acl[res.Key])

	storage.DeleteFiles(res.Key, "")
	assert.Empty(t, client.objects)

	cfg.AWS.CloudFrontURL = "https://cdn.apex.example"
	res, err = storage.UploadBytes(pngBytes, "image/png", "png", storage.GetDefaultUploadOptions("other"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.apex.example/"+res.Key, res.URL)
	assert.Equal(t, "", client.acl[res.Key])

	client.failPut = true
	_, err = storage.UploadBytes(pngBytes, "image/png", "png", storage.GetDefaultUploadOptions(CategoryQRCodes))
	assert.Error(t, err)
}
