// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/config"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

var ErrFileRejected = errors.New("file rejected")

// objectStore is the backend documents are written to.
type objectStore interface {
	put(ctx context.Context, key, contentType string, data []byte) (string, error)
	open(ctx context.Context, key string) (io.ReadCloser, error)
	remove(ctx context.Context, key string) error
}

type StorageService struct {
	store  objectStore
	config *config.Config
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Checksum string `json:"checksum"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	IsPublic     bool
}

// IdentificationFileTypes are the extensions accepted for identification.
var IdentificationFileTypes = []string{".png", ".jpg", ".jpeg", ".gif", ".pdf"}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		local, err := newLocalStore(config.Storage.LocalRoot, strings.TrimRight(config.Frontend.BaseURL, "/")+"/uploads")
		if err != nil {
			return nil, err
		}
		return &StorageService{store: local, config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		store:  &s3Store{client: s3.New(sess), cfg: config.AWS},
		config: config,
	}, nil
}

func (s *StorageService) UploadFile(ctx context.Context, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, fmt.Errorf("%w: size %d bytes exceeds maximum allowed size %d bytes", ErrFileRejected, header.Size, options.MaxSize)
	}

	if !AllowedFileType(header.Filename, options.AllowedTypes) {
		return nil, fmt.Errorf("%w: file type %s is not allowed", ErrFileRejected, strings.ToLower(filepath.Ext(header.Filename)))
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	key := s.generateFileName(header.Filename, options.Folder)
	url, err := s.store.put(ctx, key, contentType, fileBytes)
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		URL:      url,
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
		Checksum: utils.HashBytes(fileBytes),
	}, nil
}

// StoreDocument uploads a file and records it as a Document using db.
func (s *StorageService) StoreDocument(ctx context.Context, db *gorm.DB, header *multipart.FileHeader, options UploadOptions, uploadedBy *uuid.UUID) (*models.Document, error) {
	result, err := s.UploadFile(ctx, header, options)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		Name:        filepath.Base(header.Filename),
		FileKey:     result.Key,
		URL:         result.URL,
		ContentType: result.MimeType,
		Size:        result.Size,
		UploadedBy:  uploadedBy,
	}
	if err := db.Create(doc).Error; err != nil {
		// keep storage consistent with the database
		_ = s.store.remove(ctx, result.Key)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	return doc, nil
}

func (s *StorageService) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.store.open(ctx, key)
}

func (s *StorageService) DeleteFile(ctx context.Context, key string) error {
	return s.store.remove(ctx, key)
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	maxSize := int64(s.config.Storage.MaxUploadMB) * 1024 * 1024
	switch category {
	case "identification":
		return UploadOptions{
			Folder:       "identification",
			MaxSize:      maxSize,
			AllowedTypes: IdentificationFileTypes,
		}
	case "proposals":
		return UploadOptions{
			Folder:  "proposals",
			MaxSize: maxSize,
		}
	case "comms_log":
		return UploadOptions{
			Folder:  "comms-log",
			MaxSize: maxSize,
		}
	default:
		return UploadOptions{
			Folder:       "general",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
		}
	}
}

// AllowedFileType reports whether filename has one of the allowed extensions.
// An empty list allows everything.
func AllowedFileType(filename string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	id := uuid.New()
	ext := strings.ToLower(filepath.Ext(originalName))

	// Create filename with timestamp and UUID
	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], ext)

	if folder != "" {
		return folder + "/" + filename
	}
	return filename
}

type s3Store struct {
	client *s3.S3
	cfg    config.AWSConfig
}

func (s *s3Store) put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	if s.cfg.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.CloudFrontURL, "/"), key), nil
	}

	// Bucket objects are private
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(7 * 24 * time.Hour)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

func (s *s3Store) open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	return out.Body, nil
}

func (s *s3Store) remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// localStore keeps files under a root directory for development.
type localStore struct {
	root    string
	baseURL string
}

func newLocalStore(root, baseURL string) (*localStore, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &localStore{root: root, baseURL: baseURL}, nil
}

// pathFor refuses keys that would escape the root.
func (l *localStore) pathFor(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

func (l *localStore) put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	path, err := l.pathFor(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return l.baseURL + "/" + key, nil
}

func (l *localStore) open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := l.pathFor(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (l *localStore) remove(ctx context.Context, key string) error {
	path, err := l.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
