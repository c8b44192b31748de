// internal/services/storage_service.go
package services

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/soundbridge/backend/internal/config"
	"github.com/soundbridge/backend/internal/utils"
)

type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type StoredObject struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{config: config}, nil
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
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// StoreAudio persists the validated payload under the creator's audio
// folder and returns the stored object's location.
func (s *StorageService) StoreAudio(creatorID uuid.UUID, originalName, contentType string, payload []byte) (*StoredObject, error) {
	if err := s.ValidateAudioSignature(payload, contentType); err != nil {
		return nil, err
	}

	key := s.generateFileName(originalName, fmt.Sprintf("audio/%s", creatorID))

	if s.s3Client != nil {
		return s.uploadToS3(payload, key, contentType)
	}
	return s.uploadToLocal(payload, key, contentType)
}

func (s *StorageService) uploadToS3(fileBytes []byte, key, contentType string) (*StoredObject, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	_, err := s.s3Client.PutObject(params)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &StoredObject{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*StoredObject, error) {
	// Local development path: no object store, hand back a local URL.
	url := fmt.Sprintf("http://localhost:8080/uploads/%s", key)

	return &StoredObject{
		URL:      url,
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) DeleteFile(key string) error {
	if s.s3Client == nil {
		return nil
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// GeneratePresignedURL returns a time-limited download URL for private
// audio objects.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("S3 client not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	suffix, err := utils.GenerateRandomString(8)
	if err != nil {
		suffix = uuid.New().String()[:8]
	}
	ext := filepath.Ext(originalName)

	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, suffix, ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}
	return filename
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

// ValidateAudioSignature checks the payload's magic bytes against the
// declared type. Containers we cannot sniff (AAC in ADTS, raw streams)
// pass through; the metadata extractor does the deeper check.
func (s *StorageService) ValidateAudioSignature(payload []byte, contentType string) error {
	if len(payload) < 12 {
		return fmt.Errorf("file too small to be valid audio")
	}

	if isValidAudioSignature(payload) {
		return nil
	}
	return fmt.Errorf("file signature does not match any supported audio format")
}

func isValidAudioSignature(buffer []byte) bool {
	// WAV: RIFF....WAVE
	if len(buffer) >= 12 && string(buffer[0:4]) == "RIFF" && string(buffer[8:12]) == "WAVE" {
		return true
	}

	// MP3: ID3 tag or bare frame sync
	if len(buffer) >= 3 && string(buffer[0:3]) == "ID3" {
		return true
	}
	if len(buffer) >= 2 && buffer[0] == 0xFF && (buffer[1]&0xE0) == 0xE0 {
		return true
	}

	// FLAC
	if len(buffer) >= 4 && string(buffer[0:4]) == "fLaC" {
		return true
	}

	// OGG
	if len(buffer) >= 4 && string(buffer[0:4]) == "OggS" {
		return true
	}

	// MP4/M4A: ftyp box at offset 4
	if len(buffer) >= 12 && string(buffer[4:8]) == "ftyp" {
		boxSize := binary.BigEndian.Uint32(buffer[0:4])
		return boxSize >= 8
	}

	return false
}
