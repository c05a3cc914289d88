package service

import (
	"context"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const presignExpiry = 15 * time.Minute

// ImageService manages source-image storage around the enhancement job
// lifecycle: presigned direct-to-bucket uploads, upload verification, and
// signed read access for results.
type ImageService interface {
	// InitiateUpload creates a queued job and returns it with a presigned PUT
	// URL the client uploads the original image to.
	InitiateUpload(ctx context.Context, userID, filename string, fileSizeBytes int64) (*model.EnhancementJob, string, error)
	// CompleteUpload verifies the object landed in the bucket and leaves the
	// job queued for enhancement.
	CompleteUpload(ctx context.Context, userID, jobID string) (*model.EnhancementJob, error)
	DeleteJob(ctx context.Context, userID, jobID string) error

	SourceURL(ctx context.Context, storagePath string) (string, error)
}

type imageService struct {
	repo          repository.EnhancementRepository
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(repo repository.EnhancementRepository, s3Client *s3.Client, bucketName string, logger zerolog.Logger) ImageService {
	return &imageService{
		repo:          repo,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "ImageService").Logger(),
	}
}

func (s *imageService) InitiateUpload(ctx context.Context, userID, filename string, fileSizeBytes int64) (*model.EnhancementJob, string, error) {
	job, err := s.repo.Create(ctx, &model.EnhancementJob{
		UserID:        userID,
		Filename:      filename,
		FileSizeBytes: fileSizeBytes,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create job record for upload")
		return nil, "", fmt.Errorf("failed to create job record: %w", err)
	}

	storagePath := fmt.Sprintf("uploads/%s/%s/original", userID, job.ID)
	presignedURL, err := s.presignedPutURL(ctx, storagePath)
	if err != nil {
		_ = s.repo.Delete(ctx, job.ID)
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to generate presigned PUT URL")
		return nil, "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	if err := s.repo.UpdateStoragePath(ctx, job.ID, storagePath, fileSizeBytes); err != nil {
		_ = s.repo.Delete(ctx, job.ID)
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job with storage path")
		return nil, "", fmt.Errorf("failed to update job with storage path: %w", err)
	}
	job.StoragePath = storagePath

	return job, presignedURL, nil
}

func (s *imageService) CompleteUpload(ctx context.Context, userID, jobID string) (*model.EnhancementJob, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job for upload completion")
		return nil, err
	}
	if job.UserID != userID {
		return nil, fmt.Errorf("fetch enhancement job %s: %w", jobID, repository.ErrJobNotFound)
	}

	// Verify the client actually uploaded the object before accepting the job.
	head, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(job.StoragePath),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", job.StoragePath).Msg("Uploaded file not found in bucket")
		_ = s.repo.MarkFailed(ctx, jobID, "upload not found in storage")
		return nil, fmt.Errorf("file not found in storage: %w", err)
	}
	if head.ContentLength != nil && *head.ContentLength != job.FileSizeBytes {
		if err := s.repo.UpdateStoragePath(ctx, jobID, job.StoragePath, *head.ContentLength); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to reconcile uploaded file size")
		} else {
			job.FileSizeBytes = *head.ContentLength
		}
	}

	return job, nil
}

// DeleteJob removes the job record and its stored objects.
func (s *imageService) DeleteJob(ctx context.Context, userID, jobID string) error {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.UserID != userID {
		return fmt.Errorf("fetch enhancement job %s: %w", jobID, repository.ErrJobNotFound)
	}

	if job.StoragePath != "" {
		if _, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(job.StoragePath),
		}); err != nil {
			// Storage cleanup failure does not block deleting the record.
			s.logger.Error().Err(err).Str("storage_path", job.StoragePath).Msg("Failed to delete object from bucket")
		}
	}

	return s.repo.Delete(ctx, jobID)
}

// SourceURL generates a signed GET URL for the given storage path, used both
// as the provider's input URL and for client downloads.
func (s *imageService) SourceURL(ctx context.Context, storagePath string) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to generate presigned GET URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return resp.URL, nil
}

func (s *imageService) presignedPutURL(ctx context.Context, objectKey string) (string, error) {
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}
	return request.URL, nil
}
