package utils

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// getS3Config returns AWS config for the attachment bucket. Works against
// AWS proper or any S3-compatible endpoint (S3_ENDPOINT).
func getS3Config() (aws.Config, error) {
	accessKey := os.Getenv("S3_ACCESS_KEY_ID")
	secretKey := os.Getenv("S3_SECRET_ACCESS_KEY")
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = "auto"
	}

	if accessKey == "" || secretKey == "" {
		return aws.Config{}, fmt.Errorf("S3_ACCESS_KEY_ID or S3_SECRET_ACCESS_KEY is not set")
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load S3 config: %w", err)
	}

	return cfg, nil
}

func getS3Client() (*s3.Client, error) {
	cfg, err := getS3Config()
	if err != nil {
		return nil, err
	}

	endpoint := os.Getenv("S3_ENDPOINT")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return client, nil
}

func getS3Bucket() (string, error) {
	bucket := os.Getenv("S3_BUCKET_NAME")
	if bucket == "" {
		return "", fmt.Errorf("S3_BUCKET_NAME is not set")
	}
	return bucket, nil
}

// AttachmentsEnabled reports whether an attachment bucket is configured.
func AttachmentsEnabled() bool {
	return os.Getenv("S3_BUCKET_NAME") != ""
}

// UploadAttachment uploads a guest-request image to the attachment bucket.
func UploadAttachment(ctx context.Context, objectName string, file io.Reader) error {
	bucket, err := getS3Bucket()
	if err != nil {
		return err
	}

	client, err := getS3Client()
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(path.Ext(objectName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectName),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("attachment upload failed: %w", err)
	}

	return nil
}

// AttachmentSignedURL returns a presigned GET URL for a stored attachment.
func AttachmentSignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	bucket, err := getS3Bucket()
	if err != nil {
		return "", err
	}

	client, err := getS3Client()
	if err != nil {
		return "", err
	}

	presigner := s3.NewPresignClient(client)

	presigned, err := presigner.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(objectName),
		},
		func(po *s3.PresignOptions) {
			po.Expires = expiry
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to presign attachment URL: %w", err)
	}

	return presigned.URL, nil
}

// DeleteAttachment removes a stored attachment.
func DeleteAttachment(ctx context.Context, objectName string) error {
	bucket, err := getS3Bucket()
	if err != nil {
		return err
	}

	client, err := getS3Client()
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return fmt.Errorf("attachment delete failed: %w", err)
	}

	return nil
}
