package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"closetapi/apperrors"
)

// FailureRecord is a rejected model response kept for offline replay.
type FailureRecord struct {
	Operation string         `json:"operation"`
	Kind      apperrors.Kind `json:"kind"`
	Message   string         `json:"message"`
	Raw       string         `json:"raw"`
	Details   map[string]any `json:"details,omitempty"`
	Model     string         `json:"model,omitempty"`
	Attempt   int            `json:"attempt"`
	CreatedAt time.Time      `json:"created_at"`
}

// FailureArchiver stores rejected model output.
type FailureArchiver interface {
	ArchiveFailure(ctx context.Context, record FailureRecord) error
}

type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AWSService writes failure records to an R2 bucket through the S3 API.
type AWSService struct {
	Client     S3PutObjectAPI
	BucketName string
	Prefix     string
}

type R2Credentials struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
}

func NewAWSService(ctx context.Context, creds R2Credentials, bucketName string) (*AWSService, error) {
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", creds.AccountID),
		}, nil
	})
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(r2Resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.AccessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &AWSService{
		Client:     s3.NewFromConfig(cfg),
		BucketName: bucketName,
		Prefix:     "model-failures",
	}, nil
}

// FailureKey is <prefix>/<operation>/<yyyy-mm-dd>/<kind>-<uuid>.json
func (awsService *AWSService) FailureKey(record FailureRecord) string {
	return fmt.Sprintf("%s/%s/%s/%s-%s.json",
		awsService.Prefix,
		record.Operation,
		record.CreatedAt.UTC().Format("2006-01-02"),
		record.Kind,
		uuid.NewString(),
	)
}

func (awsService *AWSService) ArchiveFailure(ctx context.Context, record FailureRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failure record: %w", err)
	}
	key := awsService.FailureKey(record)
	_, err = awsService.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(awsService.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
