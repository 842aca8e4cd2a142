package ipa

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Client wraps an S3 client for Cloudflare R2 or any S3-compatible store.
type R2Client struct {
	Client     *s3.Client
	BucketName string
}

// r2Credentials validates the publishing settings and returns the endpoint.
func r2Credentials(s *Settings) (endpoint, accessKey, secretKey, bucket string, err error) {
	accountID := s.Values["IPA_R2_ACCOUNT_ID"]
	accessKey = s.Values["IPA_R2_ACCESS_KEY_ID"]
	secretKey = s.Values["IPA_R2_SECRET_ACCESS_KEY"]
	bucket = s.Values["IPA_R2_BUCKET_NAME"]
	endpoint = s.Values["IPA_S3_ENDPOINT"]
	if endpoint == "" && accountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return "", "", "", "", fmt.Errorf("%w: credentials missing in settings (IPA_R2_ACCOUNT_ID or IPA_S3_ENDPOINT, IPA_R2_ACCESS_KEY_ID, IPA_R2_SECRET_ACCESS_KEY, IPA_R2_BUCKET_NAME)", ErrPublish)
	}
	return endpoint, accessKey, secretKey, bucket, nil
}

// NewR2Client initializes a new client using the publishing settings.
func NewR2Client(ctx context.Context, s *Settings) (*R2Client, error) {
	endpoint, accessKey, secretKey, bucket, err := r2Credentials(s)
	if err != nil {
		return nil, err
	}

	options := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion("auto"),
	}
	if Debug {
		options = append(options, config.WithClientLogMode(aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load R2 config: %v", ErrPublish, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Client{
		Client:     client,
		BucketName: bucket,
	}, nil
}

// UploadLocalFile uploads a file from disk.
func (r *R2Client) UploadLocalFile(ctx context.Context, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	_, err = r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.BucketName),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentType(key)),
	})
	return err
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".ipa"):
		return "application/octet-stream"
	case strings.HasSuffix(key, ".zst"):
		return "application/zstd"
	case strings.HasSuffix(key, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(key, checksumExt):
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
