package filestorage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sundey-crm/pkg/config"
)

type PresignedUpload struct {
	URL        string
	ObjectName string
	Bucket     string
	PublicURL  string
	ExpiresIn  time.Duration
}

type PresignerInterface interface {
	PresignPut(ctx context.Context, objectName, contentType string) (*PresignedUpload, error)
}

type S3Presigner struct {
	client        *s3.PresignClient
	bucket        string
	ttl           time.Duration
	publicBaseURL string
}

// NewS3Presigner builds a presigner for an S3 compatible store. A custom
// endpoint switches to path style addressing, which MinIO requires.
func NewS3Presigner(cfg config.StorageConfig) (PresignerInterface, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}

	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.PublicBaseURL
	if publicBase == "" && cfg.Endpoint != "" {
		publicBase = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Presigner{
		client:        s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		ttl:           cfg.PresignTTL,
		publicBaseURL: strings.TrimSuffix(publicBase, "/"),
	}, nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, objectName, contentType string) (*PresignedUpload, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(objectName),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	upload := &PresignedUpload{
		URL:        req.URL,
		ObjectName: objectName,
		Bucket:     p.bucket,
		ExpiresIn:  p.ttl,
	}
	if p.publicBaseURL != "" {
		upload.PublicURL = p.publicBaseURL + "/" + objectName
	}
	return upload, nil
}
